package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryTechnical Category = "technical"
	CategoryPayment   Category = "payment"
	CategoryOther     Category = "other"

	// CategoryUnknown is what a classifier reports when it could not decide.
	// It is never persisted.
	CategoryUnknown Category = ""
)

// Categories lists the closed category set in prompt order.
func Categories() []Category {
	return []Category{CategoryTechnical, CategoryPayment, CategoryOther}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryPayment, CategoryOther:
		return true
	default:
		return false
	}
}

// OrDefault substitutes the fallback category for an unknown one.
func (c Category) OrDefault() Category {
	if !c.Valid() {
		return CategoryOther
	}
	return c
}

// MatchCategory scans free-form model output and returns the first
// whitespace-separated token equal to a category name. Matching is exact:
// "Payment" and "payment." are not categories.
func MatchCategory(raw string) (Category, bool) {
	for _, token := range strings.Fields(raw) {
		if c := Category(token); c.Valid() {
			return c, true
		}
	}
	return CategoryUnknown, false
}

type Complaint struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Status    Status    `json:"status"`
	Sentiment Sentiment `json:"sentiment"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"timestamp"`
}

// Validate checks the enum fields before they reach storage.
func (c *Complaint) Validate() error {
	switch {
	case strings.TrimSpace(c.Text) == "":
		return ErrEmptyText
	case !c.Status.Valid():
		return &EnumError{Field: "status", Value: string(c.Status)}
	case !c.Sentiment.Valid():
		return &EnumError{Field: "sentiment", Value: string(c.Sentiment)}
	case !c.Category.Valid():
		return &EnumError{Field: "category", Value: string(c.Category)}
	}
	return nil
}

// ListFilter selects complaints ordered by ascending id.
type ListFilter struct {
	Status  *Status
	AfterID *int64
	Limit   int
}

type Location struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

// GeoJob is a detached geolocation request for a freshly created complaint.
type GeoJob struct {
	ComplaintID   int64     `json:"complaint_id"`
	ClientAddress string    `json:"client_address"`
	CreatedAt     time.Time `json:"created_at"`
}

// ComplaintCreatedEvent is published once a complaint is persisted.
type ComplaintCreatedEvent struct {
	EventID       string    `json:"event_id"`
	ComplaintID   int64     `json:"complaint_id"`
	ClientAddress string    `json:"client_address"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e ComplaintCreatedEvent) Job() GeoJob {
	return GeoJob{
		ComplaintID:   e.ComplaintID,
		ClientAddress: e.ClientAddress,
		CreatedAt:     e.CreatedAt,
	}
}
