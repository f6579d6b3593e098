package sentiment

import (
	"strings"
	"unicode"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

// Polarity thresholds. Both comparisons are strict.
const (
	PositiveThreshold = 0.15
	NegativeThreshold = -PositiveThreshold
)

const negationFactor = -0.5

type Analyzer struct {
	lex *Lexicon
}

func New(lex *Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

// NewDefault builds an analyzer over the embedded lexicon.
func NewDefault() *Analyzer {
	lex, err := DefaultLexicon()
	if err != nil {
		panic("sentiment: embedded lexicon: " + err.Error())
	}
	return New(lex)
}

func (a *Analyzer) Classify(text string) domain.Sentiment {
	return Label(a.Polarity(text))
}

// Label maps a polarity score onto the sentiment set.
func Label(polarity float64) domain.Sentiment {
	switch {
	case polarity > PositiveThreshold:
		return domain.SentimentPositive
	case polarity < NegativeThreshold:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// Polarity is the mean polarity of the scored terms in text, in [-1, 1].
// A preceding intensifier scales a term; a negation within the two
// preceding tokens flips and dampens it.
func (a *Analyzer) Polarity(text string) float64 {
	tokens := tokenize(text)
	var sum float64
	var scored int

	for i, token := range tokens {
		p, ok := a.lex.Words[token]
		if !ok {
			continue
		}

		j := i - 1
		if j >= 0 {
			if factor, ok := a.lex.Intensifiers[tokens[j]]; ok {
				p *= factor
				j--
			}
		}
		for k := j; k >= 0 && k >= j-1; k-- {
			if a.lex.isNegation(tokens[k]) {
				p *= negationFactor
				break
			}
		}

		sum += clamp(p)
		scored++
	}

	if scored == 0 {
		return 0
	}
	return clamp(sum / float64(scored))
}

func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.Trim(current.String(), "'"))
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || r == '\'' || r == '’' {
			if r == '’' {
				r = '\''
			}
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
