package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const (
	maxComplaintBodyBytes = 64 << 10
	xlsxContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type createComplaintRequest struct {
	Text string `json:"text"`
}

type createComplaintResponse struct {
	ID        int64            `json:"id"`
	Status    domain.Status    `json:"status"`
	Sentiment domain.Sentiment `json:"sentiment"`
	Category  domain.Category  `json:"category"`
}

func (rt *Router) createComplaint(w http.ResponseWriter, r *http.Request) {
	var req createComplaintRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxComplaintBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	complaint, err := rt.intake.CreateComplaint(r.Context(), req.Text, clientAddress(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createComplaintResponse{
		ID:        complaint.ID,
		Status:    complaint.Status,
		Sentiment: complaint.Sentiment,
		Category:  complaint.Category,
	})
}

func (rt *Router) listNewComplaints(w http.ResponseWriter, r *http.Request) {
	var lastID *int64
	if err := runtime.BindQueryParameter("form", true, false, "last_id", r.URL.Query(), &lastID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "last_id must be an integer"})
		return
	}

	complaints, err := rt.triage.ListOpenSince(r.Context(), lastID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, complaints)
}

func (rt *Router) closeComplaint(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", r.PathValue("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id must be an integer"})
		return
	}

	if _, err := rt.triage.Close(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportComplaints(w http.ResponseWriter, r *http.Request) {
	var rawStatus *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &rawStatus); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}
	label, status, err := parseExportStatus(rawStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	n, err := rt.triage.Export(r.Context(), &buf, status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="complaints-%s.xlsx"`, label))
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// parseExportStatus defaults to open complaints; "all" disables the filter.
func parseExportStatus(raw *string) (string, *domain.Status, error) {
	if raw == nil || *raw == "" {
		open := domain.StatusOpen
		return string(open), &open, nil
	}
	if *raw == "all" {
		return "all", nil, nil
	}
	status := domain.Status(*raw)
	if !status.Valid() {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "export complaints", errors.New("status must be one of open, closed, all"))
	}
	return *raw, &status, nil
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
