package delivery

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// AdminHandler exposes the server-side submission journal.
type AdminHandler struct {
	journal domain.SubmissionJournal
	log     log.Interface
}

func NewAdminHandler(journal domain.SubmissionJournal, logger log.Interface) *AdminHandler {
	return &AdminHandler{
		journal: journal,
		log:     logger,
	}
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/admin/submissions" && r.Method == http.MethodGet:
		h.handleListSubmissions(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AdminHandler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		http.Error(w, "Submission journal is disabled", http.StatusNotFound)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.journal.List(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("listing submissions")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]submissionView, 0, len(entries))
	for _, e := range entries {
		out = append(out, submissionView{
			ID:            e.ID.String(),
			SessionID:     e.SessionID,
			EquipmentID:   e.EquipmentID,
			InspectorName: e.InspectorName,
			Result:        e.Result,
			Accepted:      e.Accepted,
			Payload:       json.RawMessage(e.Payload),
			AttemptedAt:   e.AttemptedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type submissionView struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	EquipmentID   string          `json:"equipment_id"`
	InspectorName string          `json:"inspector_name"`
	Result        domain.Result   `json:"result"`
	Accepted      bool            `json:"accepted"`
	Payload       json.RawMessage `json:"payload"`
	AttemptedAt   time.Time       `json:"attempted_at"`
}
