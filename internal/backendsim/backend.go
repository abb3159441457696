// Package backendsim is an in-memory stand-in for the spreadsheet-backed
// inspection service. It speaks the same action-based JSON contract.
package backendsim

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

type Backend struct {
	mu            sync.Mutex
	extinguishers map[string]domain.Extinguisher
	inspections   []domain.Inspection
	rejectSubmits bool
}

func New(extinguishers ...domain.Extinguisher) *Backend {
	b := &Backend{extinguishers: make(map[string]domain.Extinguisher)}
	for _, e := range extinguishers {
		b.extinguishers[string(e.ID)] = e
	}
	return b
}

// SetRejectSubmissions makes submitInspection answer success:false.
func (b *Backend) SetRejectSubmissions(reject bool) {
	b.mu.Lock()
	b.rejectSubmits = reject
	b.mu.Unlock()
}

// AddInspection stores a record as if it had been submitted earlier.
func (b *Backend) AddInspection(rec domain.Inspection) {
	b.mu.Lock()
	b.inspections = append(b.inspections, rec)
	b.mu.Unlock()
}

func (b *Backend) Inspections() []domain.Inspection {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Inspection, len(b.inspections))
	copy(out, b.inspections)
	return out
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switch r.URL.Query().Get("action") {
		case "getExtinguisher":
			b.handleGetExtinguisher(w, r)
		case "getInspections":
			b.handleGetInspections(w)
		default:
			writeJSON(w, map[string]interface{}{"success": false, "error": "unknown action"})
		}
	case http.MethodPost:
		b.handlePost(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (b *Backend) handleGetExtinguisher(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	b.mu.Lock()
	ext, ok := b.extinguishers[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, map[string]interface{}{"success": false, "error": "not found"})
		return
	}
	writeJSON(w, map[string]interface{}{"success": true, "extinguisher": ext})
}

func (b *Backend) handleGetInspections(w http.ResponseWriter) {
	writeJSON(w, map[string]interface{}{"success": true, "inspections": b.Inspections()})
}

type postRequest struct {
	Action  string            `json:"action"`
	Payload domain.Inspection `json:"payload"`
}

func (b *Backend) handlePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]interface{}{"success": false, "error": "invalid body"})
		return
	}
	if req.Action != "submitInspection" {
		writeJSON(w, map[string]interface{}{"success": false, "error": "unknown action"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectSubmits {
		writeJSON(w, map[string]interface{}{"success": false, "error": "rejected"})
		return
	}
	b.inspections = append(b.inspections, req.Payload)
	writeJSON(w, map[string]interface{}{"success": true})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
