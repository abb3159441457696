package usecase

import (
	"sync"
	"time"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

const (
	LabelSubmit      = "Submit Inspection"
	LabelSubmitting  = "Submitting..."
	LabelSubmitError = "Error - Try Again"
)

// SubmitControl is the state of the submit button on the inspection screen.
type SubmitControl struct {
	Enabled    bool   `json:"enabled"`
	Label      string `json:"label"`
	Submitting bool   `json:"submitting"`
}

type DetailView struct {
	EquipmentID    string
	Location       string
	Type           string
	Size           string
	LastInspection string
	Expiry         string
	Status         string
	BadgeClass     string
}

type ResultView struct {
	Result      domain.Result
	Pass        bool
	Icon        string
	Title       string
	Subtitle    string
	EquipmentID string
	Inspector   string
	Timestamp   string
}

type QuestionView struct {
	Key    domain.Question
	Text   string
	Answer domain.Answer
}

// SessionView is a point-in-time copy of everything a page render needs.
type SessionView struct {
	SessionID     string
	Screen        domain.Screen
	Element       string
	ScanState     ScannerState
	ScanStatus    string
	Detail        *DetailView
	EquipmentID   string
	Questions     []QuestionView
	InspectorName string
	Remarks       string
	Submit        SubmitControl
	Result        *ResultView
	History       HistoryView
	Stats         Stats
}

// Session is the state of one technician's browser. All fields are guarded by mu;
// the scanner has its own lock.
type Session struct {
	ID string

	mu           sync.Mutex
	nav          *Navigator
	scanner      *Scanner
	equipmentID  string
	extinguisher *domain.Extinguisher
	checklist    *Checklist
	inspections  []domain.Inspection
	history      HistoryView
	stats        Stats
	submit       SubmitControl
	result       *ResultView
	lastRecord   *domain.Inspection
	alert        string
	resetTimer   *time.Timer
}

func (s *Session) Scanner() *Scanner {
	return s.scanner
}

// TakeAlert returns the pending alert message, if any, and clears it.
func (s *Session) TakeAlert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.alert
	s.alert = ""
	return msg
}

func (s *Session) Screen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// Inspections returns a copy of the session's inspection list.
func (s *Session) Inspections() []domain.Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Inspection, len(s.inspections))
	copy(out, s.inspections)
	return out
}

// LastRecord is the most recent accepted submission of this session.
func (s *Session) LastRecord() (domain.Inspection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRecord == nil {
		return domain.Inspection{}, false
	}
	return *s.lastRecord, true
}

func (s *Session) SubmitState() SubmitControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit
}

// DetailViewFor maps a record onto the read-only detail screen.
func DetailViewFor(ext *domain.Extinguisher) *DetailView {
	if ext == nil {
		return nil
	}
	return &DetailView{
		EquipmentID:    string(ext.ID),
		Location:       orDash(string(ext.Location)),
		Type:           orDash(string(ext.Type)),
		Size:           orDash(string(ext.Size)),
		LastInspection: orDash(string(ext.LastInspection)),
		Expiry:         orDash(ext.ExpiresOn()),
		Status:         orDash(string(ext.Status)),
		BadgeClass:     StatusBadgeClass(ext.Status),
	}
}

// StatusBadgeClass picks the badge colour for an extinguisher status. Anything
// that is neither Good nor Need Service is shown as expired.
func StatusBadgeClass(status domain.ExtinguisherStatus) string {
	switch status {
	case domain.StatusGood:
		return "badge-good"
	case domain.StatusNeedService:
		return "badge-service"
	default:
		return "badge-expired"
	}
}

func resultViewFor(rec domain.Inspection, loc *time.Location) *ResultView {
	v := &ResultView{
		Result:      rec.Result,
		EquipmentID: orDash(rec.EquipmentID),
		Inspector:   orDash(rec.InspectorName),
		Timestamp:   rec.InspectedAt.In(loc).Format(DisplayTimeLayout),
	}
	if rec.Result == domain.ResultPass {
		v.Pass = true
		v.Icon = "✓"
		v.Title = "Inspection Complete"
		v.Subtitle = "Equipment passed all safety checks"
	} else {
		v.Icon = "✗"
		v.Title = "Service Required"
		v.Subtitle = "Equipment requires maintenance"
	}
	return v
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
