package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

var (
	ErrNoExtinguisher = errors.New("no extinguisher selected")
	ErrNoInspection   = errors.New("no inspection in progress")
	ErrSubmitNotReady = errors.New("inspection is not ready to submit")
	ErrSubmitRejected = errors.New("inspection was not accepted")
)

type Options struct {
	Journal          domain.SubmissionJournal
	Storage          domain.FileStorage
	SnapshotBucket   string
	Clock            func() time.Time
	SubmitResetDelay time.Duration
}

// InspectionUseCase drives a session through home, scan, detail, inspection,
// result and history.
type InspectionUseCase struct {
	gateway    domain.Gateway
	journal    domain.SubmissionJournal
	storage    domain.FileStorage
	bucket     string
	clock      func() time.Time
	resetDelay time.Duration
	log        log.Interface
}

func NewInspectionUseCase(gateway domain.Gateway, opts Options, logger log.Interface) *InspectionUseCase {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SubmitResetDelay <= 0 {
		opts.SubmitResetDelay = 2 * time.Second
	}
	return &InspectionUseCase{
		gateway:    gateway,
		journal:    opts.Journal,
		storage:    opts.Storage,
		bucket:     opts.SnapshotBucket,
		clock:      opts.Clock,
		resetDelay: opts.SubmitResetDelay,
		log:        logger,
	}
}

// NewSession creates the state for one browser, showing the home screen.
func (u *InspectionUseCase) NewSession(id string, scanner *Scanner) *Session {
	s := &Session{
		ID:      id,
		nav:     NewNavigator(),
		scanner: scanner,
		submit:  SubmitControl{Label: LabelSubmit},
	}
	s.nav.OnEnter(domain.ScreenHistory, func() {
		s.history = BuildHistory(s.inspections, u.clock())
	})
	return s
}

// LoadInspections replaces the session's list with the backend's. A failed load
// leaves the session with an empty list.
func (u *InspectionUseCase) LoadInspections(ctx context.Context, s *Session) {
	list := u.gateway.FetchInspections(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections = list
	u.refreshStatsLocked(s)
	if s.nav.Current() == domain.ScreenHistory {
		s.history = BuildHistory(s.inspections, u.clock())
	}
}

// Navigate moves the session to screen. The scan screen opens the camera; every
// other screen releases it.
func (u *InspectionUseCase) Navigate(s *Session, screen domain.Screen) error {
	if screen == domain.ScreenScan {
		u.OpenScanner(s)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !screen.IsValid() {
		return s.nav.NavigateTo(screen)
	}
	s.scanner.Stop()
	if screen == domain.ScreenHome {
		s.extinguisher = nil
		s.equipmentID = ""
		s.checklist = nil
	}
	return s.nav.NavigateTo(screen)
}

// OpenScanner discards the current record and starts scanning for a new one.
func (u *InspectionUseCase) OpenScanner(s *Session) {
	s.mu.Lock()
	s.extinguisher = nil
	s.equipmentID = ""
	s.checklist = nil
	_ = s.nav.NavigateTo(domain.ScreenScan)
	s.mu.Unlock()

	s.scanner.Open(func(payload string, frame image.Image) {
		u.HandleScanResult(context.Background(), s, payload, frame)
	})
}

// HandleScanResult resolves a decoded or typed payload and moves to the detail
// screen, or back home with an alert when the id is unknown. frame may be nil.
func (u *InspectionUseCase) HandleScanResult(ctx context.Context, s *Session, payload string, frame image.Image) {
	id := strings.TrimSpace(payload)
	s.scanner.SetStatus("Checking ID: " + id + " ...")
	s.scanner.Stop()

	logger := u.log.WithFields(log.Fields{"session": s.ID, "equipment_id": id})
	ext, ok := u.gateway.FetchExtinguisher(ctx, id)
	if ok && frame != nil {
		u.saveSnapshot(ctx, id, frame)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		logger.Info("equipment id not found")
		s.alert = "QR not recognized or not in database: " + id
		s.extinguisher = nil
		s.equipmentID = ""
		_ = s.nav.NavigateTo(domain.ScreenHome)
		return
	}
	logger.Info("equipment resolved")
	s.extinguisher = ext
	s.equipmentID = string(ext.ID)
	_ = s.nav.NavigateTo(domain.ScreenDetail)
}

// HandleLabelPhoto reads an equipment id off a photo of the printed label and
// resolves it like a scanned code. An unreadable label leaves the screen as is.
func (u *InspectionUseCase) HandleLabelPhoto(ctx context.Context, s *Session, labels domain.LabelReader, photo []byte) error {
	id, err := labels.ReadLabel(photo)
	if err != nil {
		u.log.WithError(err).WithField("session", s.ID).Info("label photo unreadable")
		s.mu.Lock()
		s.alert = "Could not read an equipment ID from the label photo"
		s.mu.Unlock()
		return err
	}
	u.HandleScanResult(ctx, s, id, nil)
	return nil
}

func (u *InspectionUseCase) saveSnapshot(ctx context.Context, id string, frame image.Image) {
	if u.storage == nil {
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG); err != nil {
		u.log.WithError(err).Warn("encoding scan snapshot")
		return
	}
	key := fmt.Sprintf("scans/%s/%s.jpg", id, uuid.New())
	if _, err := u.storage.Upload(ctx, u.bucket, key, buf.Bytes()); err != nil {
		u.log.WithError(err).WithField("key", key).Warn("storing scan snapshot")
	}
}

// StartInspection opens a blank checklist for the current extinguisher.
func (u *InspectionUseCase) StartInspection(s *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extinguisher == nil {
		return ErrNoExtinguisher
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.checklist = NewChecklist()
	s.submit = SubmitControl{Enabled: false, Label: LabelSubmit}
	return s.nav.NavigateTo(domain.ScreenInspection)
}

func (u *InspectionUseCase) RecordAnswer(s *Session, q domain.Question, value string) (SubmitControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checklist == nil {
		return s.submit, ErrNoInspection
	}
	if err := s.checklist.RecordAnswer(q, value); err != nil {
		return s.submit, err
	}
	u.updateSubmitLocked(s)
	return s.submit, nil
}

func (u *InspectionUseCase) SetInspectorName(s *Session, name string) (SubmitControl, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checklist == nil {
		return s.submit, ErrNoInspection
	}
	s.checklist.InspectorName = name
	u.updateSubmitLocked(s)
	return s.submit, nil
}

func (u *InspectionUseCase) SetRemarks(s *Session, remarks string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checklist == nil {
		return ErrNoInspection
	}
	s.checklist.Remarks = remarks
	return nil
}

func (u *InspectionUseCase) updateSubmitLocked(s *Session) {
	if s.submit.Submitting {
		return
	}
	s.submit.Enabled = s.checklist.CanSubmit()
}

// Submit sends the checklist to the backend. On rejection the submit control shows
// an error and re-enables itself after the reset delay; nothing is retried.
func (u *InspectionUseCase) Submit(ctx context.Context, s *Session) (*ResultView, error) {
	s.mu.Lock()
	if s.checklist == nil || s.submit.Submitting || !s.submit.Enabled || !s.checklist.CanSubmit() {
		s.mu.Unlock()
		return nil, ErrSubmitNotReady
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	rec := s.checklist.Record(s.equipmentID)
	rec.InspectedAt = domain.Timestamp{Time: u.clock()}
	s.submit = SubmitControl{Enabled: false, Label: LabelSubmitting, Submitting: true}
	s.mu.Unlock()

	logger := u.log.WithFields(log.Fields{
		"session":      s.ID,
		"equipment_id": rec.EquipmentID,
		"result":       rec.Result,
	})
	accepted := u.gateway.SubmitInspection(ctx, rec)
	u.journalAttempt(ctx, s.ID, rec, accepted)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submit.Submitting = false
	if !accepted {
		logger.Warn("inspection not accepted")
		s.submit.Enabled = false
		s.submit.Label = LabelSubmitError
		s.resetTimer = time.AfterFunc(u.resetDelay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.submit.Label == LabelSubmitError {
				s.submit.Label = LabelSubmit
				s.submit.Enabled = true
			}
			s.resetTimer = nil
		})
		return nil, ErrSubmitRejected
	}

	logger.Info("inspection submitted")
	s.inspections = append(s.inspections, rec)
	u.refreshStatsLocked(s)
	s.lastRecord = &rec
	s.result = resultViewFor(rec, u.clock().Location())
	s.checklist = nil
	s.submit = SubmitControl{Label: LabelSubmit}
	if err := s.nav.NavigateTo(domain.ScreenResult); err != nil {
		return nil, err
	}
	view := *s.result
	return &view, nil
}

func (u *InspectionUseCase) journalAttempt(ctx context.Context, sessionID string, rec domain.Inspection, accepted bool) {
	if u.journal == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		u.log.WithError(err).Warn("encoding journal payload")
		return
	}
	entry := &domain.Submission{
		ID:            uuid.New(),
		SessionID:     sessionID,
		EquipmentID:   rec.EquipmentID,
		InspectorName: rec.InspectorName,
		Result:        rec.Result,
		Accepted:      accepted,
		Payload:       payload,
		AttemptedAt:   rec.InspectedAt.Time,
	}
	if err := u.journal.Record(ctx, entry); err != nil {
		u.log.WithError(err).Warn("recording submission in journal")
	}
}

func (u *InspectionUseCase) refreshStatsLocked(s *Session) {
	s.stats = ComputeStats(s.inspections, u.clock())
}

// Close stops everything the session still holds.
func (u *InspectionUseCase) Close(s *Session) {
	s.scanner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

// View snapshots the session for rendering.
func (u *InspectionUseCase) View(s *Session) SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SessionView{
		SessionID:   s.ID,
		Screen:      s.nav.Current(),
		Element:     s.nav.Current().Element(),
		ScanState:   s.scanner.State(),
		ScanStatus:  s.scanner.Status(),
		Detail:      DetailViewFor(s.extinguisher),
		EquipmentID: orDash(s.equipmentID),
		Submit:      s.submit,
		History:     s.history,
		Stats:       s.stats,
	}
	if s.checklist != nil {
		v.InspectorName = s.checklist.InspectorName
		v.Remarks = s.checklist.Remarks
		for _, q := range domain.Questions {
			v.Questions = append(v.Questions, QuestionView{Key: q, Text: q.Text(), Answer: s.checklist.Answer(q)})
		}
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}
