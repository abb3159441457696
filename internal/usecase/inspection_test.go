package usecase

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

type fakeGateway struct {
	mu        sync.Mutex
	exts      map[string]*domain.Extinguisher
	list      []domain.Inspection
	reject    bool
	submitted []domain.Inspection
}

func (g *fakeGateway) FetchExtinguisher(ctx context.Context, id string) (*domain.Extinguisher, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ext, ok := g.exts[id]
	return ext, ok
}

func (g *fakeGateway) FetchInspections(ctx context.Context) []domain.Inspection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Inspection(nil), g.list...)
}

func (g *fakeGateway) SubmitInspection(ctx context.Context, rec domain.Inspection) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.reject {
		return false
	}
	g.submitted = append(g.submitted, rec)
	return true
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []domain.Submission
}

func (j *fakeJournal) Record(ctx context.Context, s *domain.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, *s)
	return nil
}

func (j *fakeJournal) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.Submission(nil), j.entries...), nil
}

type fakeStorage struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeStorage) Upload(ctx context.Context, bucket, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "/uploads/" + key, nil
}

func (s *fakeStorage) GetURL(ctx context.Context, bucket, key string) (string, error) {
	return "/uploads/" + key, nil
}

type fakeLabels struct {
	id  string
	err error
}

func (l fakeLabels) ReadLabel([]byte) (string, error) {
	return l.id, l.err
}

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

type workflow struct {
	uc      *InspectionUseCase
	gw      *fakeGateway
	journal *fakeJournal
	storage *fakeStorage
	s       *Session
}

func newWorkflow(t *testing.T) *workflow {
	t.Helper()
	gw := &fakeGateway{exts: map[string]*domain.Extinguisher{
		"EXT-1007": {ID: "EXT-1007", Location: "Warehouse B, Bay 3", Type: "Dry Chemical", Status: domain.StatusNeedService},
	}}
	w := &workflow{gw: gw, journal: &fakeJournal{}, storage: &fakeStorage{}}
	w.uc = NewInspectionUseCase(gw, Options{
		Journal:          w.journal,
		Storage:          w.storage,
		Clock:            func() time.Time { return testNow },
		SubmitResetDelay: 20 * time.Millisecond,
	}, testLogger)
	w.s = w.uc.NewSession("session-1", newTestScanner(&fakeCamera{block: true}, &fakeDecoder{}))
	t.Cleanup(func() { w.uc.Close(w.s) })
	return w
}

// ready brings the session to a submittable inspection of EXT-1007.
func (w *workflow) ready(t *testing.T, answer string) {
	t.Helper()
	w.uc.HandleScanResult(context.Background(), w.s, "EXT-1007", nil)
	if err := w.uc.StartInspection(w.s); err != nil {
		t.Fatalf("StartInspection() error = %v", err)
	}
	for _, q := range domain.Questions {
		if _, err := w.uc.RecordAnswer(w.s, q, answer); err != nil {
			t.Fatalf("RecordAnswer() error = %v", err)
		}
	}
	c, err := w.uc.SetInspectorName(w.s, "J. Lee")
	if err != nil || !c.Enabled {
		t.Fatalf("SetInspectorName() = %+v, %v", c, err)
	}
}

func TestInspectionWorkflowPass(t *testing.T) {
	w := newWorkflow(t)

	w.uc.HandleScanResult(context.Background(), w.s, "  EXT-1007  ", nil)
	v := w.uc.View(w.s)
	if v.Screen != domain.ScreenDetail || v.Detail == nil {
		t.Fatalf("after lookup screen = %s detail = %v", v.Screen, v.Detail)
	}
	if v.Detail.EquipmentID != "EXT-1007" || v.Detail.Size != "-" || v.Detail.BadgeClass != "badge-service" {
		t.Errorf("detail = %+v", v.Detail)
	}

	if err := w.uc.StartInspection(w.s); err != nil {
		t.Fatalf("StartInspection() error = %v", err)
	}
	v = w.uc.View(w.s)
	if v.Screen != domain.ScreenInspection || len(v.Questions) != len(domain.Questions) || v.Submit.Enabled {
		t.Fatalf("inspection view = %+v", v)
	}

	for _, q := range domain.Questions {
		c, err := w.uc.RecordAnswer(w.s, q, "yes")
		if err != nil {
			t.Fatalf("RecordAnswer(%s) error = %v", q, err)
		}
		if c.Enabled {
			t.Errorf("submit enabled without an inspector name")
		}
	}
	c, _ := w.uc.SetInspectorName(w.s, "J. Lee")
	if !c.Enabled || c.Label != LabelSubmit {
		t.Fatalf("submit control = %+v", c)
	}

	result, err := w.uc.Submit(context.Background(), w.s)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !result.Pass || result.Icon != "✓" || result.Title != "Inspection Complete" || result.Inspector != "J. Lee" {
		t.Errorf("result = %+v", result)
	}
	if result.Timestamp != "Oct 14, 2026, 9:30 AM" {
		t.Errorf("Timestamp = %q", result.Timestamp)
	}

	if len(w.gw.submitted) != 1 {
		t.Fatalf("gateway received %d submissions", len(w.gw.submitted))
	}
	sent := w.gw.submitted[0]
	if sent.EquipmentID != "EXT-1007" || sent.Result != domain.ResultPass || !sent.InspectedAt.Equal(testNow) {
		t.Errorf("submitted = %+v", sent)
	}

	v = w.uc.View(w.s)
	if v.Screen != domain.ScreenResult || v.Stats.Total != 1 || v.Stats.Today != 1 {
		t.Errorf("after submit screen = %s stats = %+v", v.Screen, v.Stats)
	}
	if rec, ok := w.s.LastRecord(); !ok || rec.EquipmentID != "EXT-1007" {
		t.Errorf("LastRecord() = %+v, %v", rec, ok)
	}
	if len(w.journal.entries) != 1 || !w.journal.entries[0].Accepted {
		t.Errorf("journal = %+v", w.journal.entries)
	}
}

func TestInspectionWorkflowFail(t *testing.T) {
	w := newWorkflow(t)
	w.ready(t, "yes")
	w.uc.RecordAnswer(w.s, domain.QuestionHose, "no")

	result, err := w.uc.Submit(context.Background(), w.s)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Pass || result.Icon != "✗" || result.Title != "Service Required" || result.Subtitle != "Equipment requires maintenance" {
		t.Errorf("result = %+v", result)
	}
}

func TestUnknownEquipmentGoesHome(t *testing.T) {
	w := newWorkflow(t)
	w.uc.Navigate(w.s, domain.ScreenScan)

	w.uc.HandleScanResult(context.Background(), w.s, "EXT-0000", nil)
	if w.s.Screen() != domain.ScreenHome {
		t.Errorf("Screen() = %s, want home", w.s.Screen())
	}
	if msg := w.s.TakeAlert(); msg != "QR not recognized or not in database: EXT-0000" {
		t.Errorf("alert = %q", msg)
	}
	if msg := w.s.TakeAlert(); msg != "" {
		t.Errorf("alert not cleared: %q", msg)
	}
	if err := w.uc.StartInspection(w.s); !errors.Is(err, ErrNoExtinguisher) {
		t.Errorf("StartInspection() error = %v", err)
	}
}

func TestSubmitGuard(t *testing.T) {
	w := newWorkflow(t)
	if _, err := w.uc.Submit(context.Background(), w.s); !errors.Is(err, ErrSubmitNotReady) {
		t.Errorf("Submit() without inspection error = %v", err)
	}

	w.uc.HandleScanResult(context.Background(), w.s, "EXT-1007", nil)
	w.uc.StartInspection(w.s)
	w.uc.RecordAnswer(w.s, domain.QuestionPressure, "yes")
	w.uc.SetInspectorName(w.s, "J. Lee")
	if _, err := w.uc.Submit(context.Background(), w.s); !errors.Is(err, ErrSubmitNotReady) {
		t.Errorf("Submit() with unanswered questions error = %v", err)
	}
	if len(w.gw.submitted) != 0 {
		t.Errorf("incomplete inspection reached the gateway")
	}
	if _, err := w.uc.RecordAnswer(w.s, "paint", "yes"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("RecordAnswer(paint) error = %v", err)
	}
}

func TestRejectedSubmitResetsControl(t *testing.T) {
	w := newWorkflow(t)
	w.gw.reject = true
	w.ready(t, "yes")

	if _, err := w.uc.Submit(context.Background(), w.s); !errors.Is(err, ErrSubmitRejected) {
		t.Fatalf("Submit() error = %v", err)
	}
	c := w.s.SubmitState()
	if c.Enabled || c.Label != LabelSubmitError {
		t.Errorf("after rejection control = %+v", c)
	}
	if w.s.Screen() != domain.ScreenInspection || len(w.s.Inspections()) != 0 {
		t.Errorf("rejected submission changed the session")
	}
	if _, err := w.uc.Submit(context.Background(), w.s); !errors.Is(err, ErrSubmitNotReady) {
		t.Errorf("Submit() during the error window error = %v", err)
	}

	eventually(t, "submit reset", func() bool {
		c := w.s.SubmitState()
		return c.Enabled && c.Label == LabelSubmit
	})

	w.gw.mu.Lock()
	w.gw.reject = false
	w.gw.mu.Unlock()
	if _, err := w.uc.Submit(context.Background(), w.s); err != nil {
		t.Fatalf("resubmit error = %v", err)
	}
	if len(w.journal.entries) != 2 || w.journal.entries[0].Accepted || !w.journal.entries[1].Accepted {
		t.Errorf("journal = %+v", w.journal.entries)
	}
}

func TestNavigate(t *testing.T) {
	w := newWorkflow(t)
	w.uc.HandleScanResult(context.Background(), w.s, "EXT-1007", nil)

	if err := w.uc.Navigate(w.s, "settings"); !errors.Is(err, ErrUnknownScreen) {
		t.Errorf("Navigate(settings) error = %v", err)
	}
	if w.s.Screen() != domain.ScreenDetail {
		t.Errorf("unknown screen moved the session to %s", w.s.Screen())
	}

	w.uc.Navigate(w.s, domain.ScreenScan)
	if st := w.s.Scanner().State(); st != ScannerAcquiring {
		t.Errorf("scanner state on scan screen = %s", st)
	}
	if w.uc.View(w.s).Detail != nil {
		t.Errorf("opening the scanner kept the previous record")
	}

	w.uc.Navigate(w.s, domain.ScreenHistory)
	if st := w.s.Scanner().State(); st != ScannerStopped {
		t.Errorf("scanner state after leaving scan = %s", st)
	}
}

func TestHistoryRefreshesOnEnter(t *testing.T) {
	w := newWorkflow(t)
	w.gw.list = []domain.Inspection{
		inspectionAt("EXT-A", testNow.AddDate(0, 0, -1), domain.ResultPass),
		inspectionAt("EXT-B", testNow.Add(-time.Hour), domain.ResultFail),
	}
	w.uc.LoadInspections(context.Background(), w.s)
	if v := w.uc.View(w.s); v.Stats.Total != 2 || v.Stats.Today != 1 {
		t.Errorf("stats = %+v", v.Stats)
	}

	w.uc.Navigate(w.s, domain.ScreenHistory)
	v := w.uc.View(w.s)
	if len(v.History.Rows) != 2 || v.History.Rows[0].EquipmentID != "EXT-B" {
		t.Errorf("history = %+v", v.History)
	}
}

func TestScanSnapshotStored(t *testing.T) {
	w := newWorkflow(t)
	w.uc.HandleScanResult(context.Background(), w.s, "EXT-1007", image.NewRGBA(image.Rect(0, 0, 8, 8)))
	w.uc.HandleScanResult(context.Background(), w.s, "EXT-0000", image.NewRGBA(image.Rect(0, 0, 8, 8)))

	if len(w.storage.keys) != 1 {
		t.Fatalf("stored %d snapshots, want 1", len(w.storage.keys))
	}
	if !strings.HasPrefix(w.storage.keys[0], "scans/EXT-1007/") || !strings.HasSuffix(w.storage.keys[0], ".jpg") {
		t.Errorf("key = %q", w.storage.keys[0])
	}
}

func TestHandleLabelPhoto(t *testing.T) {
	w := newWorkflow(t)
	w.uc.Navigate(w.s, domain.ScreenScan)

	if err := w.uc.HandleLabelPhoto(context.Background(), w.s, fakeLabels{err: errors.New("blurry")}, nil); err == nil {
		t.Errorf("unreadable label returned no error")
	}
	if w.s.Screen() != domain.ScreenScan || w.s.TakeAlert() == "" {
		t.Errorf("unreadable label: screen = %s", w.s.Screen())
	}

	if err := w.uc.HandleLabelPhoto(context.Background(), w.s, fakeLabels{id: "EXT-1007"}, nil); err != nil {
		t.Fatalf("HandleLabelPhoto() error = %v", err)
	}
	if w.s.Screen() != domain.ScreenDetail {
		t.Errorf("Screen() = %s, want detail", w.s.Screen())
	}
}
