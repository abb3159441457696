package delivery

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/usecase"
)

const sessionCookie = "fx_session"

// FrameFeed is the browser-facing side of a session's camera.
type FrameFeed interface {
	PushEncoded(data []byte) error
	Fail()
	Facing() domain.Facing
	Wanted() bool
}

// CameraFactory builds the camera for a new session and the feed frames arrive on.
type CameraFactory func() (domain.Camera, FrameFeed)

type sessionEntry struct {
	session  *usecase.Session
	feed     FrameFeed
	lastSeen time.Time
}

// SessionStore maps the session cookie to workflow state. Sessions idle longer than
// the TTL are closed and forgotten.
type SessionStore struct {
	uc          *usecase.InspectionUseCase
	newCamera   CameraFactory
	decoder     *usecase.FrameDecoder
	scannerOpts usecase.ScannerOptions
	ttl         time.Duration
	now         func() time.Time
	log         log.Interface

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewSessionStore(uc *usecase.InspectionUseCase, newCamera CameraFactory, decoder *usecase.FrameDecoder, scannerOpts usecase.ScannerOptions, ttl time.Duration, logger log.Interface) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{
		uc:          uc,
		newCamera:   newCamera,
		decoder:     decoder,
		scannerOpts: scannerOpts,
		ttl:         ttl,
		now:         time.Now,
		log:         logger,
		sessions:    make(map[string]*sessionEntry),
	}
}

// Get returns the caller's session, creating one (and loading its inspection
// history) when the cookie is missing or stale.
func (st *SessionStore) Get(w http.ResponseWriter, r *http.Request) (*usecase.Session, FrameFeed) {
	now := st.now()
	st.sweep(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		st.mu.Lock()
		e, ok := st.sessions[c.Value]
		if ok {
			e.lastSeen = now
		}
		st.mu.Unlock()
		if ok {
			return e.session, e.feed
		}
	}

	id := uuid.New().String()
	camera, feed := st.newCamera()
	scanner := usecase.NewScanner(camera, st.decoder, st.scannerOpts, st.log.WithField("session", id))
	sess := st.uc.NewSession(id, scanner)
	st.uc.LoadInspections(r.Context(), sess)

	st.mu.Lock()
	st.sessions[id] = &sessionEntry{session: sess, feed: feed, lastSeen: now}
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	st.log.WithField("session", id).Info("session started")
	return sess, feed
}

func (st *SessionStore) sweep(now time.Time) {
	var expired []*usecase.Session
	st.mu.Lock()
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.ttl {
			expired = append(expired, e.session)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		st.uc.Close(s)
		st.log.WithField("session", s.ID).Info("session expired")
	}
}

// Len is the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// CloseAll stops every session, for shutdown.
func (st *SessionStore) CloseAll(ctx context.Context) {
	st.mu.Lock()
	entries := st.sessions
	st.sessions = make(map[string]*sessionEntry)
	st.mu.Unlock()
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		st.uc.Close(e.session)
	}
}
