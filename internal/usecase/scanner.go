package usecase

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

type ScannerState string

const (
	ScannerIdle      ScannerState = "idle"
	ScannerAcquiring ScannerState = "acquiring"
	ScannerActive    ScannerState = "active"
	ScannerStopped   ScannerState = "stopped"
)

const (
	StatusStartingCamera = "Starting camera..."
	StatusScanning       = "Scanning..."
	StatusCameraError    = "Camera error or permission denied"
)

// DecodeHandler receives a decoded payload and the frame it came from.
type DecodeHandler func(payload string, frame image.Image)

type ScannerOptions struct {
	Interval       time.Duration
	AcquireTimeout time.Duration
}

// Scanner owns the camera for one session: it acquires a frame source, polls it,
// and hands the first decoded payload to the caller.
type Scanner struct {
	camera  domain.Camera
	decoder *FrameDecoder
	opts    ScannerOptions
	log     log.Interface

	mu     sync.Mutex
	state  ScannerState
	status string
	source domain.FrameSource
	cancel context.CancelFunc
	gen    uint64
}

func NewScanner(camera domain.Camera, decoder *FrameDecoder, opts ScannerOptions, logger log.Interface) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	return &Scanner{
		camera:  camera,
		decoder: decoder,
		opts:    opts,
		log:     logger,
		state:   ScannerIdle,
	}
}

// Open tears down any previous stream and starts acquiring a new one. It returns
// immediately; State and Status report progress.
func (s *Scanner) Open(onDecoded DecodeHandler) {
	s.mu.Lock()
	s.stopLocked()
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = ScannerAcquiring
	s.status = StatusStartingCamera
	s.mu.Unlock()

	go s.acquire(ctx, gen, onDecoded)
}

func (s *Scanner) acquire(ctx context.Context, gen uint64, onDecoded DecodeHandler) {
	actx := ctx
	if s.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.opts.AcquireTimeout)
		defer cancel()
	}
	src, err := s.camera.Open(actx, domain.FacingRear)

	s.mu.Lock()
	if gen != s.gen || ctx.Err() != nil {
		s.mu.Unlock()
		if err == nil {
			_ = src.Close()
		}
		return
	}
	if err != nil {
		s.cancel()
		s.cancel = nil
		s.state = ScannerStopped
		s.status = StatusCameraError
		s.mu.Unlock()
		s.log.WithError(err).Warn("camera acquisition failed")
		return
	}
	s.source = src
	s.state = ScannerActive
	s.status = StatusScanning
	s.mu.Unlock()

	s.poll(ctx, gen, src, onDecoded)
}

func (s *Scanner) poll(ctx context.Context, gen uint64, src domain.FrameSource, onDecoded DecodeHandler) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		frame, ok := src.Frame()
		if !ok {
			continue
		}
		payload, found := s.decoder.DecodeFrame(frame)
		if !found {
			continue
		}

		s.mu.Lock()
		if gen != s.gen || ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.stopLocked()
		s.mu.Unlock()

		onDecoded(payload, frame)
		return
	}
}

// Stop releases the camera. Calling it with nothing open does nothing.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scanner) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			s.log.WithError(err).Warn("closing frame source")
		}
		s.source = nil
	}
	if s.state == ScannerAcquiring || s.state == ScannerActive {
		s.state = ScannerStopped
	}
}

func (s *Scanner) State() ScannerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scanner) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scanner) SetStatus(text string) {
	s.mu.Lock()
	s.status = text
	s.mu.Unlock()
}
