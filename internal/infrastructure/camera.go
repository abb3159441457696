package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

var (
	ErrCameraDenied = errors.New("camera unavailable or permission denied")
	ErrNotStreaming = errors.New("no frame source is open")
)

// FeedCamera is a camera whose frames are pushed by the browser. Open blocks until
// the browser sends its first frame, reports that it could not get a camera, or the
// context ends.
type FeedCamera struct {
	mu      sync.Mutex
	facing  domain.Facing
	pending *feedSource
	ready   chan error
	active  *feedSource
}

func NewFeedCamera() *FeedCamera {
	return &FeedCamera{facing: domain.FacingRear}
}

func (c *FeedCamera) Open(ctx context.Context, facing domain.Facing) (domain.FrameSource, error) {
	c.mu.Lock()
	if c.ready != nil {
		c.ready <- ErrCameraDenied
	}
	src := &feedSource{cam: c}
	ready := make(chan error, 1)
	c.facing = facing
	c.pending = src
	c.ready = ready
	c.mu.Unlock()

	select {
	case err := <-ready:
		if err != nil {
			return nil, err
		}
		return src, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.ready == ready {
			c.pending = nil
			c.ready = nil
		} else if c.active == src {
			c.active = nil
		}
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Facing is the camera the page should ask the browser for.
func (c *FeedCamera) Facing() domain.Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Wanted reports whether a frame source is open or being acquired.
func (c *FeedCamera) Wanted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil || c.active != nil
}

// Push delivers a frame. The first frame after Open completes the acquisition.
func (c *FeedCamera) Push(frame image.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.active = c.pending
		c.pending = nil
		c.ready <- nil
		c.ready = nil
	}
	if c.active == nil {
		return ErrNotStreaming
	}
	c.active.set(frame)
	return nil
}

// PushEncoded decodes a JPEG or PNG still and pushes it.
func (c *FeedCamera) PushEncoded(data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return c.Push(img)
}

// Fail aborts a pending acquisition, as when the browser denies camera access.
func (c *FeedCamera) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready != nil {
		c.ready <- ErrCameraDenied
		c.ready = nil
		c.pending = nil
	}
}

func (c *FeedCamera) detach(src *feedSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == src {
		c.active = nil
	}
}

type feedSource struct {
	cam    *FeedCamera
	mu     sync.Mutex
	latest image.Image
	fresh  bool
	closed bool
}

func (s *feedSource) set(frame image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.latest = frame
	s.fresh = true
}

// Frame returns the newest frame not yet handed out.
func (s *feedSource) Frame() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.fresh {
		return nil, false
	}
	s.fresh = false
	return s.latest, true
}

func (s *feedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.latest = nil
	s.mu.Unlock()
	s.cam.detach(s)
	return nil
}
