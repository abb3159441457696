package usecase

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

var testLogger = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}

type fakeSource struct {
	mu     sync.Mutex
	closed bool
}

func (s *fakeSource) Frame() (image.Image, bool) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), true
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeCamera hands out a new source per Open, fails with err, or blocks until the
// context ends when block is set.
type fakeCamera struct {
	err   error
	block bool

	mu       sync.Mutex
	sources  []*fakeSource
	canceled int
}

func (c *fakeCamera) Open(ctx context.Context, facing domain.Facing) (domain.FrameSource, error) {
	if c.block {
		<-ctx.Done()
		c.mu.Lock()
		c.canceled++
		c.mu.Unlock()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	src := &fakeSource{}
	c.mu.Lock()
	c.sources = append(c.sources, src)
	c.mu.Unlock()
	return src, nil
}

func (c *fakeCamera) source(i int) *fakeSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.sources) {
		return nil
	}
	return c.sources[i]
}

func (c *fakeCamera) canceledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// fakeDecoder finds payload once it has been called more than after times.
type fakeDecoder struct {
	payload string
	after   int32
	calls   int32
}

func (d *fakeDecoder) Decode(pix []byte, width, height int) (string, bool) {
	n := atomic.AddInt32(&d.calls, 1)
	if d.payload == "" || n <= d.after {
		return "", false
	}
	return d.payload, true
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestScanner(cam domain.Camera, dec domain.Decoder) *Scanner {
	return NewScanner(cam, NewFrameDecoder(dec), ScannerOptions{Interval: 5 * time.Millisecond}, testLogger)
}

func TestScannerStopWhenIdle(t *testing.T) {
	s := newTestScanner(&fakeCamera{}, &fakeDecoder{})
	s.Stop()
	s.Stop()
	if s.State() != ScannerIdle {
		t.Errorf("State() = %s, want idle", s.State())
	}
}

func TestScannerDeliversFirstDecodeOnce(t *testing.T) {
	cam := &fakeCamera{}
	s := newTestScanner(cam, &fakeDecoder{payload: "EXT-1007", after: 3})

	var calls int32
	got := make(chan string, 4)
	s.Open(func(payload string, frame image.Image) {
		atomic.AddInt32(&calls, 1)
		got <- payload
	})

	select {
	case p := <-got:
		if p != "EXT-1007" {
			t.Errorf("payload = %q", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no payload decoded")
	}
	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("handler ran %d times, want 1", n)
	}
	if s.State() != ScannerStopped {
		t.Errorf("State() = %s, want stopped", s.State())
	}
	if !cam.source(0).isClosed() {
		t.Errorf("frame source left open after decode")
	}
}

func TestScannerAcquisitionFailure(t *testing.T) {
	s := newTestScanner(&fakeCamera{err: errors.New("denied")}, &fakeDecoder{payload: "EXT-1007"})

	called := make(chan struct{}, 1)
	s.Open(func(string, image.Image) { called <- struct{}{} })

	eventually(t, "stopped state", func() bool { return s.State() == ScannerStopped })
	if s.Status() != StatusCameraError {
		t.Errorf("Status() = %q", s.Status())
	}
	select {
	case <-called:
		t.Errorf("handler ran after a failed acquisition")
	default:
	}
}

func TestScannerOpenReplacesPreviousStream(t *testing.T) {
	cam := &fakeCamera{}
	s := newTestScanner(cam, &fakeDecoder{})

	s.Open(func(string, image.Image) {})
	eventually(t, "first stream", func() bool { return s.State() == ScannerActive && cam.source(0) != nil })

	s.Open(func(string, image.Image) {})
	if !cam.source(0).isClosed() {
		t.Errorf("first stream still open after reopening")
	}
	eventually(t, "second stream", func() bool { return s.State() == ScannerActive && cam.source(1) != nil })
	if s.Status() != StatusScanning {
		t.Errorf("Status() = %q", s.Status())
	}

	s.Stop()
	if !cam.source(1).isClosed() || s.State() != ScannerStopped {
		t.Errorf("Stop() left the stream running")
	}
}

func TestScannerStopDuringAcquisition(t *testing.T) {
	cam := &fakeCamera{block: true}
	s := newTestScanner(cam, &fakeDecoder{})

	s.Open(func(string, image.Image) {})
	if s.State() != ScannerAcquiring || s.Status() != StatusStartingCamera {
		t.Fatalf("state after Open = %s %q", s.State(), s.Status())
	}
	s.Stop()
	if s.State() != ScannerStopped {
		t.Errorf("State() = %s, want stopped", s.State())
	}
	eventually(t, "acquisition canceled", func() bool { return cam.canceledCount() == 1 })
	if s.Status() == StatusCameraError {
		t.Errorf("a canceled acquisition reported a camera error")
	}
}

type recordingDecoder struct {
	width, height, size int
}

func (d *recordingDecoder) Decode(pix []byte, width, height int) (string, bool) {
	d.width, d.height, d.size = width, height, len(pix)
	return "EXT-1", true
}

func TestFrameDecoder(t *testing.T) {
	rec := &recordingDecoder{}
	d := NewFrameDecoder(rec)

	if _, ok := d.DecodeFrame(nil); ok {
		t.Errorf("nil frame decoded")
	}
	if _, ok := d.DecodeFrame(image.NewRGBA(image.Rect(0, 0, 0, 0))); ok {
		t.Errorf("empty frame decoded")
	}

	frame := image.NewGray(image.Rect(10, 10, 14, 12))
	payload, ok := d.DecodeFrame(frame)
	if !ok || payload != "EXT-1" {
		t.Fatalf("DecodeFrame() = %q, %v", payload, ok)
	}
	if rec.width != 4 || rec.height != 2 || rec.size != 4*4*2 {
		t.Errorf("decoder saw %dx%d with %d bytes", rec.width, rec.height, rec.size)
	}
}
