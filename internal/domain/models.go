package domain

import (
	"context"
	"encoding/json"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Text is a spreadsheet cell value. The backend emits strings for most cells but
// plain numbers for cells the sheet formats as numeric (sizes, ids).
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

type ExtinguisherStatus string

const (
	StatusGood        ExtinguisherStatus = "Good"
	StatusNeedService ExtinguisherStatus = "Need Service"
	StatusExpired     ExtinguisherStatus = "Expired"
)

// Extinguisher is read-only on our side; it is whatever the backend says it is.
type Extinguisher struct {
	ID             Text               `json:"id"`
	Location       Text               `json:"location"`
	Type           Text               `json:"type"`
	Size           Text               `json:"size"`
	LastInspection Text               `json:"lastInspection"`
	Expiry         Text               `json:"expiry"`
	ExpiryDate     Text               `json:"expiryDate"`
	Status         ExtinguisherStatus `json:"status"`
}

// ExpiresOn returns the expiry cell, whichever of the two column names the sheet uses.
func (e *Extinguisher) ExpiresOn() string {
	if e.Expiry != "" {
		return string(e.Expiry)
	}
	return string(e.ExpiryDate)
}

type Result string

const (
	ResultPass Result = "Pass"
	ResultFail Result = "Fail"
)

// Timestamp marshals as RFC 3339 and accepts the handful of layouts the
// spreadsheet backend has been seen to echo back.
type Timestamp struct {
	time.Time
}

// Layouts marked local carry no zone and are read in time.Local, the configured
// timezone.
var timestampLayouts = []struct {
	layout string
	local  bool
}{
	{layout: time.RFC3339Nano},
	{layout: "2006-01-02T15:04:05.000Z"},
	{layout: "2006-01-02 15:04:05", local: true},
	{layout: "2006-01-02", local: true},
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// epoch milliseconds
		ms, perr := strconv.ParseInt(string(data), 10, 64)
		if perr != nil {
			return err
		}
		t.Time = time.UnixMilli(ms)
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, l := range timestampLayouts {
		loc := time.UTC
		if l.local {
			loc = time.Local
		}
		parsed, err := time.ParseInLocation(l.layout, s, loc)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Inspection is one completed checklist pass, in the backend's wire shape.
type Inspection struct {
	InspectedAt   Timestamp `json:"inspection_date"`
	EquipmentID   string    `json:"equipment_id"`
	InspectorName string    `json:"inspector_name"`
	PressureOK    Answer    `json:"pressure_ok"`
	NoDamage      Answer    `json:"no_damage"`
	SealIntact    Answer    `json:"seal_intact"`
	LabelReadable Answer    `json:"label_readable"`
	WeightOK      Answer    `json:"weight_ok"`
	HoseOK        Answer    `json:"hose_ok"`
	ExpiryValid   Answer    `json:"expiry_valid"`
	Remarks       string    `json:"remarks"`
	Result        Result    `json:"result"`
}

// Submission is a journal entry for one submit attempt.
type Submission struct {
	ID            uuid.UUID
	SessionID     string
	EquipmentID   string
	InspectorName string
	Result        Result
	Accepted      bool
	Payload       []byte
	AttemptedAt   time.Time
}

// Gateway is the spreadsheet-backed service. Implementations never return errors;
// a failure looks like "absent", "empty" or "not accepted".
type Gateway interface {
	FetchExtinguisher(ctx context.Context, id string) (*Extinguisher, bool)
	FetchInspections(ctx context.Context) []Inspection
	SubmitInspection(ctx context.Context, record Inspection) bool
}

type Facing string

const (
	FacingRear  Facing = "environment"
	FacingFront Facing = "user"
)

// Camera hands out live frame sources.
type Camera interface {
	Open(ctx context.Context, facing Facing) (FrameSource, error)
}

// FrameSource yields the newest full frame, if one is available yet.
type FrameSource interface {
	Frame() (image.Image, bool)
	Close() error
}

// Decoder recovers a QR payload from an RGBA pixel buffer.
type Decoder interface {
	Decode(pix []byte, width, height int) (string, bool)
}

// LabelReader reads an equipment id printed on the unit's label.
type LabelReader interface {
	ReadLabel(imageBytes []byte) (string, error)
}

type SubmissionJournal interface {
	Record(ctx context.Context, s *Submission) error
	List(ctx context.Context, limit int) ([]Submission, error)
}

type FileStorage interface {
	Upload(ctx context.Context, bucket, key string, data []byte) (string, error)
	GetURL(ctx context.Context, bucket, key string) (string, error)
}
