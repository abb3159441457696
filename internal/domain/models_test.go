package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in      string
		want    Answer
		wantErr bool
	}{
		{in: "yes", want: AnswerYes},
		{in: "YES", want: AnswerYes},
		{in: " No ", want: AnswerNo},
		{in: "na", want: AnswerNA},
		{in: "N/A", want: AnswerNA},
		{in: "", wantErr: true},
		{in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAnswer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAnswer(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAnswer(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtinguisherDecoding(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantSize   string
		wantExpiry string
	}{
		{name: "String cells", body: `{"id":"EXT-1","size":"6 kg","expiry":"2027-01-31"}`, wantSize: "6 kg", wantExpiry: "2027-01-31"},
		{name: "Numeric cell", body: `{"id":"EXT-1","size":6,"expiryDate":"2027-02-28"}`, wantSize: "6", wantExpiry: "2027-02-28"},
		{name: "Null cell", body: `{"id":"EXT-1","size":null}`, wantSize: "", wantExpiry: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ext Extinguisher
			if err := json.Unmarshal([]byte(tt.body), &ext); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if string(ext.Size) != tt.wantSize || ext.ExpiresOn() != tt.wantExpiry {
				t.Errorf("size = %q expiry = %q", ext.Size, ext.ExpiresOn())
			}
		})
	}
}

func TestTimestampDecoding(t *testing.T) {
	want := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		body string
		want time.Time
	}{
		{name: "RFC3339", body: `"2026-10-14T09:30:00Z"`, want: want},
		{name: "Milliseconds", body: `"2026-10-14T09:30:00.000Z"`, want: want},
		{name: "Epoch millis", body: `1791970200000`, want: want},
		{name: "Empty", body: `""`, want: time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.body), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.body, err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.Time, tt.want)
			}
		})
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Errorf("unparseable timestamp accepted")
	}
}

func TestInspectionWireFormat(t *testing.T) {
	rec := Inspection{
		InspectedAt:   Timestamp{Time: time.Date(2026, 10, 14, 16, 30, 0, 0, time.FixedZone("UTC+7", 7*60*60))},
		EquipmentID:   "EXT-1007",
		InspectorName: "J. Lee",
		Result:        ResultPass,
	}
	for _, q := range Questions {
		rec.SetAnswer(q, AnswerYes)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	for _, want := range []string{
		`"inspection_date":"2026-10-14T09:30:00Z"`,
		`"pressure_ok":"yes"`, `"no_damage":"yes"`, `"seal_intact":"yes"`, `"label_readable":"yes"`,
		`"weight_ok":"yes"`, `"hose_ok":"yes"`, `"expiry_valid":"yes"`,
		`"result":"Pass"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("encoded record %s missing %s", body, want)
		}
	}
}

func TestScreenElement(t *testing.T) {
	if ScreenProfile.Element() != "home-screen" {
		t.Errorf("profile element = %q", ScreenProfile.Element())
	}
	if Screen("settings").IsValid() {
		t.Errorf("unknown screen reported valid")
	}
}

func TestAnswerDecoding(t *testing.T) {
	tests := []struct {
		body string
		want Answer
	}{
		{body: `"yes"`, want: AnswerYes},
		{body: `"YES"`, want: AnswerYes},
		{body: `"No"`, want: AnswerNo},
		{body: `"N/A"`, want: AnswerNA},
		{body: `""`, want: AnswerNone},
		{body: `null`, want: AnswerNone},
		{body: `"unsure"`, want: AnswerNone},
		{body: `true`, want: AnswerNone},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var rec Inspection
			if err := json.Unmarshal([]byte(`{"equipment_id":"EXT-1","pressure_ok":`+tt.body+`}`), &rec); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if rec.PressureOK != tt.want {
				t.Errorf("pressure_ok %s decoded as %q, want %q", tt.body, rec.PressureOK, tt.want)
			}
		})
	}
}

func TestZonelessTimestampsUseLocalTime(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("UTC+7", 7*60*60)
	defer func() { time.Local = saved }()

	tests := []struct {
		body string
		want time.Time
	}{
		{body: `"2026-10-14 00:30:00"`, want: time.Date(2026, 10, 13, 17, 30, 0, 0, time.UTC)},
		{body: `"2026-10-14"`, want: time.Date(2026, 10, 13, 17, 0, 0, 0, time.UTC)},
		{body: `"2026-10-14T00:30:00Z"`, want: time.Date(2026, 10, 14, 0, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.body), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.body, err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("got %v, want %v", ts.UTC(), tt.want)
			}
		})
	}
}
