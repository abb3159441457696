package usecase

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

func TestExportHistoryCSV(t *testing.T) {
	uc := NewReportUseCase(time.UTC)
	older := inspectionAt("EXT-1001", testNow.AddDate(0, 0, -1), domain.ResultPass)
	newer := inspectionAt("EXT-1007", testNow, domain.ResultFail)
	newer.SetAnswer(domain.QuestionHose, domain.AnswerNo)
	newer.Remarks = "hose, cracked"

	data, err := uc.ExportHistoryCSV([]domain.Inspection{older, newer})
	if err != nil {
		t.Fatalf("ExportHistoryCSV() error = %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}

	header := rows[0]
	if header[0] != "Inspection Date" || header[3] != "pressure" || header[len(header)-1] != "Result" {
		t.Errorf("header = %v", header)
	}
	if rows[1][1] != "EXT-1007" || rows[2][1] != "EXT-1001" {
		t.Errorf("rows not newest first: %s, %s", rows[1][1], rows[2][1])
	}
	if rows[1][0] != "2026-10-14T09:30:00Z" {
		t.Errorf("date = %q", rows[1][0])
	}
	if rows[1][8] != "no" || rows[1][10] != "hose, cracked" || rows[1][11] != "Fail" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestExportInspectionPDF(t *testing.T) {
	uc := NewReportUseCase(time.UTC)
	rec := inspectionAt("EXT-1007", testNow, domain.ResultPass)
	rec.Remarks = "all good"

	data, err := uc.ExportInspectionPDF(rec)
	if err != nil {
		t.Fatalf("ExportInspectionPDF() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a pdf")
	}
}
