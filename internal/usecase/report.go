package usecase

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// ReportUseCase renders inspections as downloadable documents.
type ReportUseCase struct {
	loc *time.Location
}

func NewReportUseCase(loc *time.Location) *ReportUseCase {
	if loc == nil {
		loc = time.Local
	}
	return &ReportUseCase{loc: loc}
}

func (u *ReportUseCase) ExportHistoryCSV(list []domain.Inspection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Inspection Date", "Equipment ID", "Inspector"}
	for _, q := range domain.Questions {
		header = append(header, string(q))
	}
	header = append(header, "Remarks", "Result")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, insp := range SortByNewest(list) {
		date := ""
		if !insp.InspectedAt.IsZero() {
			date = insp.InspectedAt.In(u.loc).Format(time.RFC3339)
		}
		row := []string{date, insp.EquipmentID, insp.InspectorName}
		answers := insp.Answers()
		for _, q := range domain.Questions {
			row = append(row, string(answers[q]))
		}
		row = append(row, insp.Remarks, string(insp.Result))
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (u *ReportUseCase) ExportInspectionPDF(insp domain.Inspection) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Fire Extinguisher Inspection: %s", insp.EquipmentID))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Inspector: %s", insp.InspectorName))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Date: %s", insp.InspectedAt.In(u.loc).Format(DisplayTimeLayout)))
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Result: %s", insp.Result))
	pdf.Ln(14)

	answers := insp.Answers()
	for _, q := range domain.Questions {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(140, 8, q.Text(), "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(30, 8, answerLabel(answers[q]), "1", 1, "C", false, 0, "")
	}

	if insp.Remarks != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, fmt.Sprintf("Remarks: %s", insp.Remarks), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func answerLabel(a domain.Answer) string {
	switch a {
	case domain.AnswerYes:
		return "YES"
	case domain.AnswerNo:
		return "NO"
	case domain.AnswerNA:
		return "N/A"
	}
	return "-"
}
