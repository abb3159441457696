package usecase

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// DisplayTimeLayout matches the en-US "Jan 2, 2006, 3:04 PM" style used on every screen.
const DisplayTimeLayout = "Jan 2, 2006, 3:04 PM"

type HistoryRow struct {
	EquipmentID   string
	Result        domain.Result
	BadgeClass    string
	InspectorName string
	Date          string
	Age           string
}

type HistoryView struct {
	Empty bool
	Rows  []HistoryRow
}

type Stats struct {
	Today int
	Total int
}

// SortByNewest returns a copy of list ordered most recent first.
func SortByNewest(list []domain.Inspection) []domain.Inspection {
	sorted := make([]domain.Inspection, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InspectedAt.After(sorted[j].InspectedAt.Time)
	})
	return sorted
}

// BuildHistory derives the history list; now is used for relative ages and its
// location for displayed dates.
func BuildHistory(list []domain.Inspection, now time.Time) HistoryView {
	if len(list) == 0 {
		return HistoryView{Empty: true}
	}
	sorted := SortByNewest(list)
	rows := make([]HistoryRow, 0, len(sorted))
	for _, insp := range sorted {
		badge := "badge-service"
		if insp.Result == domain.ResultPass {
			badge = "badge-good"
		}
		row := HistoryRow{
			EquipmentID:   insp.EquipmentID,
			Result:        insp.Result,
			BadgeClass:    badge,
			InspectorName: insp.InspectorName,
			Date:          "-",
		}
		if !insp.InspectedAt.IsZero() {
			row.Date = insp.InspectedAt.In(now.Location()).Format(DisplayTimeLayout)
			row.Age = humanize.RelTime(insp.InspectedAt.Time, now, "ago", "from now")
		}
		rows = append(rows, row)
	}
	return HistoryView{Rows: rows}
}

// ComputeStats counts inspections on now's calendar day, in now's location.
func ComputeStats(list []domain.Inspection, now time.Time) Stats {
	y, m, d := now.Date()
	loc := now.Location()
	today := 0
	for _, insp := range list {
		if insp.InspectedAt.IsZero() {
			continue
		}
		iy, im, id := insp.InspectedAt.In(loc).Date()
		if iy == y && im == m && id == d {
			today++
		}
	}
	return Stats{Today: today, Total: len(list)}
}
