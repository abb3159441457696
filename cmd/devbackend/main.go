package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/backendsim"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
)

// devbackend serves the inspection backend contract from memory, seeded with a
// handful of extinguishers, so the server can run without the spreadsheet.
func main() {
	addr := flag.String("addr", ":8090", "listen address")
	reject := flag.Bool("reject", false, "answer every submission with success:false")
	flag.Parse()
	log.SetHandler(text.New(os.Stderr))

	backend := backendsim.New(seedExtinguishers()...)
	backend.SetRejectSubmissions(*reject)
	for _, rec := range seedInspections(time.Now()) {
		backend.AddInspection(rec)
	}

	mux := http.NewServeMux()
	mux.Handle("/exec", backend)

	log.WithFields(log.Fields{"addr": *addr, "reject": *reject}).Info("dev backend listening on /exec")
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.WithError(err).Fatal("error listening")
	}
}

func seedExtinguishers() []domain.Extinguisher {
	return []domain.Extinguisher{
		{ID: "EXT-1001", Location: "Lobby, North Entrance", Type: "CO2", Size: "5 kg", LastInspection: "2026-08-12", Expiry: "2028-03-31", Status: domain.StatusGood},
		{ID: "EXT-1002", Location: "Kitchen", Type: "Wet Chemical", Size: "6 L", LastInspection: "2026-07-02", Expiry: "2027-06-30", Status: domain.StatusGood},
		{ID: "EXT-1003", Location: "Server Room", Type: "CO2", Size: "2 kg", LastInspection: "2026-01-20", ExpiryDate: "2026-11-30", Status: domain.StatusNeedService},
		{ID: "EXT-1004", Location: "Loading Dock", Type: "Dry Chemical", Size: "9 kg", LastInspection: "2025-04-18", Expiry: "2026-04-30", Status: domain.StatusExpired},
		{ID: "EXT-1007", Location: "Warehouse B, Bay 3", Type: "Dry Chemical", Size: "6 kg", LastInspection: "2026-09-01", Expiry: "2027-01-31", Status: domain.StatusGood},
	}
}

func seedInspections(now time.Time) []domain.Inspection {
	yes := domain.AnswerYes
	return []domain.Inspection{
		{
			InspectedAt: domain.Timestamp{Time: now.AddDate(0, 0, -1)}, EquipmentID: "EXT-1001", InspectorName: "A. Kim",
			PressureOK: yes, NoDamage: yes, SealIntact: yes, LabelReadable: yes, WeightOK: yes, HoseOK: yes, ExpiryValid: yes,
			Result: domain.ResultPass,
		},
		{
			InspectedAt: domain.Timestamp{Time: now.AddDate(0, 0, -3)}, EquipmentID: "EXT-1003", InspectorName: "A. Kim",
			PressureOK: domain.AnswerNo, NoDamage: yes, SealIntact: yes, LabelReadable: yes, WeightOK: yes, HoseOK: domain.AnswerNA, ExpiryValid: yes,
			Remarks: "Gauge below green zone", Result: domain.ResultFail,
		},
	}
}
