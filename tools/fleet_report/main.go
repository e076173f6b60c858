// fleet_report pulls the current snapshot from a running hub and writes
// XLSX and PDF fleet reports.
//
// Usage:
//
//	go run ./tools/fleet_report -hub http://localhost:8080 -out var/reports
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/report"
)

func main() {
	hubURL := flag.String("hub", "http://localhost:8080", "base URL of the hub")
	outDir := flag.String("out", "var/reports", "output directory")
	flag.Parse()

	if err := run(*hubURL, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "fleet_report: %v\n", err)
		os.Exit(1)
	}
}

func run(hubURL, outDir string) error {
	snap, err := fetchSnapshot(hubURL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	now := time.Now().UTC()
	stamp := now.Format("20060102-150405")

	xlsx, err := report.BuildFleetXLSX(snap, now)
	if err != nil {
		return fmt.Errorf("build xlsx: %w", err)
	}
	xlsxPath := filepath.Join(outDir, "fleet-"+stamp+".xlsx")
	if err := os.WriteFile(xlsxPath, xlsx, 0o644); err != nil {
		return err
	}

	pdf, err := report.BuildFleetPDF(snap, now)
	if err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	pdfPath := filepath.Join(outDir, "fleet-"+stamp+".pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s\nwrote %s\n", xlsxPath, pdfPath)
	return nil
}

func fetchSnapshot(hubURL string) (fleet.Snapshot, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(hubURL + "/api/v1/state")
	if err != nil {
		return fleet.Snapshot{}, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fleet.Snapshot{}, fmt.Errorf("fetch state: status %d", resp.StatusCode)
	}

	var snap fleet.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fleet.Snapshot{}, fmt.Errorf("decode state: %w", err)
	}
	return snap, nil
}
