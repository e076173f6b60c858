// Package report renders point-in-time fleet snapshots as downloadable
// documents.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fleet "fleet-hub/internal/fleet/domain"
)

// BuildFleetXLSX renders a snapshot as a workbook with one sheet per
// collection.
func BuildFleetXLSX(snap fleet.Snapshot, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	devicesSheet := "devices"
	modelsSheet := "models"
	sessionsSheet := "sessions"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(devicesSheet)
	f.NewSheet(modelsSheet)
	f.NewSheet(sessionsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Fleet Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", generatedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Devices")
	_ = f.SetCellValue(summarySheet, "B4", len(snap.Devices))
	_ = f.SetCellValue(summarySheet, "A5", "Models")
	_ = f.SetCellValue(summarySheet, "B5", len(snap.Models))
	_ = f.SetCellValue(summarySheet, "A6", "Sessions")
	_ = f.SetCellValue(summarySheet, "B6", len(snap.Sessions))
	_ = f.SetCellValue(summarySheet, "A7", "Active Sessions")
	_ = f.SetCellValue(summarySheet, "B7", activeCount(snap))

	_ = f.SetCellValue(devicesSheet, "A1", "ID")
	_ = f.SetCellValue(devicesSheet, "B1", "Name")
	_ = f.SetCellValue(devicesSheet, "C1", "Status")
	_ = f.SetCellValue(devicesSheet, "D1", "Last Seen")
	for i, dev := range sortedDevices(snap) {
		row := i + 2
		_ = f.SetCellValue(devicesSheet, fmt.Sprintf("A%d", row), dev.ID)
		_ = f.SetCellValue(devicesSheet, fmt.Sprintf("B%d", row), dev.Name)
		_ = f.SetCellValue(devicesSheet, fmt.Sprintf("C%d", row), string(dev.Status))
		_ = f.SetCellValue(devicesSheet, fmt.Sprintf("D%d", row), dev.LastSeen.Format(time.RFC3339))
	}

	_ = f.SetCellValue(modelsSheet, "A1", "ID")
	_ = f.SetCellValue(modelsSheet, "B1", "Name")
	_ = f.SetCellValue(modelsSheet, "C1", "Backend")
	_ = f.SetCellValue(modelsSheet, "D1", "Loaded")
	_ = f.SetCellValue(modelsSheet, "E1", "Path")
	for i, m := range sortedModels(snap) {
		row := i + 2
		_ = f.SetCellValue(modelsSheet, fmt.Sprintf("A%d", row), m.ID)
		_ = f.SetCellValue(modelsSheet, fmt.Sprintf("B%d", row), m.Name)
		_ = f.SetCellValue(modelsSheet, fmt.Sprintf("C%d", row), string(m.Backend))
		_ = f.SetCellValue(modelsSheet, fmt.Sprintf("D%d", row), m.Loaded)
		_ = f.SetCellValue(modelsSheet, fmt.Sprintf("E%d", row), m.Path)
	}

	_ = f.SetCellValue(sessionsSheet, "A1", "ID")
	_ = f.SetCellValue(sessionsSheet, "B1", "Device")
	_ = f.SetCellValue(sessionsSheet, "C1", "Model")
	_ = f.SetCellValue(sessionsSheet, "D1", "Started")
	_ = f.SetCellValue(sessionsSheet, "E1", "Ended")
	for i, s := range sortedSessions(snap) {
		row := i + 2
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("A%d", row), s.ID)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("B%d", row), s.DeviceID)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("C%d", row), s.ModelID)
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("D%d", row), s.StartedAt.Format(time.RFC3339))
		_ = f.SetCellValue(sessionsSheet, fmt.Sprintf("E%d", row), endedLabel(s))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildFleetPDF renders a snapshot as a minimal PDF report.
func BuildFleetPDF(snap fleet.Snapshot, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fleet Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Devices: %d  Models: %d  Sessions: %d (%d active)",
		len(snap.Devices), len(snap.Models), len(snap.Sessions), activeCount(snap)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Last Seen", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, dev := range sortedDevices(snap) {
		pdf.CellFormat(50, 6, dev.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, string(dev.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, dev.LastSeen.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Session", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Model", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Ended", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range sortedSessions(snap) {
		pdf.CellFormat(50, 6, s.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, s.DeviceID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, s.ModelID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, endedLabel(s), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func activeCount(snap fleet.Snapshot) int {
	n := 0
	for _, s := range snap.Sessions {
		if s.Active() {
			n++
		}
	}
	return n
}

func sortedDevices(snap fleet.Snapshot) []fleet.Device {
	out := make([]fleet.Device, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedModels(snap fleet.Snapshot) []fleet.Model {
	out := make([]fleet.Model, 0, len(snap.Models))
	for _, m := range snap.Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedSessions(snap fleet.Snapshot) []fleet.Session {
	out := make([]fleet.Session, 0, len(snap.Sessions))
	for _, s := range snap.Sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func endedLabel(s fleet.Session) string {
	if s.EndedAt == nil {
		return "active"
	}
	return s.EndedAt.Format(time.RFC3339)
}
