// Package reporting renders capture sessions to PDF and exports
// handshake frames to pcap files for offline cracking tools.
package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/chimera-red/chimera/internal/core/domain"
)

// SessionReport is the input for a session PDF: what was seen on the
// air and what was captured.
type SessionReport struct {
	GeneratedAt time.Time
	Interface   string
	Stats       domain.StatsSnapshot
	Networks    []domain.ScanResult
	Handshakes  []domain.Handshake
}

// PDFExporter renders capture session reports to PDF.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportSession generates a PDF summarizing one capture session.
func (e *PDFExporter) ExportSession(report *SessionReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addStatistics(pdf, report)
	e.addNetworks(pdf, report)
	e.addHandshakes(pdf, report)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report *SessionReport) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "Capture Session Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	if report.Interface != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Interface: %s", report.Interface), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *SessionReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Capture Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Frames Seen", fmt.Sprintf("%d", report.Stats.FramesSeen), []int{0, 102, 204}},
		{"EAPOL Message 1", fmt.Sprintf("%d", report.Stats.Message1), []int{255, 149, 0}},
		{"EAPOL Message 2", fmt.Sprintf("%d", report.Stats.Message2), []int{255, 149, 0}},
		{"Handshakes Completed", fmt.Sprintf("%d", report.Stats.Completed), []int{52, 199, 89}},
		{"Networks Observed", fmt.Sprintf("%d", len(report.Networks)), []int{0, 102, 204}},
	}

	// Two column layout
	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(12)
}

func (e *PDFExporter) addNetworks(pdf *gofpdf.Fpdf, report *SessionReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Observed Networks", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.Networks) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No networks recorded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(55, 8, "SSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "BSSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Ch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "RSSI", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Security", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, n := range report.Networks {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		ssid := n.SSID
		if ssid == "" {
			ssid = "<hidden>"
		}
		if len(ssid) > 30 {
			ssid = ssid[:27] + "..."
		}
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(55, 7, ssid, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, n.BSSID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", n.Channel), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d dBm", n.RSSI), "1", 0, "C", false, 0, "")

		r, g, b := e.getSecurityColor(n.Encryption)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(25, 7, n.Encryption, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

// getSecurityColor returns RGB color based on security mode
func (e *PDFExporter) getSecurityColor(security string) (r, g, b int) {
	switch security {
	case "OPEN", "WEP":
		return 220, 53, 69 // Red
	case "WPA":
		return 255, 149, 0 // Orange
	default:
		return 52, 199, 89 // Green
	}
}

func (e *PDFExporter) addHandshakes(pdf *gofpdf.Fpdf, report *SessionReport) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Captured Handshakes", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(report.Handshakes) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No handshakes captured", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)

	pdf.CellFormat(45, 8, "Access Point", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Station", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Ch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Captured", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	for _, hs := range report.Handshakes {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		descType := "WPA2"
		if hs.KeyDescType == 0xFE {
			descType = "WPA"
		}
		pdf.CellFormat(45, 7, hs.BSSID.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, hs.Station.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", hs.Channel), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, descType, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, hs.Timestamp.Format("15:04:05"), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *SessionReport) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, "Generated by chimera", "", 1, "C", false, 0, "")
}
