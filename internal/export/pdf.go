package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/kalambet/reportlocator/internal/report"
)

// maxPayloadLines caps how much of each payload is printed.
const maxPayloadLines = 400

// PDF writes a one-document evidence sheet for res.
func PDF(w io.Writer, res report.Result) error {
	if res.Report == nil {
		return fmt.Errorf("no report to render")
	}
	rec := res.Report

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("Case Report "+safeText(rec.CaseNumber), false)
	pdf.SetCreator("reportlocator", false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "Case Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, "Generated at: "+time.Now().UTC().Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	sectionTitle(pdf, "Summary")
	kv(pdf, "Case Number", rec.CaseNumber)
	kv(pdf, "Database", res.Database)
	kv(pdf, "Device", rec.DeviceName)
	if !rec.CreatedAt.IsZero() {
		kv(pdf, "Created At", rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	if !rec.ID.IsZero() {
		kv(pdf, "Record ID", rec.ID.Hex())
	}
	if rec.Remark != "" {
		kv(pdf, "Remark", rec.Remark)
	}
	pdf.Ln(2)

	payloads := []struct {
		title string
		value any
	}{
		{"Messages", rec.SMS},
		{"Calls", rec.Calls},
		{"Contacts", rec.Contacts},
	}
	for _, p := range payloads {
		sectionTitle(pdf, p.title)
		payload(pdf, p.value)
		pdf.Ln(2)
	}

	if len(rec.Extra) > 0 {
		sectionTitle(pdf, "Other Fields")
		keys := make([]string, 0, len(rec.Extra))
		for k := range rec.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b, err := json.Marshal(rec.Extra[k])
			if err != nil {
				b = []byte(fmt.Sprintf("%v", rec.Extra[k]))
			}
			kv(pdf, k, string(b))
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 196, pdf.GetY())
	pdf.Ln(2)
}

func kv(pdf *gofpdf.Fpdf, key, value string) {
	if value == "" {
		value = "-"
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(40, 5, safeText(key), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, safeText(value), "", "L", false)
}

func payload(pdf *gofpdf.Fpdf, v any) {
	pdf.SetFont("Courier", "", 8)
	pdf.SetTextColor(40, 40, 40)
	if v == nil {
		pdf.MultiCell(0, 4, "(empty)", "", "L", false)
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		pdf.MultiCell(0, 4, safeText(fmt.Sprintf("%v", v)), "", "L", false)
		return
	}
	lines := strings.Split(string(b), "\n")
	truncated := false
	if len(lines) > maxPayloadLines {
		lines = lines[:maxPayloadLines]
		truncated = true
	}
	for _, line := range lines {
		pdf.MultiCell(0, 4, safeLine(line), "", "L", false)
	}
	if truncated {
		pdf.MultiCell(0, 4, fmt.Sprintf("... truncated after %d lines", maxPayloadLines), "", "L", false)
	}
}

// safeText flattens whitespace and replaces characters the core fonts
// cannot draw.
func safeText(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
	return asciiOnly(strings.TrimSpace(s))
}

// safeLine keeps leading indentation.
func safeLine(s string) string {
	return asciiOnly(strings.ReplaceAll(s, "\t", "  "))
}

func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
