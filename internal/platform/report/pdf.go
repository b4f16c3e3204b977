// Package report renders ICU sessions as downloadable PDF case reports.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
)

const (
	ContentType = "application/pdf"

	pageWidth   = 210.0
	marginLeft  = 20.0
	marginRight = 20.0
	bodyWidth   = pageWidth - marginLeft - marginRight
	labelWidth  = 45.0
)

// PDFRenderer implements icu.ReportRenderer with gofpdf core fonts.
type PDFRenderer struct {
	Author string
}

var _ icu.ReportRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Author: "ICU Emergency Simulator"}
}

func (r *PDFRenderer) ContentType() string { return ContentType }

// FileName returns <patient-id>_case_<id>_report.pdf.
func (r *PDFRenderer) FileName(s icu.SessionResult) string {
	return FileName(s)
}

func (r *PDFRenderer) Render(w io.Writer, s icu.SessionResult, generatedAt time.Time) error {
	return WritePDF(w, s, generatedAt, r.Author)
}

func FileName(s icu.SessionResult) string {
	id := s.Patient.ID
	if id == "" {
		id = "patient"
	}
	return fmt.Sprintf("%s_case_%d_report.pdf", id, s.CaseID)
}

// WritePDF writes an A4 case report. Sessions without vitals or protocol are
// rejected with *icu.UnknownCaseError.
func WritePDF(w io.Writer, s icu.SessionResult, generatedAt time.Time, author string) error {
	if !s.Exportable() {
		return &icu.UnknownCaseError{CaseID: s.CaseID}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, 20, marginRight)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(generatedAt)
	pdf.SetTitle("ICU Case Report - "+s.Patient.ID, true)
	pdf.SetAuthor(author, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	name := s.Patient.Name
	if name == "" {
		name = s.Patient.ID
	}
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(bodyWidth, 10, tr("ICU Case Report - "+name), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(bodyWidth, 6, "Generated "+generatedAt.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, tr, "Patient")
	field(pdf, tr, "Patient ID", s.Patient.ID)
	field(pdf, tr, "Age", strconv.Itoa(s.Patient.Age))
	field(pdf, tr, "Diabetic", yesNo(s.Patient.Diabetic))
	field(pdf, tr, "History", s.Patient.History)
	pdf.Ln(4)

	section(pdf, tr, s.Protocol.Title)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(bodyWidth, 6, tr(s.Protocol.Explanation), "", "L", false)
	field(pdf, tr, "Topic", s.Protocol.Topic)
	if s.Protocol.Critical {
		pdf.SetTextColor(180, 0, 0)
		field(pdf, tr, "Priority", "CRITICAL")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(bodyWidth, 7, "Actions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for i, a := range s.Protocol.Actions {
		pdf.MultiCell(bodyWidth, 6, tr(fmt.Sprintf("%d. %s", i+1, a)), "", "L", false)
	}
	pdf.Ln(4)

	section(pdf, tr, "Vitals")
	field(pdf, tr, "Heart Rate", fmt.Sprintf("%d bpm", s.Vitals.HeartRate))
	field(pdf, tr, "Oxygen", fmt.Sprintf("%d %%", s.Vitals.Oxygen))
	field(pdf, tr, "Glucose", fmt.Sprintf("%d mg/dL", s.Vitals.Glucose))
	field(pdf, tr, "Movement", yesNo(s.Vitals.Movement))
	pdf.Ln(4)

	section(pdf, tr, "Risk Assessment")
	field(pdf, tr, "Risk Level", fmt.Sprintf("%s (%d/3)", s.Risk.Label(), int(s.Risk)))

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(bodyWidth, 8, tr(title), "B", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func field(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelWidth, 6, tr(label+":"), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(bodyWidth-labelWidth, 6, tr(value), "", "L", false)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
