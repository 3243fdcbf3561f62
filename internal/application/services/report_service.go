package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/repositories"
	"github.com/medicrew/backend/internal/infrastructure/observability"
	apperrors "github.com/medicrew/backend/pkg/errors"
)

const (
	reportFont       = "DejaVu"
	reportTextWidth  = 500
	reportPageBottom = 780
)

// fallbackFontPaths are tried after the configured font path
var fallbackFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
}

// reportSection is one headed block of the case report
type reportSection struct {
	Heading string
	Lines   []string
}

// ReportService renders symptom checks as PDF case reports
type ReportService struct {
	checks   repositories.SymptomCheckRepository
	notes    repositories.DoctorNoteRepository
	fontPath string
}

// NewReportService creates a new report service. fontPath names a TTF font;
// common DejaVu install locations are tried when it cannot be loaded.
func NewReportService(checks repositories.SymptomCheckRepository, notes repositories.DoctorNoteRepository, fontPath string) *ReportService {
	return &ReportService{checks: checks, notes: notes, fontPath: fontPath}
}

// WriteCaseReport writes the PDF report for a symptom check to w
func (s *ReportService) WriteCaseReport(ctx context.Context, symptomCheckID string, w io.Writer) error {
	check, err := s.checks.GetByID(ctx, symptomCheckID)
	if err != nil {
		return err
	}
	notes, err := s.notes.ListBySymptomCheck(ctx, symptomCheckID)
	if err != nil {
		return fmt.Errorf("failed to list doctor notes: %w", err)
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := s.loadFont(&pdf); err != nil {
		return err
	}

	if err := pdf.SetFont(reportFont, "", 18); err != nil {
		return err
	}
	if err := pdf.Cell(nil, "MediCrew Case Report"); err != nil {
		return err
	}
	pdf.Br(28)

	for _, section := range caseReportSections(check, notes) {
		if err := writeSection(&pdf, section); err != nil {
			return err
		}
	}

	if err := pdf.SetFont(reportFont, "", 8); err != nil {
		return err
	}
	if err := writeWrapped(&pdf, entities.CareDisclaimer, 10); err != nil {
		return err
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	observability.LoggerFromContext(ctx).Debug().Str("symptom_check_id", symptomCheckID).Msg("case report rendered")
	return nil
}

func (s *ReportService) loadFont(pdf *gopdf.GoPdf) error {
	paths := append([]string{s.fontPath}, fallbackFontPaths...)
	var lastErr error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := pdf.AddTTFFont(reportFont, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return apperrors.NewMisconfiguredError("report font is not available", lastErr)
}

func writeSection(pdf *gopdf.GoPdf, section reportSection) error {
	if err := pdf.SetFont(reportFont, "", 13); err != nil {
		return err
	}
	if err := writeWrapped(pdf, section.Heading, 16); err != nil {
		return err
	}
	if err := pdf.SetFont(reportFont, "", 10); err != nil {
		return err
	}
	for _, line := range section.Lines {
		if err := writeWrapped(pdf, line, 13); err != nil {
			return err
		}
	}
	pdf.Br(10)
	return nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string, lineHeight float64) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines, err := pdf.SplitText(text, reportTextWidth)
	if err != nil {
		return fmt.Errorf("failed to wrap report text: %w", err)
	}
	for _, line := range lines {
		if pdf.GetY() > reportPageBottom {
			pdf.AddPage()
		}
		if err := pdf.Cell(nil, line); err != nil {
			return err
		}
		pdf.Br(lineHeight)
	}
	return nil
}

// caseReportSections lays out the report content
func caseReportSections(check *entities.SymptomCheck, notes []*entities.DoctorNote) []reportSection {
	a := check.AIAssessment
	sections := []reportSection{
		{
			Heading: "Patient",
			Lines: []string{
				"Name: " + check.PatientName,
				"Submitted: " + check.CreatedAt.Format("02 Jan 2006 15:04 MST"),
				"Status: " + string(check.Status),
			},
		},
		{
			Heading: "Presentation",
			Lines: []string{
				"Symptoms: " + strings.Join(check.Symptoms, ", "),
				"Duration: " + orNone(check.Duration),
				"Additional information: " + orNone(check.AdditionalInfo),
			},
		},
		{
			Heading: "AI Assessment",
			Lines: append([]string{
				fmt.Sprintf("Urgency: %s (confidence %d%%)", a.UrgencyLevel, a.Confidence),
				"Recommended action: " + a.RecommendedAction,
				"Reasoning: " + a.Reasoning,
			}, bullets("Possible condition", a.PossibleConditions)...),
		},
	}

	if len(notes) == 0 {
		sections = append(sections, reportSection{Heading: "Doctor Notes", Lines: []string{"No doctor notes yet."}})
		return sections
	}
	for _, note := range notes {
		lines := []string{"Diagnosis: " + note.Diagnosis}
		if note.Treatment != "" {
			lines = append(lines, "Treatment: "+note.Treatment)
		}
		if note.Notes != "" {
			lines = append(lines, "Notes: "+note.Notes)
		}
		sections = append(sections, reportSection{
			Heading: fmt.Sprintf("Note from %s (%s)", note.DoctorName, note.CreatedAt.Format(time.DateOnly)),
			Lines:   lines,
		})
	}
	return sections
}

func bullets(label string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprintf("- %s: %s", label, v))
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
