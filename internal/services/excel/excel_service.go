package excel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onegreenvn/green-insights-backend/internal/models"
)

// ContentType is the MIME type of the generated workbooks
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service renders analytics results as XLSX workbooks
type Service struct {
	now func() time.Time
}

// NewExcelService creates a new Excel service instance
func NewExcelService() *Service {
	return &Service{now: time.Now}
}

// ExportExperimentResults writes one row per experiment arm plus a summary sheet
func (s *Service) ExportExperimentResults(w io.Writer, results *models.ExperimentResults) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Variants"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	columns := []string{
		"variant_id", "name", "type", "content_count", "total_reach",
		"total_engagement", "avg_engagement_rate", "metric_value", "win_rate", "winner",
	}
	rows := make([][]interface{}, 0, len(results.Variants))
	for _, v := range results.Variants {
		winner := ""
		if results.Winner != nil && results.Winner.VariantID == v.VariantID {
			winner = "yes"
		}
		rows = append(rows, []interface{}{
			v.VariantID, v.Name, v.Type, v.ContentCount, v.TotalReach,
			v.TotalEngagement, v.AvgEngagementRate, v.MetricValue, v.WinRate, winner,
		})
	}
	if err := writeTable(f, sheet, columns, rows); err != nil {
		return err
	}

	summary := [][]interface{}{
		{"experiment_id", results.ExperimentID},
		{"name", results.Name},
		{"status", results.Status},
		{"success_metric", results.SuccessMetric},
		{"is_significant", results.IsSignificant},
		{"reason", results.Reason},
		{"computed_at", results.ComputedAt},
		{"exported_at", s.now().UTC().Format(time.RFC3339)},
	}
	if err := writeSummary(f, "Summary", summary); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// ExportPlaybookEvidence writes the recipe, evidence and source content of a playbook
func (s *Service) ExportPlaybookEvidence(w io.Writer, playbook *models.Playbook, sourceContentIDs []string) error {
	f := excelize.NewFile()
	defer f.Close()

	evidence := playbook.Evidence.Data()
	recipe := playbook.Recipe.Data()

	sheet := "Top performers"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	columns := []string{"content_id", "external_content_id", "caption_prefix", "reach", "engagement_rate"}
	rows := make([][]interface{}, 0, len(evidence.TopPerformers))
	for _, p := range evidence.TopPerformers {
		rows = append(rows, []interface{}{p.ContentID, p.ExternalContentID, p.CaptionPrefix, p.Reach, p.EngagementRate})
	}
	if err := writeTable(f, sheet, columns, rows); err != nil {
		return err
	}

	hours := make([]string, len(recipe.BestHours))
	for i, h := range recipe.BestHours {
		hours[i] = fmt.Sprintf("%02d:00", h)
	}
	summary := [][]interface{}{
		{"playbook_id", playbook.ID},
		{"name", playbook.Name},
		{"format", string(playbook.Format)},
		{"consistency_score", playbook.ConsistencyScore},
		{"content_count", evidence.ContentCount},
		{"median_reach", evidence.MedianReach},
		{"engagement_rate", evidence.EngagementRate},
		{"hooks", strings.Join(recipe.Hooks, "\n")},
		{"cta_patterns", strings.Join(recipe.CTAPatterns, ", ")},
		{"hashtags", strings.Join(recipe.Hashtags, ", ")},
		{"best_hours", strings.Join(hours, ", ")},
		{"best_days", strings.Join(recipe.BestDays, ", ")},
	}
	if err := writeSummary(f, "Recipe", summary); err != nil {
		return err
	}

	sources := make([][]interface{}, len(sourceContentIDs))
	for i, id := range sourceContentIDs {
		sources[i] = []interface{}{id}
	}
	if _, err := f.NewSheet("Sources"); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeTable(f, "Sources", []string{"content_id"}, sources); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// writeTable writes a styled header row followed by data rows
func writeTable(f *excelize.File, sheet string, columns []string, rows [][]interface{}) error {
	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFFF00"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 20)
	}

	for j, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, j+2)
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", j+2, err)
		}
	}
	return nil
}

// writeSummary writes key/value pairs on a new sheet
func writeSummary(f *excelize.File, sheet string, pairs [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 60)
	for i, pair := range pairs {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := pair
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s: %w", sheet, err)
		}
	}
	return nil
}
