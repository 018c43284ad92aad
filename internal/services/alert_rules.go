package services

import (
	"fmt"
	"strings"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
)

const (
	defaultDropThreshold  = 20.0
	defaultSpikeThreshold = 100.0
)

// DefaultAlertConfigs apply to organizations without stored configs
func DefaultAlertConfigs(orgID string) []models.AlertConfig {
	return []models.AlertConfig{
		{OrganizationID: orgID, Metric: models.MetricReach, Threshold: defaultDropThreshold, SpikeThreshold: defaultSpikeThreshold, Enabled: true},
		{OrganizationID: orgID, Metric: models.MetricEngagement, Threshold: defaultDropThreshold, SpikeThreshold: defaultSpikeThreshold, Enabled: true},
	}
}

// MetricTotal picks one metric out of window totals
func MetricTotal(totals repository.MetricTotals, metric string) float64 {
	switch metric {
	case models.MetricReach:
		return float64(totals.Reach)
	case models.MetricReactions:
		return float64(totals.Reactions)
	case models.MetricComments:
		return float64(totals.Comments)
	case models.MetricShares:
		return float64(totals.Shares)
	case models.MetricVideoViews:
		return float64(totals.VideoViews)
	case models.MetricEngagement:
		return float64(totals.Reactions + totals.Comments + totals.Shares)
	}
	return 0
}

// ClassifyDrop grades a decrease given in percent. Drops above 50 are
// critical, from 30 warning, from 20 info. threshold raises the floor.
func ClassifyDrop(dropPercent, threshold float64) (models.AlertSeverity, bool) {
	if dropPercent < threshold {
		return "", false
	}
	switch {
	case dropPercent > 50:
		return models.AlertSeverityCritical, true
	case dropPercent >= 30:
		return models.AlertSeverityWarning, true
	case dropPercent >= 20:
		return models.AlertSeverityInfo, true
	}
	return "", false
}

// ClassifySpike grades an increase given in percent. Spikes from 400 are
// critical, from 200 warning, from spikeThreshold info.
func ClassifySpike(increasePercent, spikeThreshold float64) (models.AlertSeverity, bool) {
	if spikeThreshold <= 0 {
		spikeThreshold = defaultSpikeThreshold
	}
	if increasePercent < spikeThreshold {
		return "", false
	}
	switch {
	case increasePercent >= 400:
		return models.AlertSeverityCritical, true
	case increasePercent >= 200:
		return models.AlertSeverityWarning, true
	}
	return models.AlertSeverityInfo, true
}

// WindowComparison holds the averages of two adjacent windows
type WindowComparison struct {
	Previous float64
	Current  float64
}

// ChangePercent is the relative change from Previous to Current. It reports
// false when there is no previous baseline.
func (w WindowComparison) ChangePercent() (float64, bool) {
	if w.Previous <= 0 {
		return 0, false
	}
	return (w.Current - w.Previous) / w.Previous * 100, true
}

func alertMessage(alertType models.AlertType, metric string, change float64, cmp WindowComparison, days int) string {
	label := strings.ReplaceAll(metric, "_", " ")
	if alertType == models.AlertTypeViralSpike {
		return fmt.Sprintf("%s spiked %.1f%%: daily average %.1f vs %.1f over the previous %d day(s)",
			label, change, cmp.Current, cmp.Previous, days)
	}
	return fmt.Sprintf("%s dropped %.1f%%: daily average %.1f vs %.1f over the previous %d day(s)",
		label, -change, cmp.Current, cmp.Previous, days)
}
