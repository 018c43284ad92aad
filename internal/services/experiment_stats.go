package services

import (
	"fmt"

	"github.com/onegreenvn/green-insights-backend/internal/models"
)

const (
	// MinSampleSize is the content count every arm needs before a verdict
	MinSampleSize = 5
	// MinWinRateSpread is the win rate gap, in points, required for significance
	MinWinRateSpread = 10.0
)

// ArmTotals folds the tracked content of one arm
func ArmTotals(items []models.ContentPerformance) (totalReach, totalEngagement int64, avgRate float64) {
	if len(items) == 0 {
		return 0, 0, 0
	}
	var rateSum float64
	for _, item := range items {
		totalReach += item.TotalReach
		totalEngagement += item.TotalEngagement
		rateSum += EngagementRate(item.TotalReach, item.TotalEngagement)
	}
	return totalReach, totalEngagement, rateSum / float64(len(items))
}

// MetricValue scores an arm for the experiment's success metric
func MetricValue(metric models.SuccessMetric, totalReach int64, avgEngagementRate float64) float64 {
	switch metric {
	case models.SuccessMetricReach:
		return float64(totalReach)
	case models.SuccessMetricEngagement:
		return avgEngagementRate
	case models.SuccessMetricCombined:
		return float64(totalReach)/1000 + avgEngagementRate*10
	}
	return 0
}

// WinRates returns each value's share of the total in percent, all zero
// when the total is zero
func WinRates(values []float64) []float64 {
	rates := make([]float64, len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum <= 0 {
		return rates
	}
	for i, v := range values {
		rates[i] = v / sum * 100
	}
	return rates
}

// Verdict is the significance decision over a set of arms
type Verdict struct {
	IsSignificant bool
	Reason        string
	WinnerIndex   int // -1 without a winner
}

// Evaluate applies the sample size floor and the win rate spread threshold
func Evaluate(contentCounts []int, winRates []float64) Verdict {
	if len(winRates) == 0 {
		return Verdict{Reason: "experiment has no variants", WinnerIndex: -1}
	}
	for i, n := range contentCounts {
		if n < MinSampleSize {
			return Verdict{
				Reason:      fmt.Sprintf("variant %d has %d tracked items, at least %d are required per variant", i+1, n, MinSampleSize),
				WinnerIndex: -1,
			}
		}
	}

	maxIdx, minIdx := 0, 0
	for i, r := range winRates {
		if r > winRates[maxIdx] {
			maxIdx = i
		}
		if r < winRates[minIdx] {
			minIdx = i
		}
	}
	spread := winRates[maxIdx] - winRates[minIdx]
	if spread < MinWinRateSpread {
		return Verdict{
			Reason:      fmt.Sprintf("win rate spread %.1f points is below the %.0f point threshold", spread, MinWinRateSpread),
			WinnerIndex: -1,
		}
	}
	return Verdict{
		IsSignificant: true,
		Reason:        fmt.Sprintf("win rate spread %.1f points meets the %.0f point threshold", spread, MinWinRateSpread),
		WinnerIndex:   maxIdx,
	}
}
