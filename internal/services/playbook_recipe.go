package services

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/onegreenvn/green-insights-backend/internal/models"
	"github.com/onegreenvn/green-insights-backend/internal/utils"
)

const (
	maxHooks         = 5
	maxHashtags      = 10
	maxCTAPatterns   = 5
	maxBestHours     = 3
	maxBestDays      = 3
	maxTopPerformers = 3
	hookRuneLimit    = 150
	captionPrefixLen = 50
)

// ctaPhrases are matched case-insensitively against captions
var ctaPhrases = []string{
	"link in bio",
	"comment below",
	"follow for more",
	"save this",
	"share with",
	"tag a friend",
	"dm me",
	"click the link",
	"subscribe",
}

// fold case-folds s. Casers keep state, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// NormalizeHashtag strips the leading '#' and case-folds the tag
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#")
	return fold(strings.TrimSpace(tag))
}

// ExtractHook returns the caption text before the first period
func ExtractHook(caption string) string {
	caption = strings.TrimSpace(caption)
	if i := strings.Index(caption, "."); i >= 0 {
		caption = caption[:i]
	}
	return utils.TruncateRunes(strings.TrimSpace(caption), hookRuneLimit)
}

// BuildRecipe extracts the repeated patterns of ranked content items.
// Hours and weekdays are taken in loc.
func BuildRecipe(items []models.ContentPerformance, loc *time.Location) models.Recipe {
	if loc == nil {
		loc = time.UTC
	}
	return models.Recipe{
		Hooks:       extractHooks(items),
		CTAPatterns: extractCTAPatterns(items),
		Hashtags:    extractHashtags(items),
		BestHours:   bestHours(items, loc),
		BestDays:    bestDays(items, loc),
	}
}

func extractHooks(items []models.ContentPerformance) []string {
	hooks := make([]string, 0, maxHooks)
	seen := make(map[string]struct{})
	for _, item := range items {
		hook := ExtractHook(item.Caption)
		if hook == "" {
			continue
		}
		key := fold(hook)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		hooks = append(hooks, hook)
		if len(hooks) == maxHooks {
			break
		}
	}
	return hooks
}

func extractHashtags(items []models.ContentPerformance) []string {
	tags := make([]string, 0, maxHashtags)
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, raw := range item.Hashtags {
			tag := NormalizeHashtag(raw)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
			if len(tags) == maxHashtags {
				return tags
			}
		}
	}
	return tags
}

func extractCTAPatterns(items []models.ContentPerformance) []string {
	counts := make(map[string]int)
	for _, item := range items {
		caption := fold(item.Caption)
		for _, phrase := range ctaPhrases {
			if strings.Contains(caption, phrase) {
				counts[phrase]++
			}
		}
	}

	found := make([]string, 0, len(counts))
	for _, phrase := range ctaPhrases {
		if counts[phrase] > 0 {
			found = append(found, phrase)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return counts[found[i]] > counts[found[j]]
	})
	if len(found) > maxCTAPatterns {
		found = found[:maxCTAPatterns]
	}
	return found
}

// bestHours returns the most frequent publish hours, ties to the earlier hour
func bestHours(items []models.ContentPerformance, loc *time.Location) []int {
	var histogram [24]int
	for _, item := range items {
		histogram[item.PublishedAt.In(loc).Hour()]++
	}
	hours := make([]int, 0, 24)
	for h, n := range histogram {
		if n > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return histogram[hours[i]] > histogram[hours[j]]
	})
	if len(hours) > maxBestHours {
		hours = hours[:maxBestHours]
	}
	return hours
}

// weekOrder lists weekdays Monday first for tie-breaking
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// bestDays returns the most frequent publish weekdays, ties in Monday-first order
func bestDays(items []models.ContentPerformance, loc *time.Location) []string {
	var histogram [7]int
	for _, item := range items {
		histogram[item.PublishedAt.In(loc).Weekday()]++
	}
	days := make([]time.Weekday, 0, 7)
	for _, d := range weekOrder {
		if histogram[d] > 0 {
			days = append(days, d)
		}
	}
	sort.SliceStable(days, func(i, j int) bool {
		return histogram[days[i]] > histogram[days[j]]
	})
	if len(days) > maxBestDays {
		days = days[:maxBestDays]
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names
}

// BuildEvidence summarises ranked content items
func BuildEvidence(items []models.ContentPerformance) models.Evidence {
	evidence := models.Evidence{
		ContentCount:  len(items),
		TopPerformers: []models.TopPerformer{},
	}
	if len(items) == 0 {
		return evidence
	}

	reaches := make([]int64, len(items))
	var rateSum float64
	for i, item := range items {
		reaches[i] = item.TotalReach
		rateSum += item.EngagementRate
	}
	evidence.MedianReach = median(reaches)
	evidence.EngagementRate = rateSum / float64(len(items))

	for i := 0; i < len(items) && i < maxTopPerformers; i++ {
		item := items[i]
		evidence.TopPerformers = append(evidence.TopPerformers, models.TopPerformer{
			ContentID:         item.ContentID,
			ExternalContentID: item.ExternalContentID,
			CaptionPrefix:     utils.TruncateRunes(item.Caption, captionPrefixLen),
			Reach:             item.TotalReach,
			EngagementRate:    item.EngagementRate,
		})
	}
	return evidence
}

func median(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// ConsistencyScore grows with sample size and is capped at 95
func ConsistencyScore(contentCount int) int {
	if contentCount < 0 {
		contentCount = 0
	}
	score := 70 + contentCount*5
	if score > 95 {
		return 95
	}
	return score
}

// RaiseConsistency adds the confirmation bonus, capped at 100
func RaiseConsistency(score int) int {
	score += 5
	if score > 100 {
		return 100
	}
	return score
}
