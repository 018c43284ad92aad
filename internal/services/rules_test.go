package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-insights-backend/internal/database/repository"
	"github.com/onegreenvn/green-insights-backend/internal/models"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementRate(0, 10))
	assert.InDelta(t, 5.0, EngagementRate(200, 10), 1e-9)
}

func TestRankContentOrdering(t *testing.T) {
	items := []models.ContentPerformance{
		{ContentID: "a", TotalReach: 100, EngagementRate: 5},
		{ContentID: "b", TotalReach: 200, EngagementRate: 5},
		{ContentID: "c", TotalReach: 10, EngagementRate: 8},
		{ContentID: "d", TotalReach: 0, EngagementRate: 0},
		{ContentID: "0", TotalReach: 100, EngagementRate: 5},
	}

	ranked := RankContent(items)

	ids := make([]string, len(ranked))
	for i, item := range ranked {
		ids[i] = item.ContentID
	}
	assert.Equal(t, []string{"c", "b", "0", "a"}, ids)
}

func TestBuildRecipe(t *testing.T) {
	items := []models.ContentPerformance{
		{
			Caption:     "Plan your week in ten minutes. Save this for Monday",
			Hashtags:    []string{"#Planning", "productivity"},
			PublishedAt: at("2025-01-20T18:00:00Z"), // Monday
		},
		{
			Caption:     "plan your week in ten minutes. Link in bio",
			Hashtags:    []string{"planning", "#Focus"},
			PublishedAt: at("2025-01-27T18:30:00Z"), // Monday
		},
		{
			Caption:     "Morning routine that works. Comment below and save this",
			Hashtags:    []string{"routine"},
			PublishedAt: at("2025-01-22T09:00:00Z"), // Wednesday
		},
	}

	recipe := BuildRecipe(items, time.UTC)

	assert.Equal(t, []string{"Plan your week in ten minutes", "Morning routine that works"}, recipe.Hooks)
	assert.Equal(t, []string{"planning", "productivity", "focus", "routine"}, recipe.Hashtags)
	assert.Equal(t, []string{"save this", "link in bio", "comment below"}, recipe.CTAPatterns)
	assert.Equal(t, []int{18, 9}, recipe.BestHours)
	assert.Equal(t, []string{"Monday", "Wednesday"}, recipe.BestDays)
}

func TestBuildRecipeUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)

	recipe := BuildRecipe([]models.ContentPerformance{
		{PublishedAt: at("2025-01-20T18:00:00Z")},
	}, loc)

	assert.Equal(t, []int{1}, recipe.BestHours)
	assert.Equal(t, []string{"Tuesday"}, recipe.BestDays)
}

func TestBestHoursTiesPreferEarlierHour(t *testing.T) {
	recipe := BuildRecipe([]models.ContentPerformance{
		{PublishedAt: at("2025-01-26T20:00:00Z")}, // Sunday
		{PublishedAt: at("2025-01-21T07:00:00Z")}, // Tuesday
	}, time.UTC)

	assert.Equal(t, []int{7, 20}, recipe.BestHours)
	assert.Equal(t, []string{"Tuesday", "Sunday"}, recipe.BestDays)
}

func TestExtractHookTruncates(t *testing.T) {
	hook := ExtractHook(strings.Repeat("é", 200) + ". rest")
	assert.Equal(t, 150, len([]rune(hook)))
	assert.Equal(t, "Short hook", ExtractHook("  Short hook. Then more."))
}

func TestBuildEvidence(t *testing.T) {
	items := []models.ContentPerformance{
		{ContentID: "a", TotalReach: 300, EngagementRate: 10, Caption: "first"},
		{ContentID: "b", TotalReach: 100, EngagementRate: 6, Caption: "second"},
		{ContentID: "c", TotalReach: 200, EngagementRate: 5, Caption: "third"},
		{ContentID: "d", TotalReach: 400, EngagementRate: 3, Caption: "fourth"},
	}

	evidence := BuildEvidence(items)

	assert.Equal(t, 4, evidence.ContentCount)
	assert.InDelta(t, 250.0, evidence.MedianReach, 1e-9)
	assert.InDelta(t, 6.0, evidence.EngagementRate, 1e-9)
	require.Len(t, evidence.TopPerformers, 3)
	assert.Equal(t, "a", evidence.TopPerformers[0].ContentID)
	assert.Equal(t, "c", evidence.TopPerformers[2].ContentID)
}

func TestConsistencyScore(t *testing.T) {
	assert.Equal(t, 85, ConsistencyScore(3))
	assert.Equal(t, 95, ConsistencyScore(5))
	assert.Equal(t, 95, ConsistencyScore(40))
	assert.Equal(t, 90, RaiseConsistency(85))
	assert.Equal(t, 100, RaiseConsistency(98))
}

func TestBuildVariants(t *testing.T) {
	recipe := models.Recipe{
		Hooks:     []string{"Did you know AI writes captions?", "Plan your week"},
		Hashtags:  []string{"a", "b", "c", "d", "e", "f"},
		BestHours: []int{12},
		BestDays:  []string{"Monday"},
	}

	variants := BuildVariants("pb-1", recipe)
	require.Len(t, variants, 5)

	byKey := map[string]models.Recipe{}
	for _, v := range variants {
		assert.Equal(t, "pb-1", v.PlaybookID)
		byKey[v.Key] = v.Recipe.Data()
	}

	assert.Equal(t, []string{"AI writes captions.", "Plan your week."}, byKey[RuleHookStatement].Hooks)
	assert.Equal(t, []string{"Did you know AI writes captions?", "Did you know plan your week?"}, byKey[RuleHookQuestion].Hooks)
	assert.Equal(t, []int{6, 7, 8}, byKey[RuleTimeMorning].BestHours)
	assert.Equal(t, []int{18, 19, 20}, byKey[RuleTimeEvening].BestHours)
	assert.Equal(t, []string{"a", "b", "c"}, byKey[RuleHashtagFocus].Hashtags)

	// the source recipe is never aliased
	assert.Equal(t, []int{12}, recipe.BestHours)
	assert.Equal(t, "Plan your week", recipe.Hooks[1])
}

func TestHashtagFocusCapsAtEight(t *testing.T) {
	tags := make([]string, 20)
	for i := range tags {
		tags[i] = string(rune('a' + i))
	}
	out := HashtagMutation{limit: maxFocusHashtags}.Apply(models.Recipe{Hashtags: tags})
	assert.Len(t, out.Hashtags, 8)

	single := HashtagMutation{limit: maxFocusHashtags}.Apply(models.Recipe{Hashtags: []string{"only"}})
	assert.Equal(t, []string{"only"}, single.Hashtags)
}

func TestQuestionHookKeepsPronoun(t *testing.T) {
	assert.Equal(t, "Did you know I tested this?", questionHook("I tested this"))
}

func TestWinRatesAndVerdict(t *testing.T) {
	rates := WinRates([]float64{30, 10})
	assert.InDelta(t, 75.0, rates[0], 1e-9)
	assert.InDelta(t, 25.0, rates[1], 1e-9)
	assert.Equal(t, []float64{0, 0}, WinRates([]float64{0, 0}))

	v := Evaluate([]int{5, 6}, rates)
	assert.True(t, v.IsSignificant)
	assert.Equal(t, 0, v.WinnerIndex)

	v = Evaluate([]int{4, 6}, rates)
	assert.False(t, v.IsSignificant)
	assert.Equal(t, -1, v.WinnerIndex)

	v = Evaluate([]int{5, 5}, []float64{52, 48})
	assert.False(t, v.IsSignificant)
}

func TestMetricValue(t *testing.T) {
	assert.Equal(t, 2000.0, MetricValue(models.SuccessMetricReach, 2000, 5))
	assert.Equal(t, 5.0, MetricValue(models.SuccessMetricEngagement, 2000, 5))
	assert.InDelta(t, 52.0, MetricValue(models.SuccessMetricCombined, 2000, 5), 1e-9)
}

func TestArmTotalsAveragesPerItemRates(t *testing.T) {
	reach, engagement, avg := ArmTotals([]models.ContentPerformance{
		{TotalReach: 100, TotalEngagement: 10},
		{TotalReach: 300, TotalEngagement: 6},
	})
	assert.Equal(t, int64(400), reach)
	assert.Equal(t, int64(16), engagement)
	assert.InDelta(t, 6.0, avg, 1e-9)
}

func TestClassifyDrop(t *testing.T) {
	cases := []struct {
		drop     float64
		severity models.AlertSeverity
		ok       bool
	}{
		{55, models.AlertSeverityCritical, true},
		{35, models.AlertSeverityWarning, true},
		{25, models.AlertSeverityInfo, true},
		{15, "", false},
	}
	for _, tc := range cases {
		severity, ok := ClassifyDrop(tc.drop, defaultDropThreshold)
		assert.Equal(t, tc.ok, ok, "drop %v", tc.drop)
		assert.Equal(t, tc.severity, severity, "drop %v", tc.drop)
	}

	_, ok := ClassifyDrop(25, 30)
	assert.False(t, ok)
}

func TestClassifySpike(t *testing.T) {
	severity, ok := ClassifySpike(450, defaultSpikeThreshold)
	assert.True(t, ok)
	assert.Equal(t, models.AlertSeverityCritical, severity)

	severity, _ = ClassifySpike(250, defaultSpikeThreshold)
	assert.Equal(t, models.AlertSeverityWarning, severity)

	severity, _ = ClassifySpike(150, defaultSpikeThreshold)
	assert.Equal(t, models.AlertSeverityInfo, severity)

	_, ok = ClassifySpike(50, defaultSpikeThreshold)
	assert.False(t, ok)
}

func TestWindowComparison(t *testing.T) {
	change, ok := WindowComparison{Previous: 1000, Current: 450}.ChangePercent()
	assert.True(t, ok)
	assert.InDelta(t, -55.0, change, 1e-9)

	_, ok = WindowComparison{Previous: 0, Current: 450}.ChangePercent()
	assert.False(t, ok)
}

func TestMetricTotal(t *testing.T) {
	totals := repository.MetricTotals{Reach: 10, Reactions: 1, Comments: 2, Shares: 3, VideoViews: 4}
	assert.Equal(t, 10.0, MetricTotal(totals, models.MetricReach))
	assert.Equal(t, 6.0, MetricTotal(totals, models.MetricEngagement))
	assert.Equal(t, 4.0, MetricTotal(totals, models.MetricVideoViews))
}

func TestAutoTagNames(t *testing.T) {
	caption := "Three ways to plan your week. Save this for Monday planning planning #planning #productivity!"

	assert.Equal(t, []string{"planning", "three", "ways", "plan", "week"}, ExtractKeywords(caption, maxKeywords))
	assert.Equal(t, []string{"planning", "productivity"}, CaptionHashtags(caption))
	assert.Equal(t,
		[]string{"planning", "productivity", "three", "ways", "plan", "week"},
		AutoTagNames([]string{"#Planning"}, caption))
}

func TestExtractKeywordsIsLocaleNeutral(t *testing.T) {
	assert.Equal(t, []string{"café", "über"}, ExtractKeywords("Über: café Café! no", 2))
}
