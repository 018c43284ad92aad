package excel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/onegreenvn/green-insights-backend/internal/models"
)

func TestExportExperimentResults(t *testing.T) {
	winner := models.ExperimentVariantResult{VariantID: "v1", Name: "Statement hooks", ContentCount: 5, WinRate: 80}
	results := &models.ExperimentResults{
		ExperimentID:  "exp-1",
		Name:          "Hook test",
		Status:        "active",
		SuccessMetric: "engagement",
		IsSignificant: true,
		Variants: []models.ExperimentVariantResult{
			winner,
			{VariantID: "v2", Name: "Question hooks", ContentCount: 5, WinRate: 20},
		},
		Winner: &winner,
	}

	var buf bytes.Buffer
	require.NoError(t, NewExcelService().ExportExperimentResults(&buf, results))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Variants")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "variant_id", rows[0][0])
	assert.Equal(t, "v1", rows[1][0])
	assert.Equal(t, "yes", rows[1][9])
	assert.Equal(t, "Question hooks", rows[2][1])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"experiment_id", "exp-1"}, summary[0])
}

func TestExportPlaybookEvidence(t *testing.T) {
	playbook := &models.Playbook{
		ID:     "pb-1",
		Name:   "Top Post pattern (last 30 days)",
		Format: models.ContentTypePost,
		Recipe: datatypes.NewJSONType(models.Recipe{
			Hooks:     []string{"Plan your week"},
			Hashtags:  []string{"planning", "focus"},
			BestHours: []int{9, 18},
		}),
		Evidence: datatypes.NewJSONType(models.Evidence{
			ContentCount:  3,
			TopPerformers: []models.TopPerformer{{ContentID: "c1", Reach: 1000, EngagementRate: 10}},
		}),
		ConsistencyScore: 85,
	}

	var buf bytes.Buffer
	require.NoError(t, NewExcelService().ExportPlaybookEvidence(&buf, playbook, []string{"c1", "c2", "c3"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	performers, err := f.GetRows("Top performers")
	require.NoError(t, err)
	require.Len(t, performers, 2)
	assert.Equal(t, "c1", performers[1][0])

	recipe, err := f.GetRows("Recipe")
	require.NoError(t, err)
	assert.Contains(t, recipe, []string{"best_hours", "09:00, 18:00"})

	sources, err := f.GetRows("Sources")
	require.NoError(t, err)
	assert.Len(t, sources, 4)
}
