package reconcile

import (
	"testing"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLadder(t *testing.T) {
	passed := withStatus(freshItem("ABC-1", day(1)), "Closed", models.StatusCategoryDone)
	passed.TesterInHistory = true

	defect := freshItem("ABC-3", day(1))
	defect.IsDefect = true

	hotfix := freshItem("ABC-6", day(1))
	hotfix.IsHotfix = true

	staleHotfix := staleItem("ABC-7", day(1))
	staleHotfix.IsHotfix = true

	staging := withStatus(freshItem("ABC-10", day(1)), "Code Review", "In Progress")
	staging.InStaging = true

	elsewhere := withStatus(freshItem("ABC-11", day(1)), "Code Review", "In Progress")

	tests := []struct {
		name    string
		item    models.WorkItem
		current models.ListRole
		atomic  bool
		want    Decision
	}{
		{"passed QA", passed, models.ListTesting, false, Decision{RungPassedQA, models.ListComplete, PlaceBottom}},
		{"in progress", withStatus(freshItem("ABC-2", day(1)), models.StatusInProgress, "In Progress"), models.ListTesting, false, Decision{RungCurrentlyFailed, models.ListFailed, PlaceBottom}},
		{"backlog", withStatus(freshItem("ABC-2", day(1)), models.StatusBacklog, "To Do"), models.ListTodo, false, Decision{RungCurrentlyFailed, models.ListFailed, PlaceBottom}},
		{"defect", defect, models.ListNone, false, Decision{Rung: RungDefect, Target: models.ListNone}},
		{"atomic", freshItem("MMDH-4", day(1)), models.ListNone, true, Decision{RungAtomic, models.ListOther, PlaceTop}},
		{"qa testing", withStatus(freshItem("ABC-5", day(1)), models.StatusQATesting, "In Progress"), models.ListTodo, false, Decision{RungQATesting, models.ListTesting, PlaceBottom}},
		{"fresh hotfix", hotfix, models.ListNone, false, Decision{RungFreshHotfix, models.ListOther, PlaceBottom}},
		{"stale hotfix", staleHotfix, models.ListNone, false, Decision{RungStaleHotfix, models.ListTodo, PlaceTop}},
		{"fresh qa ready", freshItem("ABC-8", day(1)), models.ListNone, false, Decision{RungFreshQAReady, models.ListTodo, PlaceByDate}},
		{"stale qa ready", staleItem("ABC-9", day(1)), models.ListNone, false, Decision{RungStaleQAReady, models.ListTodo, PlaceTop}},
		{"staging commit", staging, models.ListTesting, false, Decision{RungStaging, models.ListTodo, PlaceByDate}},
		{"not on board", elsewhere, models.ListNone, false, Decision{RungNotOnBoard, models.ListTodo, PlaceByDate}},
		{"no action", elsewhere, models.ListOther, false, Decision{Rung: RungNoAction, Target: models.ListNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.item, tt.current, tt.atomic))
		})
	}
}

func TestClassifyPriorityCombinations(t *testing.T) {
	t.Run("fresh hotfix beats staging commit", func(t *testing.T) {
		it := freshItem("ABC-1", day(1))
		it.IsHotfix = true
		it.InStaging = true
		d := Classify(it, models.ListNone, false)
		assert.Equal(t, RungFreshHotfix, d.Rung)
		assert.Equal(t, models.ListOther, d.Target)
	})

	t.Run("passed QA beats defect", func(t *testing.T) {
		it := withStatus(freshItem("ABC-2", day(1)), "Closed", models.StatusCategoryDone)
		it.TesterInHistory = true
		it.IsDefect = true
		assert.Equal(t, RungPassedQA, Classify(it, models.ListTesting, false).Rung)
	})

	t.Run("done without a tester is not passed", func(t *testing.T) {
		it := withStatus(freshItem("ABC-3", day(1)), "Closed", models.StatusCategoryDone)
		it.InStaging = true
		assert.Equal(t, RungStaging, Classify(it, models.ListTodo, false).Rung)
	})

	t.Run("failed beats atomic", func(t *testing.T) {
		it := withStatus(freshItem("MMDH-1", day(1)), models.StatusInProgress, "In Progress")
		assert.Equal(t, RungCurrentlyFailed, Classify(it, models.ListOther, true).Rung)
	})

	t.Run("atomic beats qa testing", func(t *testing.T) {
		it := withStatus(freshItem("MMDH-2", day(1)), models.StatusQATesting, "In Progress")
		assert.Equal(t, RungAtomic, Classify(it, models.ListNone, true).Rung)
	})

	t.Run("defect beats staging commit", func(t *testing.T) {
		it := freshItem("ABC-4", day(1))
		it.IsDefect = true
		it.InStaging = true
		assert.Equal(t, RungDefect, Classify(it, models.ListNone, false).Rung)
	})

	t.Run("stale hotfix beats stale qa ready", func(t *testing.T) {
		it := staleItem("ABC-5", day(1))
		it.IsHotfix = true
		assert.Equal(t, RungStaleHotfix, Classify(it, models.ListNone, false).Rung)
	})

	t.Run("failed item already on failed list stays", func(t *testing.T) {
		it := withStatus(freshItem("ABC-6", day(1)), models.StatusInProgress, "In Progress")
		it.InStaging = true
		d := Classify(it, models.ListFailed, false)
		assert.Equal(t, RungCurrentlyFailed, d.Rung)
		assert.Equal(t, models.ListFailed, d.Target)
	})
}

func TestRungString(t *testing.T) {
	assert.Equal(t, "fresh hotfix", RungFreshHotfix.String())
	assert.Equal(t, "rung(99)", Rung(99).String())
}
