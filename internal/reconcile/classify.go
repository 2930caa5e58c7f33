package reconcile

import (
	"fmt"

	"github.com/bbeale/GitTreasures/internal/models"
)

// Rung is a step of the classification ladder. Lower rungs win.
type Rung int

const (
	RungPassedQA Rung = iota + 1
	RungCurrentlyFailed
	RungDefect
	RungAtomic
	RungQATesting
	RungFreshHotfix
	RungStaleHotfix
	RungFreshQAReady
	RungStaleQAReady
	RungStaging
	RungNotOnBoard
	RungNoAction
)

func (r Rung) String() string {
	switch r {
	case RungPassedQA:
		return "passed QA"
	case RungCurrentlyFailed:
		return "currently failed"
	case RungDefect:
		return "defect or sub-task"
	case RungAtomic:
		return "cross-team item"
	case RungQATesting:
		return "in QA testing"
	case RungFreshHotfix:
		return "fresh hotfix"
	case RungStaleHotfix:
		return "stale hotfix"
	case RungFreshQAReady:
		return "fresh QA-ready"
	case RungStaleQAReady:
		return "stale QA-ready"
	case RungStaging:
		return "in staging"
	case RungNotOnBoard:
		return "not on board"
	case RungNoAction:
		return "no action"
	default:
		return fmt.Sprintf("rung(%d)", int(r))
	}
}

// Placement says where in its target list a card goes
type Placement int

const (
	PlaceBottom Placement = iota
	PlaceTop
	// PlaceByDate interpolates between neighbours ordered by date
	PlaceByDate
)

// Decision is the outcome of classifying one work item
type Decision struct {
	Rung      Rung
	Target    models.ListRole
	Placement Placement
}

// Classify runs the ladder for one item. current is the list holding the item's live
// card, or ListNone when it has none; atomic marks cross-team keys.
//
// A rung whose target is the list the card already sits in still wins, so the card
// stays put instead of the item falling through to a later rung.
func Classify(item models.WorkItem, current models.ListRole, atomic bool) Decision {
	switch {
	case item.PassedQA():
		return Decision{Rung: RungPassedQA, Target: models.ListComplete, Placement: PlaceBottom}
	case item.IsCurrentlyFailed():
		return Decision{Rung: RungCurrentlyFailed, Target: models.ListFailed, Placement: PlaceBottom}
	case item.IsDefect:
		return Decision{Rung: RungDefect, Target: models.ListNone}
	case atomic:
		return Decision{Rung: RungAtomic, Target: models.ListOther, Placement: PlaceTop}
	case item.IsInQATesting():
		return Decision{Rung: RungQATesting, Target: models.ListTesting, Placement: PlaceBottom}
	case item.IsHotfix && item.IsFreshQAReady():
		return Decision{Rung: RungFreshHotfix, Target: models.ListOther, Placement: PlaceBottom}
	case item.IsHotfix && item.IsStaleQAReady():
		return Decision{Rung: RungStaleHotfix, Target: models.ListTodo, Placement: PlaceTop}
	case item.IsFreshQAReady():
		return Decision{Rung: RungFreshQAReady, Target: models.ListTodo, Placement: PlaceByDate}
	case item.IsStaleQAReady():
		return Decision{Rung: RungStaleQAReady, Target: models.ListTodo, Placement: PlaceTop}
	case item.InStaging:
		return Decision{Rung: RungStaging, Target: models.ListTodo, Placement: PlaceByDate}
	case current == models.ListNone:
		return Decision{Rung: RungNotOnBoard, Target: models.ListTodo, Placement: PlaceByDate}
	default:
		return Decision{Rung: RungNoAction, Target: models.ListNone}
	}
}
