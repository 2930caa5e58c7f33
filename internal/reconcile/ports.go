// Package reconcile decides where every work item belongs on the board and turns the
// difference between that and the board's current state into mutations.
//
// A run takes one snapshot of the tracked lists, plans every mutation against that
// snapshot without touching the board, and only then applies the plan.
package reconcile

import (
	"context"

	"github.com/bbeale/GitTreasures/internal/models"
)

// Board is the part of the board adapter the engine reads and writes
type Board interface {
	Labels(ctx context.Context, boardID string) ([]models.Label, error)
	Lists(ctx context.Context, boardID string) ([]models.BoardList, error)
	CardsInList(ctx context.Context, listID string) ([]models.Card, error)

	CreateCard(ctx context.Context, listID string, card models.NewCard) (*models.Card, error)
	CopyCard(ctx context.Context, cardID, listID string, pos models.Position) (*models.Card, error)
	DeleteCard(ctx context.Context, cardID string) error

	AddLabel(ctx context.Context, cardID string, label models.Label) error
	AddMember(ctx context.Context, cardID, memberID string) error
	AddAttachment(ctx context.Context, cardID, link string) error
	AddChecklist(ctx context.Context, cardID, name string) (*models.Checklist, error)
	AddChecklistItem(ctx context.Context, checklistID, name string) error

	AddList(ctx context.Context, boardID, name string) (*models.BoardList, error)
	MoveAllCardsInList(ctx context.Context, listID, destBoardID, destListID string) error
}
