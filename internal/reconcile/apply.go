package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// ErrSameList is returned when a move would copy a card into the list it is already in
var ErrSameList = errors.New("card is already in the destination list")

// Result reports what applying a plan did
type Result struct {
	Items    []models.ItemResult
	Archived int
	// Err is set when the run was cut short by its context
	Err error
}

// Applier executes plans against the board, one mutation at a time in plan order
type Applier struct {
	board Board
	log   *zap.SugaredLogger

	// dest caches destination list contents for the duplicate check before a copy
	dest map[string][]models.Card
}

func NewApplier(board Board, log *zap.SugaredLogger) *Applier {
	return &Applier{board: board, log: log.Named("apply")}
}

// Apply executes every mutation of the plan. A failed move or creation fails only its
// own item; failed decorations, duplicate removals and archiving are logged.
func (a *Applier) Apply(ctx context.Context, plan *Plan) Result {
	a.dest = make(map[string][]models.Card)

	status := make(map[string]models.ItemStatus, len(plan.Outcomes))
	cardIDs := make(map[string]string, len(plan.Outcomes))
	for _, o := range plan.Outcomes {
		if o.Skip != "" {
			status[o.Key] = models.Skipped(o.Skip)
		} else {
			status[o.Key] = models.Unchanged
		}
		cardIDs[o.Key] = o.CardID
	}
	failed := make(map[string]bool)

	var res Result
	for _, m := range plan.Mutations {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		if m.Key != "" && failed[m.Key] {
			continue
		}

		switch m.Kind {
		case models.MutationDelete:
			if err := a.board.DeleteCard(ctx, m.CardID); err != nil {
				a.log.Warnw("could not remove duplicate card, next run retries", "key", m.Key, "card", m.CardID, "error", err)
			}

		case models.MutationMove:
			newID, err := a.move(ctx, plan, m)
			if err != nil {
				a.log.Errorw("move failed, leaving card in place", "key", m.Key, "card", m.CardID, "error", err)
				status[m.Key] = models.Failed(err.Error())
				failed[m.Key] = true
				continue
			}
			cardIDs[m.Key] = newID
			status[m.Key] = models.Moved

		case models.MutationAddLabel:
			if err := a.board.AddLabel(ctx, cardOf(cardIDs, m), m.Label); err != nil {
				a.log.Warnw("could not label card", "key", m.Key, "label", m.Label.Name, "error", err)
			}

		case models.MutationAddMember:
			if err := a.board.AddMember(ctx, cardOf(cardIDs, m), m.MemberID); err != nil {
				a.log.Warnw("could not add member to card", "key", m.Key, "member", m.MemberID, "error", err)
			}

		case models.MutationArchive:
			if err := a.archive(ctx, plan, m); err != nil {
				a.log.Errorw("archiving complete cards failed", "error", err)
				continue
			}
			res.Archived += m.Archive.Count

		case models.MutationCreate:
			id, err := a.create(ctx, plan, m)
			if err != nil {
				a.log.Errorw("card creation failed", "key", m.Key, "error", err)
				status[m.Key] = models.Failed(err.Error())
				failed[m.Key] = true
				continue
			}
			cardIDs[m.Key] = id
			status[m.Key] = models.Created
		}
	}

	for _, o := range plan.Outcomes {
		res.Items = append(res.Items, models.ItemResult{Key: o.Key, Status: status[o.Key], CardID: cardIDs[o.Key]})
	}
	return res
}

func cardOf(ids map[string]string, m models.Mutation) string {
	if id := ids[m.Key]; id != "" {
		return id
	}
	return m.CardID
}

// move copies a card to its new list and deletes the original. A copy already waiting
// in the destination (left by an interrupted run or a lost answer) is reused instead of
// copying again.
func (a *Applier) move(ctx context.Context, plan *Plan, m models.Mutation) (string, error) {
	from, to := plan.Lists[m.From], plan.Lists[m.To]
	if to == "" {
		return "", fmt.Errorf("no list configured for %s", m.To)
	}
	if from == to {
		return "", ErrSameList
	}

	dest, err := a.destination(ctx, to)
	if err != nil {
		return "", err
	}

	var newID string
	if dup, ok := findCard(dest, m.Key, m.CardID); ok {
		a.log.Infow("card already copied to destination", "key", m.Key, "card", dup.ID, "list", m.To.String())
		newID = dup.ID
	} else {
		copied, err := a.placeCard(ctx, to, m.Key, m.CardID, func() (*models.Card, error) {
			return a.board.CopyCard(ctx, m.CardID, to, m.Position)
		})
		if err != nil {
			return "", err
		}
		newID = copied.ID
	}

	if err := a.board.DeleteCard(ctx, m.CardID); err != nil {
		a.log.Warnw("original card not deleted, duplicate left, next run heals", "key", m.Key, "card", m.CardID, "error", err)
	}
	return newID, nil
}

func (a *Applier) destination(ctx context.Context, listID string) ([]models.Card, error) {
	if cards, ok := a.dest[listID]; ok {
		return cards, nil
	}
	cards, err := a.board.CardsInList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("check destination list: %w", err)
	}
	a.dest[listID] = cards
	return cards, nil
}

// placeCard runs a card-producing call and retries it once. The list is read again
// before the retry, and a card for key found there is taken as the result: the failed
// call may have been applied without its answer arriving.
func (a *Applier) placeCard(ctx context.Context, listID, key, exceptID string, call func() (*models.Card, error)) (*models.Card, error) {
	card, err := call()
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		a.log.Warnw("card write failed, checking the list before retrying", "key", key, "list", listID, "error", err)
		cards, lerr := a.board.CardsInList(ctx, listID)
		if lerr != nil {
			return nil, fmt.Errorf("%w; list not re-read: %v", err, lerr)
		}
		a.dest[listID] = cards
		if found, ok := findCard(cards, key, exceptID); ok {
			a.log.Infow("card landed despite the error", "key", key, "card", found.ID, "list", listID)
			return &found, nil
		}
		if card, err = call(); err != nil {
			return nil, err
		}
	}
	if cached, ok := a.dest[listID]; ok {
		a.dest[listID] = append(cached, *card)
	}
	return card, nil
}

func findCard(cards []models.Card, key, exceptID string) (models.Card, bool) {
	for _, c := range cards {
		if c.ID != exceptID && normalizeKey(c.Name) == normalizeKey(key) {
			return c, true
		}
	}
	return models.Card{}, false
}

// archive moves every Complete card to the sprint's list on the archive board,
// creating the list first when needed
func (a *Applier) archive(ctx context.Context, plan *Plan, m models.Mutation) error {
	target := m.Archive
	lists, err := a.board.Lists(ctx, target.BoardID)
	if err != nil {
		return err
	}
	var listID string
	for _, l := range lists {
		if strings.EqualFold(l.Name, target.ListName) {
			listID = l.ID
			break
		}
	}
	if listID == "" {
		created, err := a.board.AddList(ctx, target.BoardID, target.ListName)
		if err != nil {
			return err
		}
		listID = created.ID
		a.log.Infow("created archive list", "list", target.ListName)
	}
	return a.board.MoveAllCardsInList(ctx, plan.Lists[models.ListComplete], target.BoardID, listID)
}

// create adds a card and then decorates it. Decoration failures leave the card in place.
func (a *Applier) create(ctx context.Context, plan *Plan, m models.Mutation) (string, error) {
	listID := plan.Lists[m.To]
	if listID == "" {
		return "", fmt.Errorf("no list configured for %s", m.To)
	}
	card, err := a.placeCard(ctx, listID, m.Key, "", func() (*models.Card, error) {
		return a.board.CreateCard(ctx, listID, *m.Card)
	})
	if err != nil {
		return "", err
	}

	for _, l := range m.Card.Labels {
		if err := a.board.AddLabel(ctx, card.ID, l); err != nil {
			a.log.Warnw("could not label new card", "key", m.Key, "label", l.Name, "error", err)
		}
	}
	if m.Card.MemberID != "" {
		if err := a.board.AddMember(ctx, card.ID, m.Card.MemberID); err != nil {
			a.log.Warnw("could not add member to new card", "key", m.Key, "error", err)
		}
	}
	for _, link := range m.Card.Attachments {
		if err := a.board.AddAttachment(ctx, card.ID, link); err != nil {
			a.log.Warnw("could not attach to new card", "key", m.Key, "url", link, "error", err)
		}
	}
	if len(m.Card.Checklist) > 0 {
		cl, err := a.board.AddChecklist(ctx, card.ID, ChecklistName)
		if err != nil {
			a.log.Warnw("could not add checklist to new card", "key", m.Key, "error", err)
		} else {
			for _, entry := range m.Card.Checklist {
				if err := a.board.AddChecklistItem(ctx, cl.ID, entry); err != nil {
					a.log.Warnw("could not add checklist item", "key", m.Key, "item", entry, "error", err)
				}
			}
		}
	}
	return card.ID, nil
}
