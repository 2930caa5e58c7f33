package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"
)

// Located is a card together with the tracked list it was found in
type Located struct {
	Card models.Card
	Role models.ListRole
}

// Snapshot is the board state a run plans against, read once before planning
type Snapshot struct {
	BoardID string
	ListIDs map[models.ListRole]string
	// Cards per list, ordered by position
	Cards  map[models.ListRole][]models.Card
	Labels []models.Label

	byKey map[string][]Located
}

// TakeSnapshot reads the board's labels and every tracked list once
func TakeSnapshot(ctx context.Context, board Board, boardID string, lists map[models.ListRole]string) (*Snapshot, error) {
	labels, err := board.Labels(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("snapshot labels: %w", err)
	}

	cards := make(map[models.ListRole][]models.Card, len(models.TrackedLists))
	for _, role := range models.TrackedLists {
		id := lists[role]
		if id == "" {
			continue
		}
		cs, err := board.CardsInList(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s list: %w", role, err)
		}
		cards[role] = cs
	}
	return NewSnapshot(boardID, lists, cards, labels), nil
}

// NewSnapshot builds a snapshot from already fetched cards
func NewSnapshot(boardID string, lists map[models.ListRole]string, cards map[models.ListRole][]models.Card, labels []models.Label) *Snapshot {
	s := &Snapshot{
		BoardID: boardID,
		ListIDs: lists,
		Cards:   make(map[models.ListRole][]models.Card, len(cards)),
		Labels:  labels,
		byKey:   make(map[string][]Located),
	}
	for _, role := range models.TrackedLists {
		cs := append([]models.Card(nil), cards[role]...)
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Pos < cs[j].Pos })
		s.Cards[role] = cs
		for _, c := range cs {
			k := normalizeKey(c.Name)
			s.byKey[k] = append(s.byKey[k], Located{Card: c, Role: role})
		}
	}
	return s
}

func normalizeKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Locate returns every card named after key, in board list order
func (s *Snapshot) Locate(key string) []Located {
	return s.byKey[normalizeKey(key)]
}

// Count is the number of cards in a list
func (s *Snapshot) Count(role models.ListRole) int {
	return len(s.Cards[role])
}

// BoardLabel finds a board label by name
func (s *Snapshot) BoardLabel(name string) (models.Label, bool) {
	for _, l := range s.Labels {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return models.Label{}, false
}
