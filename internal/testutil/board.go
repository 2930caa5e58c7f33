// Package testutil holds in-memory stand-ins for the issue tracker, board and test-case
// manager used across package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bbeale/GitTreasures/internal/models"
)

const posStep = 65536

// ErrLostResponse is returned by a call listed in Board.Lose
var ErrLostResponse = errors.New("timeout awaiting response headers")

type fakeList struct {
	list  models.BoardList
	cards []models.Card
}

// Board is an in-memory board that positions cards the way the real one does
type Board struct {
	mu     sync.Mutex
	nextID int

	lists   map[string]*fakeList
	order   []string
	labels  map[string][]models.Label
	members map[string][]models.Member
	boards  map[string]models.Board

	Attachments map[string][]string
	Checklists  map[string]map[string][]string
	Archived    []models.Card

	// Fail makes the named method return the error until cleared
	Fail map[string]error
	// Lose makes the next n calls of the named method take effect on the board but
	// return ErrLostResponse, like a write whose answer timed out
	Lose map[string]int
	// Writes counts every call that changes the board
	Writes int
	Calls  []string
}

func NewBoard() *Board {
	return &Board{
		lists:       make(map[string]*fakeList),
		labels:      make(map[string][]models.Label),
		members:     make(map[string][]models.Member),
		boards:      make(map[string]models.Board),
		Attachments: make(map[string][]string),
		Checklists:  make(map[string]map[string][]string),
		Fail:        make(map[string]error),
		Lose:        make(map[string]int),
	}
}

// SeedList adds a list with cards. Cards without an id get one; cards without a
// position are appended.
func (b *Board) SeedList(boardID, listID, name string, cards ...models.Card) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.boards[boardID]; !ok {
		b.boards[boardID] = models.Board{ID: boardID, Name: boardID}
	}
	l := &fakeList{list: models.BoardList{ID: listID, Name: name, BoardID: boardID}}
	for _, c := range cards {
		if c.ID == "" {
			c.ID = b.newID("card")
		}
		if c.Pos == 0 {
			c.Pos = b.bottomPos(l)
		}
		c.ListID = listID
		l.cards = append(l.cards, c)
	}
	b.lists[listID] = l
	b.order = append(b.order, listID)
}

func (b *Board) SeedLabel(boardID string, label models.Label) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels[boardID] = append(b.labels[boardID], label)
}

func (b *Board) SeedMember(boardID string, m models.Member) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[boardID] = append(b.members[boardID], m)
}

// Cards returns a list's cards ordered by position
func (b *Board) Cards(listID string) []models.Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lists[listID]
	if !ok {
		return nil
	}
	return sortedCopy(l.cards)
}

// Names returns a list's card names ordered by position
func (b *Board) Names(listID string) []string {
	var names []string
	for _, c := range b.Cards(listID) {
		names = append(names, c.Name)
	}
	return names
}

// Card finds a card by id anywhere on the board
func (b *Board) Card(cardID string) (models.Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, i := b.find(cardID); l != nil {
		return l.cards[i], true
	}
	return models.Card{}, false
}

// ListNamed finds a list by board and name
func (b *Board) ListNamed(boardID, name string) (models.BoardList, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.order {
		l := b.lists[id]
		if l.list.BoardID == boardID && l.list.Name == name {
			return l.list, true
		}
	}
	return models.BoardList{}, false
}

func sortedCopy(cards []models.Card) []models.Card {
	out := append([]models.Card(nil), cards...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

func (b *Board) newID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", prefix, b.nextID)
}

func (b *Board) call(method string, write bool) error {
	b.Calls = append(b.Calls, method)
	if err := b.Fail[method]; err != nil {
		return err
	}
	if write {
		b.Writes++
	}
	return nil
}

func (b *Board) lost(method string) error {
	if b.Lose[method] > 0 {
		b.Lose[method]--
		return ErrLostResponse
	}
	return nil
}

func (b *Board) find(cardID string) (*fakeList, int) {
	for _, id := range b.order {
		l := b.lists[id]
		for i, c := range l.cards {
			if c.ID == cardID {
				return l, i
			}
		}
	}
	return nil, -1
}

func (b *Board) bottomPos(l *fakeList) float64 {
	hi := 0.0
	for _, c := range l.cards {
		if c.Pos > hi {
			hi = c.Pos
		}
	}
	return hi + posStep
}

func (b *Board) resolvePos(l *fakeList, pos models.Position) float64 {
	switch {
	case !pos.IsSentinel():
		return pos.Value
	case pos.Sentinel == models.PosTop:
		if len(l.cards) == 0 {
			return posStep
		}
		lo := l.cards[0].Pos
		for _, c := range l.cards {
			if c.Pos < lo {
				lo = c.Pos
			}
		}
		return lo / 2
	default:
		return b.bottomPos(l)
	}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: status 404: not found", what, id)
}

func (b *Board) GetBoard(_ context.Context, boardID string) (*models.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("GetBoard", false); err != nil {
		return nil, err
	}
	board, ok := b.boards[boardID]
	if !ok {
		return nil, nil
	}
	return &board, nil
}

func (b *Board) Lists(_ context.Context, boardID string) ([]models.BoardList, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("Lists", false); err != nil {
		return nil, err
	}
	var out []models.BoardList
	for _, id := range b.order {
		if l := b.lists[id]; l.list.BoardID == boardID {
			out = append(out, l.list)
		}
	}
	return out, nil
}

func (b *Board) Labels(_ context.Context, boardID string) ([]models.Label, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("Labels", false); err != nil {
		return nil, err
	}
	return append([]models.Label(nil), b.labels[boardID]...), nil
}

func (b *Board) Members(_ context.Context, boardID string) ([]models.Member, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("Members", false); err != nil {
		return nil, err
	}
	return append([]models.Member(nil), b.members[boardID]...), nil
}

func (b *Board) CardsInList(_ context.Context, listID string) ([]models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("CardsInList", false); err != nil {
		return nil, err
	}
	l, ok := b.lists[listID]
	if !ok {
		return nil, notFound("list", listID)
	}
	// the real board does not promise an order
	out := append([]models.Card(nil), l.cards...)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (b *Board) CreateCard(_ context.Context, listID string, card models.NewCard) (*models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("CreateCard", true); err != nil {
		return nil, err
	}
	l, ok := b.lists[listID]
	if !ok {
		return nil, notFound("list", listID)
	}
	c := models.Card{
		ID:     b.newID("card"),
		Name:   card.Name,
		ListID: listID,
		Pos:    b.resolvePos(l, card.Position),
		Desc:   card.Desc,
	}
	l.cards = append(l.cards, c)
	if err := b.lost("CreateCard"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (b *Board) CopyCard(_ context.Context, cardID, listID string, pos models.Position) (*models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("CopyCard", true); err != nil {
		return nil, err
	}
	src, i := b.find(cardID)
	if src == nil {
		return nil, notFound("card", cardID)
	}
	dest, ok := b.lists[listID]
	if !ok {
		return nil, notFound("list", listID)
	}
	c := src.cards[i]
	c.ID = b.newID("card")
	c.ListID = listID
	c.Pos = b.resolvePos(dest, pos)
	c.Labels = append([]models.Label(nil), c.Labels...)
	c.MemberIDs = append([]string(nil), c.MemberIDs...)
	dest.cards = append(dest.cards, c)
	if err := b.lost("CopyCard"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (b *Board) DeleteCard(_ context.Context, cardID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("DeleteCard", true); err != nil {
		return err
	}
	if l, i := b.find(cardID); l != nil {
		l.cards = append(l.cards[:i], l.cards[i+1:]...)
	}
	return nil
}

func (b *Board) AddLabel(_ context.Context, cardID string, label models.Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddLabel", true); err != nil {
		return err
	}
	l, i := b.find(cardID)
	if l == nil {
		return notFound("card", cardID)
	}
	boardID := l.list.BoardID
	if label.ID == "" {
		label.ID = b.newID("label")
		b.labels[boardID] = append(b.labels[boardID], label)
	} else {
		for _, bl := range b.labels[boardID] {
			if bl.ID == label.ID {
				label = bl
			}
		}
	}
	l.cards[i].Labels = append(l.cards[i].Labels, label)
	return nil
}

func (b *Board) AddMember(_ context.Context, cardID, memberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddMember", true); err != nil {
		return err
	}
	l, i := b.find(cardID)
	if l == nil {
		return notFound("card", cardID)
	}
	l.cards[i].MemberIDs = append(l.cards[i].MemberIDs, memberID)
	return nil
}

func (b *Board) AddAttachment(_ context.Context, cardID, link string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddAttachment", true); err != nil {
		return err
	}
	b.Attachments[cardID] = append(b.Attachments[cardID], link)
	return nil
}

func (b *Board) AddChecklist(_ context.Context, cardID, name string) (*models.Checklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddChecklist", true); err != nil {
		return nil, err
	}
	cl := models.Checklist{ID: b.newID("checklist"), Name: name, CardID: cardID}
	if b.Checklists[cardID] == nil {
		b.Checklists[cardID] = make(map[string][]string)
	}
	b.Checklists[cardID][cl.ID] = nil
	return &cl, nil
}

func (b *Board) AddChecklistItem(_ context.Context, checklistID, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddChecklistItem", true); err != nil {
		return err
	}
	for _, lists := range b.Checklists {
		if _, ok := lists[checklistID]; ok {
			lists[checklistID] = append(lists[checklistID], name)
			return nil
		}
	}
	return notFound("checklist", checklistID)
}

// ChecklistItems returns every checklist entry of a card
func (b *Board) ChecklistItems(cardID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, items := range b.Checklists[cardID] {
		out = append(out, items...)
	}
	return out
}

func (b *Board) AddList(_ context.Context, boardID, name string) (*models.BoardList, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("AddList", true); err != nil {
		return nil, err
	}
	if _, ok := b.boards[boardID]; !ok {
		b.boards[boardID] = models.Board{ID: boardID, Name: boardID}
	}
	l := &fakeList{list: models.BoardList{ID: b.newID("list"), Name: name, BoardID: boardID}}
	b.lists[l.list.ID] = l
	b.order = append(b.order, l.list.ID)
	return &l.list, nil
}

func (b *Board) ArchiveAllCardsInList(_ context.Context, listID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("ArchiveAllCardsInList", true); err != nil {
		return err
	}
	l, ok := b.lists[listID]
	if !ok {
		return notFound("list", listID)
	}
	b.Archived = append(b.Archived, l.cards...)
	l.cards = nil
	return nil
}

func (b *Board) MoveAllCardsInList(_ context.Context, listID, destBoardID, destListID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.call("MoveAllCardsInList", true); err != nil {
		return err
	}
	src, ok := b.lists[listID]
	if !ok {
		return notFound("list", listID)
	}
	dest, ok := b.lists[destListID]
	if !ok || !strings.EqualFold(dest.list.BoardID, destBoardID) {
		return notFound("list", destListID)
	}
	for _, c := range src.cards {
		c.ListID = destListID
		c.Pos = b.bottomPos(dest)
		dest.cards = append(dest.cards, c)
	}
	src.cards = nil
	return nil
}
