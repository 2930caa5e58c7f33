// Package export dumps a board to JSON or YAML and resets the test board from production.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Board is the part of the board adapter export and reset need
type Board interface {
	GetBoard(ctx context.Context, boardID string) (*models.Board, error)
	Lists(ctx context.Context, boardID string) ([]models.BoardList, error)
	Members(ctx context.Context, boardID string) ([]models.Member, error)
	CardsInList(ctx context.Context, listID string) ([]models.Card, error)
	CopyCard(ctx context.Context, cardID, listID string, pos models.Position) (*models.Card, error)
	ArchiveAllCardsInList(ctx context.Context, listID string) error
}

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or yaml)", s)
	}
}

type Dump struct {
	Board   models.Board    `json:"board" yaml:"board"`
	Members []models.Member `json:"members,omitempty" yaml:"members,omitempty"`
	Lists   []ListDump      `json:"lists" yaml:"lists"`
}

type ListDump struct {
	ID    string     `json:"id" yaml:"id"`
	Name  string     `json:"name" yaml:"name"`
	Cards []CardDump `json:"cards" yaml:"cards"`
}

type CardDump struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Desc   string   `json:"desc" yaml:"desc"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Collect reads every open list on boardID with its cards in board order
func Collect(ctx context.Context, board Board, boardID string) (*Dump, error) {
	b, err := board.GetBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", boardID, err)
	}
	if b == nil {
		return nil, fmt.Errorf("board %s not found", boardID)
	}
	lists, err := board.Lists(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("lists of %s: %w", boardID, err)
	}

	members, err := board.Members(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", boardID, err)
	}

	d := &Dump{Board: *b, Members: members}
	for _, l := range lists {
		if l.Closed {
			continue
		}
		cards, err := sortedCards(ctx, board, l.ID)
		if err != nil {
			return nil, err
		}
		ld := ListDump{ID: l.ID, Name: l.Name, Cards: make([]CardDump, 0, len(cards))}
		for _, c := range cards {
			cd := CardDump{ID: c.ID, Name: c.Name, Desc: c.Desc}
			for _, lb := range c.Labels {
				cd.Labels = append(cd.Labels, lb.Name)
			}
			ld.Cards = append(ld.Cards, cd)
		}
		d.Lists = append(d.Lists, ld)
	}
	return d, nil
}

// Export writes boardID to w in format
func Export(ctx context.Context, board Board, boardID string, format Format, w io.Writer) error {
	d, err := Collect(ctx, board, boardID)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func sortedCards(ctx context.Context, board Board, listID string) ([]models.Card, error) {
	cards, err := board.CardsInList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("cards in %s: %w", listID, err)
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Pos < cards[j].Pos })
	return cards, nil
}

// ResetReport counts what a reset did per list
type ResetReport struct {
	Copied map[models.ListRole]int
	Failed int
}

// ResetTestBoard empties every tracked list on the test board, then copies the
// production cards into the matching test list in production order. A card that
// fails to copy is logged and counted, and the reset carries on.
func ResetTestBoard(ctx context.Context, board Board, prod, test config.BoardConfig, log *zap.SugaredLogger) (*ResetReport, error) {
	log = log.Named("export")
	prodLists, testLists := prod.Lists.ByRole(), test.Lists.ByRole()

	for _, role := range models.TrackedLists {
		if err := board.ArchiveAllCardsInList(ctx, testLists[role]); err != nil {
			return nil, fmt.Errorf("archive test %s: %w", role, err)
		}
	}

	rep := &ResetReport{Copied: make(map[models.ListRole]int)}
	for _, role := range models.TrackedLists {
		cards, err := sortedCards(ctx, board, prodLists[role])
		if err != nil {
			return rep, err
		}
		for _, c := range cards {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			if _, err := board.CopyCard(ctx, c.ID, testLists[role], models.Bottom()); err != nil {
				log.Warnw("could not copy card", "card", c.ID, "list", role.String(), "error", err)
				rep.Failed++
				continue
			}
			rep.Copied[role]++
		}
		log.Infow("list reset", "list", role.String(), "copied", rep.Copied[role])
	}
	return rep, nil
}
