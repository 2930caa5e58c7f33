package reconcile

import (
	"time"

	"github.com/bbeale/GitTreasures/internal/models"
)

// positionStep is the gap the board leaves between cards appended at the bottom
const positionStep = 65536

// Entry is a card in an ordered list as seen by the position rule. A zero Date means
// the card's date is unknown.
type Entry struct {
	Key  string
	Pos  float64
	Date time.Time
}

// Interpolate returns the midpoint between two neighbouring positions
func Interpolate(prev, next float64) float64 {
	return prev + (next-prev)/2
}

// PositionFor finds where a card dated date belongs in entries (ordered by position).
// It goes after the last entry that is not newer than it; entries of unknown date count
// as older. With no predecessor the card goes to the top, with no successor to the
// bottom. The returned index is the slot the card takes.
func PositionFor(entries []Entry, date time.Time) (models.Position, int) {
	idx := 0
	for i, e := range entries {
		if e.Date.IsZero() || !e.Date.After(date) {
			idx = i + 1
		}
	}
	switch {
	case idx == len(entries):
		return models.Bottom(), idx
	case idx == 0:
		return models.Top(), idx
	default:
		return models.At(Interpolate(entries[idx-1].Pos, entries[idx].Pos)), idx
	}
}

// lane is the planner's running view of one list. Cards planned into it are inserted
// with the numeric value the board will give them, so later placements in the same run
// see them.
type lane struct {
	entries []Entry
}

func (l *lane) insert(idx int, pos models.Position, e Entry) {
	switch {
	case !pos.IsSentinel():
		e.Pos = pos.Value
	case pos.Sentinel == models.PosTop && len(l.entries) > 0:
		e.Pos = l.entries[0].Pos / 2
	case pos.Sentinel == models.PosBottom && len(l.entries) > 0:
		e.Pos = l.entries[len(l.entries)-1].Pos + positionStep
	default:
		e.Pos = positionStep
	}
	if idx > len(l.entries) {
		idx = len(l.entries)
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = e
}

func (l *lane) remove(key string) {
	for i, e := range l.entries {
		if normalizeKey(e.Key) == normalizeKey(key) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// top places e first
func (l *lane) top(e Entry) models.Position {
	pos := models.Top()
	l.insert(0, pos, e)
	return pos
}

// bottom places e last
func (l *lane) bottom(e Entry) models.Position {
	pos := models.Bottom()
	l.insert(len(l.entries), pos, e)
	return pos
}

// byDate places e by its date
func (l *lane) byDate(e Entry) models.Position {
	pos, idx := PositionFor(l.entries, e.Date)
	l.insert(idx, pos, e)
	return pos
}
