package models

import (
	"encoding/json"
	"strconv"
)

// Position sentinels understood by the board
const (
	PosTop    = "top"
	PosBottom = "bottom"
)

// Position is a card position: either a sentinel or a numeric value
type Position struct {
	Sentinel string
	Value    float64
}

// Top returns the "top" sentinel position
func Top() Position { return Position{Sentinel: PosTop} }

// Bottom returns the "bottom" sentinel position
func Bottom() Position { return Position{Sentinel: PosBottom} }

// At returns a numeric position
func At(v float64) Position { return Position{Value: v} }

// IsSentinel reports whether the position is "top" or "bottom"
func (p Position) IsSentinel() bool { return p.Sentinel != "" }

// String renders the position the way the board API expects it
func (p Position) String() string {
	if p.IsSentinel() {
		return p.Sentinel
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}

func (p Position) MarshalJSON() ([]byte, error) {
	if p.IsSentinel() {
		return json.Marshal(p.Sentinel)
	}
	return json.Marshal(p.Value)
}

func (p Position) MarshalYAML() (interface{}, error) {
	if p.IsSentinel() {
		return p.Sentinel, nil
	}
	return p.Value, nil
}
