package domain

import (
	"encoding/json"
	"fmt"
)

const (
	Black = "B"
	White = "W"
)

// Move is one stone placement. On the wire (KataGo protocol and the output
// artifact) a move is the two-element array ["B", "Q16"].
type Move struct {
	Color       string `bson:"color"`
	Coordinates string `bson:"coordinates"`
}

func (m Move) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{m.Color, m.Coordinates})
}

func (m *Move) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("move must be a [color, coordinate] pair: %w", err)
	}
	m.Color = pair[0]
	m.Coordinates = pair[1]
	return nil
}

// NextColor returns the color to move after the given history. Black opens on
// an empty board.
func NextColor(moves []Move) string {
	if len(moves) == 0 {
		return Black
	}
	if moves[len(moves)-1].Color == Black {
		return White
	}
	return Black
}

// AnalysisRequest is one query to KataGo's analysis mode, written as a single
// JSON line on the engine's stdin.
type AnalysisRequest struct {
	ID               string         `json:"id"`
	Moves            []Move         `json:"moves"`
	Rules            string         `json:"rules"`
	Komi             float64        `json:"komi"`
	BoardXSize       int            `json:"boardXSize"`
	BoardYSize       int            `json:"boardYSize"`
	IncludePolicy    bool           `json:"includePolicy"`
	OverrideSettings map[string]any `json:"overrideSettings,omitempty"`
}

// RootInfo is the engine's evaluation of the queried position itself.
type RootInfo struct {
	Winrate   float64 `json:"winrate"`
	ScoreLead float64 `json:"scoreLead"`
	Visits    int     `json:"visits"`
}

// MoveCandidate is one engine suggestion for the queried position. Winrate and
// scoreLead are from the perspective of the player to move; higher is better.
type MoveCandidate struct {
	Move      string  `json:"move"`
	Winrate   float64 `json:"winrate"`
	ScoreLead float64 `json:"scoreLead"`
	Visits    int     `json:"visits"`
	Order     int     `json:"order"`
}

// AnalysisResponse is the engine's answer line, correlated to its request by ID.
type AnalysisResponse struct {
	ID        string          `json:"id"`
	RootInfo  RootInfo        `json:"rootInfo"`
	MoveInfos []MoveCandidate `json:"moveInfos"`
	Error     string          `json:"error,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}
