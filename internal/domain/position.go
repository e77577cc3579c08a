package domain

import (
	"fmt"
	"strings"

	"josekiminer/internal/apperrors"
)

// StartingPosition seeds one independent mining run.
type StartingPosition struct {
	Name        string `json:"name" bson:"name"`
	Moves       []Move `json:"moves" bson:"moves"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Validate checks the position before any engine call is made. A bad position
// is fatal for its own run only.
func (p StartingPosition) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", apperrors.ErrInvalidPosition)
	}
	if len(p.Moves) == 0 {
		return fmt.Errorf("%w: %q has no setup moves", apperrors.ErrInvalidPosition, p.Name)
	}
	for i, m := range p.Moves {
		if m.Color != Black && m.Color != White {
			return fmt.Errorf("%w: %q move %d has color %q", apperrors.ErrInvalidPosition, p.Name, i, m.Color)
		}
		if _, _, ok := ParseCoordinate(m.Coordinates); !ok {
			return fmt.Errorf("%w: %q move %d is off board: %q", apperrors.ErrInvalidPosition, p.Name, i, m.Coordinates)
		}
	}
	return nil
}

// FileName derives the output file stem: lowercased, spaces replaced.
func (p StartingPosition) FileName() string {
	return strings.ToLower(strings.ReplaceAll(p.Name, " ", "_")) + ".json"
}

// DefaultStartingPositions are the standard top-right corner openings.
func DefaultStartingPositions() []StartingPosition {
	return []StartingPosition{
		{
			Name:        "4-4 Point (Hoshi)",
			Moves:       []Move{{Color: Black, Coordinates: "Q16"}},
			Description: "The modern standard corner opening.",
		},
		{
			Name:        "3-4 Point (Komoku)",
			Moves:       []Move{{Color: Black, Coordinates: "R16"}},
			Description: "Territory-oriented corner opening.",
		},
		{
			Name:        "3-3 Point (San-San)",
			Moves:       []Move{{Color: Black, Coordinates: "R17"}},
			Description: "Solid territorial corner.",
		},
		{
			Name:        "5-3 Point (Mokuhazushi)",
			Moves:       []Move{{Color: Black, Coordinates: "P17"}},
			Description: "Influence-oriented, often leads to fighting.",
		},
		{
			Name:        "5-4 Point (Takamoku)",
			Moves:       []Move{{Color: Black, Coordinates: "P16"}},
			Description: "High, influence-oriented move.",
		},
	}
}
