package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"josekiminer/internal/apperrors"
)

func TestStartingPositionValidate(t *testing.T) {
	t.Run("valid position", func(t *testing.T) {
		pos := StartingPosition{
			Name:  "4-4 Point (Hoshi)",
			Moves: []Move{{Color: Black, Coordinates: "Q16"}},
		}
		require.NoError(t, pos.Validate())
	})

	t.Run("empty name", func(t *testing.T) {
		pos := StartingPosition{Moves: []Move{{Color: Black, Coordinates: "Q16"}}}
		assert.ErrorIs(t, pos.Validate(), apperrors.ErrInvalidPosition)
	})

	t.Run("no moves", func(t *testing.T) {
		pos := StartingPosition{Name: "empty"}
		assert.ErrorIs(t, pos.Validate(), apperrors.ErrInvalidPosition)
	})

	t.Run("bad color", func(t *testing.T) {
		pos := StartingPosition{
			Name:  "bad color",
			Moves: []Move{{Color: "X", Coordinates: "Q16"}},
		}
		assert.ErrorIs(t, pos.Validate(), apperrors.ErrInvalidPosition)
	})

	t.Run("off-board coordinate", func(t *testing.T) {
		pos := StartingPosition{
			Name:  "off board",
			Moves: []Move{{Color: Black, Coordinates: "Z99"}},
		}
		assert.ErrorIs(t, pos.Validate(), apperrors.ErrInvalidPosition)
	})
}

func TestStartingPositionFileName(t *testing.T) {
	pos := StartingPosition{Name: "4-4 Point (Hoshi)"}
	assert.Equal(t, "4-4_point_(hoshi).json", pos.FileName())
}

func TestDefaultStartingPositionsAreValid(t *testing.T) {
	positions := DefaultStartingPositions()
	require.Len(t, positions, 5)
	for _, pos := range positions {
		assert.NoError(t, pos.Validate(), pos.Name)
	}
}
