package miner

import (
	"fmt"
	"strings"

	"josekiminer/internal/domain"
)

// Region is the corner quadrant under analysis. Moves outside it are tenuki:
// noted in the tree but never explored. Classification is pure and total;
// passes and malformed coordinates are never inside.
type Region struct {
	colMin, colMax int
	rowMin, rowMax int
}

// NewRegion builds a region from inclusive column letters and row numbers,
// e.g. ("J", "T", 11, 19) for the top-right quadrant of a 19x19 board.
func NewRegion(colMin, colMax string, rowMin, rowMax int) (Region, error) {
	lo := strings.Index(domain.Columns, strings.ToUpper(colMin))
	hi := strings.Index(domain.Columns, strings.ToUpper(colMax))
	if lo < 0 || hi < 0 || len(colMin) != 1 || len(colMax) != 1 {
		return Region{}, fmt.Errorf("invalid region columns %q-%q", colMin, colMax)
	}
	if lo > hi || rowMin > rowMax || rowMin < 1 || rowMax > domain.BoardSize {
		return Region{}, fmt.Errorf("invalid region bounds %s%d-%s%d", colMin, rowMin, colMax, rowMax)
	}
	return Region{colMin: lo, colMax: hi, rowMin: rowMin, rowMax: rowMax}, nil
}

// DefaultRegion is the top-right 9x9 view: columns J-T, rows 11-19.
func DefaultRegion() Region {
	region, err := NewRegion("J", "T", 11, domain.BoardSize)
	if err != nil {
		panic(err)
	}
	return region
}

// Contains reports whether a move lands inside the region.
func (r Region) Contains(move string) bool {
	col, row, ok := domain.ParseCoordinate(move)
	if !ok {
		return false
	}
	return col >= r.colMin && col <= r.colMax && row >= r.rowMin && row <= r.rowMax
}
