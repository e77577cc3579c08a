package domain

import (
	"strconv"
	"strings"
	"sync"
)

// BoardSize is the full board the miner analyzes. The mined region is a
// sub-quadrant of it, configured separately.
const BoardSize = 19

// Columns are the board column letters. "I" is skipped by convention.
const Columns = "ABCDEFGHJKLMNOPQRST"

// IsPass reports whether a move string is a pass rather than a board point.
func IsPass(move string) bool {
	return strings.EqualFold(move, "pass")
}

// ParseCoordinate splits a move string like "Q16" into zero-based column and
// one-based row. ok is false for passes and anything malformed or off-board.
func ParseCoordinate(move string) (col int, row int, ok bool) {
	if len(move) < 2 || IsPass(move) {
		return 0, 0, false
	}
	letter := move[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	col = strings.IndexByte(Columns, letter)
	if col < 0 {
		return 0, 0, false
	}
	row, err := strconv.Atoi(move[1:])
	if err != nil || row < 1 || row > BoardSize {
		return 0, 0, false
	}
	return col, row, true
}

const (
	cellEmpty byte = iota
	cellBlack
	cellWhite
)

// boardGrid replays a move sequence with captures so that a position's
// fingerprint depends on the stones actually on the board, not on the move
// order that produced them. Capture/recapture sequences (ko) can bring a
// branch back to a state it already visited; the fingerprint is what the tree
// builder's transposition guard keys on.
type boardGrid struct {
	cells [BoardSize * BoardSize]byte
}

func replayBoard(moves []Move) boardGrid {
	var g boardGrid
	for _, m := range moves {
		g.place(m)
	}
	return g
}

func (g *boardGrid) place(m Move) {
	col, row, ok := ParseCoordinate(m.Coordinates)
	if !ok {
		return
	}
	idx := (row-1)*BoardSize + col

	stone := cellBlack
	if m.Color == White {
		stone = cellWhite
	}
	g.cells[idx] = stone

	opponent := cellBlack
	if stone == cellBlack {
		opponent = cellWhite
	}
	for _, n := range neighbors(idx) {
		if g.cells[n] == opponent && !g.hasLiberty(n) {
			g.removeGroup(n)
		}
	}
	// Self-capture; legal under Tromp-Taylor style rules, and harmless to
	// model even where it is not: the engine never suggests it.
	if !g.hasLiberty(idx) {
		g.removeGroup(idx)
	}
}

func neighbors(idx int) []int {
	col := idx % BoardSize
	row := idx / BoardSize
	out := make([]int, 0, 4)
	if col > 0 {
		out = append(out, idx-1)
	}
	if col < BoardSize-1 {
		out = append(out, idx+1)
	}
	if row > 0 {
		out = append(out, idx-BoardSize)
	}
	if row < BoardSize-1 {
		out = append(out, idx+BoardSize)
	}
	return out
}

func (g *boardGrid) hasLiberty(start int) bool {
	color := g.cells[start]
	var seen [BoardSize * BoardSize]bool
	stack := []int{start}
	seen[start] = true
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range neighbors(idx) {
			switch {
			case g.cells[n] == cellEmpty:
				return true
			case g.cells[n] == color && !seen[n]:
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return false
}

func (g *boardGrid) removeGroup(start int) {
	color := g.cells[start]
	stack := []int{start}
	g.cells[start] = cellEmpty
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range neighbors(idx) {
			if g.cells[n] == color {
				g.cells[n] = cellEmpty
				stack = append(stack, n)
			}
		}
	}
}

type zobristTable struct {
	stones [BoardSize * BoardSize * 2]uint64
	white  uint64
}

var (
	zobristOnce sync.Once
	zobrist     zobristTable
)

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func zobristInit() {
	rng := splitmix64{state: 0x9e3779b97f4a7c15 ^ BoardSize}
	for i := range zobrist.stones {
		zobrist.stones[i] = rng.next()
	}
	zobrist.white = rng.next()
}

// Fingerprint hashes the stone occupancy reached by a move sequence plus the
// side to move. Two sequences reaching the same stones with the same side to
// move produce the same fingerprint regardless of move order.
func Fingerprint(moves []Move) uint64 {
	zobristOnce.Do(zobristInit)

	grid := replayBoard(moves)
	var hash uint64
	for idx, cell := range grid.cells {
		if cell == cellEmpty {
			continue
		}
		z := idx * 2
		if cell == cellWhite {
			z++
		}
		hash ^= zobrist.stones[z]
	}
	if NextColor(moves) == White {
		hash ^= zobrist.white
	}
	return hash
}
