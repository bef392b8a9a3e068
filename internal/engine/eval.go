package engine

import (
	"github.com/hailam/othellobook/internal/board"
)

// Evaluator scores a position in centidisks from the mover's point of view.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(p board.Position) int
}

// Evaluation weights, in centidisks.
const (
	mobilityWeight  = 60  // Per legal move of difference
	potentialWeight = 15  // Per empty square adjacent to the opponent
	cornerWeight    = 450 // Per corner of difference
	xSquareWeight   = 180 // Per X-square next to an empty corner
	discWeight      = 4   // Per disc of difference, grows as the board fills
)

// maxEval keeps heuristic scores inside the range of real disk results.
const maxEval = 6300

// Heuristic is a fixed-weight evaluator built from mobility, corners and
// disc counts.
type Heuristic struct{}

// NewHeuristic returns the default evaluator.
func NewHeuristic() Heuristic {
	return Heuristic{}
}

// Evaluate implements Evaluator.
func (Heuristic) Evaluate(p board.Position) int {
	opp := p.Pass()
	empties := p.Empties()

	score := mobilityWeight * (p.LegalMoves().PopCount() - opp.LegalMoves().PopCount())
	score += potentialWeight * (frontier(p.Enemy, empties) - frontier(p.Mover, empties))
	score += cornerWeight * ((p.Mover & board.Corners).PopCount() - (p.Enemy & board.Corners).PopCount())
	score -= xSquareWeight * (dangerousX(p.Mover, empties) - dangerousX(p.Enemy, empties))

	filled := 64 - empties.PopCount()
	score += discWeight * filled / 16 * (p.Mover.PopCount() - p.Enemy.PopCount())

	return clamp(score, -maxEval, maxEval)
}

// frontier counts the empty squares adjacent to discs.
func frontier(discs, empties board.Bitboard) int {
	var adj board.Bitboard
	adj |= discs.North() | discs.South() | discs.East() | discs.West()
	adj |= discs.NorthEast() | discs.NorthWest() | discs.SouthEast() | discs.SouthWest()
	return (adj & empties).PopCount()
}

// dangerousX counts X-squares held next to an empty corner.
func dangerousX(discs, empties board.Bitboard) int {
	n := 0
	x := discs & board.XSquares
	for x != 0 {
		sq := x.PopLSB()
		if empties&cornerOf(sq) != 0 {
			n++
		}
	}
	return n
}

// cornerOf returns the corner diagonally adjacent to an X-square.
func cornerOf(sq board.Square) board.Bitboard {
	f, r := sq.File(), sq.Rank()
	if f == 1 {
		f = 0
	} else {
		f = 7
	}
	if r == 1 {
		r = 0
	} else {
		r = 7
	}
	return board.SquareBB(board.NewSquare(f, r))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CentiToDisks converts a centidisk score to whole disks, rounding to the
// nearest disk with halves away from zero.
func CentiToDisks(centi int) int {
	if centi >= 0 {
		return (centi + 50) / 100
	}
	return -((-centi + 50) / 100)
}
