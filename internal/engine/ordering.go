package engine

import (
	"github.com/hailam/othellobook/internal/board"
	"github.com/hailam/othellobook/internal/book"
)

// Move ordering priorities
const (
	BookMoveBase   = 20000000 // Moves with a book child, ordered by book value
	TTMoveScore    = 10000000 // Hash move
	CornerBonus    = 1000     // Taking a corner
	XSquarePenalty = -1000    // Playing next to an empty corner
	ReplyPenalty   = -100     // Per opponent reply after the move
)

// ScoredMove is a move with its ordering score.
type ScoredMove struct {
	Move  board.Square
	Score int
}

// MoveOrderer scores the moves of a position. hints is optional and is only
// consulted at the root.
type MoveOrderer struct {
	hints *book.Store
}

// NewMoveOrderer creates a move orderer reading book hints from hints,
// which may be nil.
func NewMoveOrderer(hints *book.Store) *MoveOrderer {
	return &MoveOrderer{hints: hints}
}

// ScoreMoves returns the moves in search order. ttMove comes first unless a
// root book hint outranks it.
func (mo *MoveOrderer) ScoreMoves(p board.Position, moves board.Bitboard, ttMove board.Square, root bool) []ScoredMove {
	list := make([]ScoredMove, 0, moves.PopCount())

	var hinted map[board.Square]int
	if root && mo.hints != nil {
		succ := mo.hints.Successors(p)
		if len(succ) > 0 {
			hinted = make(map[board.Square]int, len(succ))
			for _, s := range succ {
				hinted[s.Move] = s.Score
			}
		}
	}

	empties := p.Empties()
	for moves != 0 {
		sq := moves.PopLSB()
		if v, ok := hinted[sq]; ok {
			list = append(list, ScoredMove{Move: sq, Score: BookMoveBase + v})
			continue
		}
		if sq == ttMove {
			list = append(list, ScoredMove{Move: sq, Score: TTMoveScore})
			continue
		}
		list = append(list, ScoredMove{Move: sq, Score: scoreQuiet(p, sq, empties)})
	}
	SortMoves(list)
	return list
}

// scoreQuiet prefers corners and moves that leave the opponent few replies.
func scoreQuiet(p board.Position, sq board.Square, empties board.Bitboard) int {
	bb := board.SquareBB(sq)
	score := 0
	if bb&board.Corners != 0 {
		score += CornerBonus
	}
	if bb&board.XSquares != 0 && empties&cornerOf(sq) != 0 {
		score += XSquarePenalty
	}
	child := p.Play(sq)
	return score + ReplyPenalty*child.LegalMoves().PopCount()
}

// SortMoves sorts moves by descending score. Move lists are short, so an
// insertion sort is used.
func SortMoves(moves []ScoredMove) {
	for i := 1; i < len(moves); i++ {
		m := moves[i]
		j := i - 1
		for j >= 0 && moves[j].Score < m.Score {
			moves[j+1] = moves[j]
			j--
		}
		moves[j+1] = m
	}
}
