package book

import "github.com/hailam/othellobook/internal/board"

// Result is a search answer: the chosen move and its value in net disks
// from the mover's point of view. A Move of board.NoSquare means no answer.
type Result struct {
	Move  board.Square
	Score int
}

// Provider supplies the searches the negamax driver needs. Each builder
// worker owns one Provider, so implementations need not be safe for
// concurrent use.
//
// Positions are always passed in their canonical orientation (see
// board.Position.MinimalReflection), never as they were played.
type Provider interface {
	// RestrictedSearch returns the best move among moves, which must be a
	// non-empty subset of the legal moves of p.
	RestrictedSearch(p board.Position, moves board.Bitboard) (Result, error)

	// ExactSolve returns the best move of p with its exact disk differential.
	ExactSolve(p board.Position) (Result, error)

	// ExactSolveThreshold is the largest empty count at which ExactSolve is
	// preferred over RestrictedSearch.
	ExactSolveThreshold() int
}
