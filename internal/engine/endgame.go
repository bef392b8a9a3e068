package engine

import (
	"github.com/hailam/othellobook/internal/board"
)

// Endgame solver constants
const (
	solveInf           = 65 // Beyond any disk differential
	solverTTMinEmpties = 6  // Shallower nodes skip the table
	orderMinEmpties    = 7  // Shallower nodes play moves in square order
)

// Solver computes exact disk differentials. It is owned by one worker.
type Solver struct {
	tt      SolverTable
	orderer *MoveOrderer
	nodes   uint64
}

// NewSolver creates an endgame solver.
func NewSolver() *Solver {
	return &Solver{orderer: NewMoveOrderer(nil)}
}

// Nodes returns the number of nodes searched.
func (s *Solver) Nodes() uint64 {
	return s.nodes
}

// Table returns the solver's hash table.
func (s *Solver) Table() *SolverTable {
	return &s.tt
}

// Solve returns a best move of p and the exact final disk differential for
// the mover. If p has no legal move the move is board.NoSquare and the
// score is that of the game after the forced pass.
func (s *Solver) Solve(p board.Position) (board.Square, int) {
	moves := p.LegalMoves()
	if moves == 0 {
		return board.NoSquare, s.solve(p, -solveInf, solveInf)
	}

	alpha, beta := -solveInf, solveInf
	best, bestMove := -solveInf, board.NoSquare
	for _, m := range s.orderer.ScoreMoves(p, moves, board.NoSquare, false) {
		v := -s.solve(p.Play(m.Move), -beta, -alpha)
		if v > best {
			best, bestMove = v, m.Move
			if v > alpha {
				alpha = v
			}
		}
	}
	return bestMove, best
}

func (s *Solver) solve(p board.Position, alpha, beta int) int {
	s.nodes++

	moves := p.LegalMoves()
	if moves == 0 {
		passed := p.Pass()
		if !passed.HasLegalMove() {
			return p.TerminalScore()
		}
		return -s.solve(passed, -beta, -alpha)
	}

	empties := p.EmptyCount()
	var entry *SolverEntry
	if empties >= solverTTMinEmpties {
		e, hit := s.tt.Probe(p)
		if hit && e.CutsOff(alpha, beta) {
			return e.Value(alpha, beta)
		}
		entry = e
	}

	alphaOrig := alpha
	best := -solveInf
	try := func(sq board.Square) bool {
		v := -s.solve(p.Play(sq), -beta, -alpha)
		if v > best {
			best = v
			if v > alpha {
				alpha = v
			}
		}
		return alpha >= beta
	}

	if empties >= orderMinEmpties {
		for _, m := range s.orderer.ScoreMoves(p, moves, board.NoSquare, false) {
			if try(m.Move) {
				break
			}
		}
	} else {
		for moves != 0 {
			if try(moves.PopLSB()) {
				break
			}
		}
	}

	if entry != nil {
		entry.Update(p, alphaOrig, beta, best)
	}
	return best
}
