package engine

import (
	"github.com/pkg/errors"

	"github.com/hailam/othellobook/internal/board"
	"github.com/hailam/othellobook/internal/book"
)

// Worker owns the search state of one book-building goroutine: a midgame
// searcher and an endgame solver, each with private hash tables. The
// evaluator and the book used for hints are shared.
//
// Worker implements book.Provider. It is not safe for concurrent use.
type Worker struct {
	id     int
	engine *Engine

	// Created on first use.
	searcher *Searcher
	solver   *Solver
}

var _ book.Provider = (*Worker)(nil)

// ID returns the worker index.
func (w *Worker) ID() int {
	return w.id
}

func (w *Worker) midgame() *Searcher {
	if w.searcher == nil {
		w.searcher = NewSearcher(w.engine.eval, w.engine.hints)
	}
	return w.searcher
}

func (w *Worker) endgame() *Solver {
	if w.solver == nil {
		w.solver = NewSolver()
	}
	return w.solver
}

// RestrictedSearch implements book.Provider. The score is converted from
// centidisks to disks.
func (w *Worker) RestrictedSearch(p board.Position, moves board.Bitboard) (book.Result, error) {
	if moves == 0 {
		return book.Result{Move: board.NoSquare}, errors.New("engine: empty move set")
	}
	if illegal := moves &^ p.LegalMoves(); illegal != 0 {
		return book.Result{Move: board.NoSquare}, errors.Errorf("engine: illegal moves %v requested", illegal.Squares())
	}

	cfg := w.engine.cfg
	sq, score := w.midgame().Search(p, moves, cfg.MidgameDepth, cfg.MidgameWidth)
	return book.Result{Move: sq, Score: CentiToDisks(score)}, nil
}

// ExactSolve implements book.Provider.
func (w *Worker) ExactSolve(p board.Position) (book.Result, error) {
	if !p.HasLegalMove() {
		return book.Result{Move: board.NoSquare}, errors.New("engine: exact solve of a position without moves")
	}
	sq, score := w.endgame().Solve(p)
	return book.Result{Move: sq, Score: score}, nil
}

// ExactSolveThreshold implements book.Provider.
func (w *Worker) ExactSolveThreshold() int {
	return w.engine.cfg.SolveDepth
}

// ClearTables resets every hash-table shard with at most maxEmpty empty
// squares, so that timings do not depend on earlier searches.
func (w *Worker) ClearTables(maxEmpty int) {
	if w.searcher != nil {
		w.searcher.tt.Clear(maxEmpty)
	}
	if w.solver != nil {
		w.solver.tt.Clear(maxEmpty)
	}
}

// Nodes returns the nodes searched by both searchers.
func (w *Worker) Nodes() uint64 {
	var n uint64
	if w.searcher != nil {
		n += w.searcher.nodes
	}
	if w.solver != nil {
		n += w.solver.nodes
	}
	return n
}
