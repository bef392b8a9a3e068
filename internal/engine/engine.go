// Package engine implements the searches behind book construction: a
// midgame alpha-beta search with probabilistic cuts and an exact endgame
// solver, each with per-worker hash tables.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/board"
	"github.com/hailam/othellobook/internal/book"
)

// Config holds the search settings shared by all workers.
type Config struct {
	MidgameDepth int // Plies searched for each book leaf
	MidgameWidth int // MPC width, 0..MaxWidth
	SolveDepth   int // Largest empty count solved exactly
}

// DefaultConfig returns settings suited to an overnight build.
func DefaultConfig() Config {
	return Config{
		MidgameDepth: 8,
		MidgameWidth: 2,
		SolveDepth:   16,
	}
}

// Engine holds the state shared by all workers: the immutable evaluator
// and the book used for move-ordering hints.
type Engine struct {
	cfg   Config
	eval  Evaluator
	hints *book.Store
	log   zerolog.Logger
}

// NewEngine creates an engine. hints may be nil.
func NewEngine(cfg Config, eval Evaluator, hints *book.Store, log zerolog.Logger) *Engine {
	if eval == nil {
		eval = NewHeuristic()
	}
	return &Engine{
		cfg:   cfg,
		eval:  eval,
		hints: hints,
		log:   log,
	}
}

// Config returns the engine settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// NewWorker creates a worker with its own search state.
func (e *Engine) NewWorker(id int) *Worker {
	return &Worker{id: id, engine: e}
}

// Provider returns a new worker as a book.Provider. It matches
// book.BuilderConfig.NewProvider.
func (e *Engine) Provider(id int) book.Provider {
	return e.NewWorker(id)
}

// BenchResult summarizes a solver benchmark.
type BenchResult struct {
	Empties   int           `json:"empties"`
	Positions int           `json:"positions"`
	Nodes     uint64        `json:"nodes"`
	Duration  time.Duration `json:"duration"`
}

// NodesPerSecond returns the solver speed.
func (r BenchResult) NodesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Nodes) / r.Duration.Seconds()
}

// Bench solves count deterministic positions with the given number of
// empty squares. Tables are cleared before each solve.
func (e *Engine) Bench(empties, count int) BenchResult {
	w := e.NewWorker(0)
	positions := BenchPositions(empties, count)

	start := time.Now()
	for i, p := range positions {
		w.ClearTables(empties)
		sq, score := w.endgame().Solve(p)
		e.log.Debug().
			Int("position", i).
			Stringer("move", sq).
			Int("score", score).
			Msg("bench solve")
	}
	r := BenchResult{
		Empties:   empties,
		Positions: len(positions),
		Nodes:     w.Nodes(),
		Duration:  time.Since(start),
	}

	e.log.Info().
		Int("empties", r.Empties).
		Int("positions", r.Positions).
		Uint64("nodes", r.Nodes).
		Dur("elapsed", r.Duration).
		Float64("nps", r.NodesPerSecond()).
		Msg("bench complete")
	return r
}

// BenchPositions returns count positions with the given number of empty
// squares, each with a legal move. They are reached from the start
// position by a fixed move-selection rule, so every run sees the same set.
func BenchPositions(empties, count int) []board.Position {
	if empties < 1 || empties > 60 {
		return nil
	}
	var out []board.Position
	for seed := 0; len(out) < count && seed < count*16; seed++ {
		if p, ok := playout(empties, seed); ok {
			out = append(out, p)
		}
	}
	return out
}

// playout plays from the start position until empties squares remain,
// choosing moves by seed.
func playout(empties, seed int) (board.Position, bool) {
	p := board.Start()
	for ply := 0; p.EmptyCount() > empties; ply++ {
		moves := p.LegalMoves()
		if moves == 0 {
			p = p.Pass()
			if !p.HasLegalMove() {
				return board.Position{}, false
			}
			continue
		}
		k := (seed*7 + ply*13 + seed*ply) % moves.PopCount()
		for ; k > 0; k-- {
			moves.PopLSB()
		}
		p = p.Play(moves.LSB())
	}
	if !p.HasLegalMove() {
		return board.Position{}, false
	}
	return p, true
}
