package engine

import (
	"github.com/hailam/othellobook/internal/board"
	"github.com/hailam/othellobook/internal/book"
)

// Search constants
const (
	Infinity = 10000 // Beyond any centidisk score
	MaxDepth = 60
)

// MaxWidth is the widest MPC setting: no probabilistic cuts at all.
const MaxWidth = 4

// Probabilistic cut constants
const (
	mpcMinDepth  = 3   // Shallowest node where MPC is tried
	mpcSigmaBase = 180 // Estimated error of the shallow search, centidisks
	mpcSigmaStep = 20  // Extra error per ply of depth
)

// mpcConfidence is the cut threshold in standard deviations for each width.
// Wider searches cut less and are more precise.
var mpcConfidence = [MaxWidth]float64{1.0, 1.4, 1.8, 2.4}

// Searcher performs the midgame alpha-beta search in centidisks.
// It is owned by one worker.
type Searcher struct {
	eval    Evaluator
	tt      MidgameTable
	orderer *MoveOrderer
	nodes   uint64
}

// NewSearcher creates a searcher. hints, if not nil, orders root moves.
func NewSearcher(eval Evaluator, hints *book.Store) *Searcher {
	return &Searcher{
		eval:    eval,
		orderer: NewMoveOrderer(hints),
	}
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Table returns the searcher's hash table.
func (s *Searcher) Table() *MidgameTable {
	return &s.tt
}

// Search returns the best move among moves, which must be legal in p, with
// its score in centidisks. It deepens iteratively up to depth so that each
// iteration orders moves with the previous one's results.
func (s *Searcher) Search(p board.Position, moves board.Bitboard, depth, width int) (board.Square, int) {
	if depth < 1 {
		depth = 1
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	if width < 0 {
		width = 0
	}
	if width > MaxWidth {
		width = MaxWidth
	}

	bestMove, bestScore := board.NoSquare, -Infinity
	for d := 1; d <= depth; d++ {
		bestMove, bestScore = s.searchRoot(p, moves, d, width, bestMove)
	}
	return bestMove, bestScore
}

// searchRoot searches only the given moves. The root itself is not stored
// in the table because its value is restricted to a subset of moves.
func (s *Searcher) searchRoot(p board.Position, moves board.Bitboard, depth, width int, prev board.Square) (board.Square, int) {
	alpha, beta := -Infinity, Infinity
	best, bestMove := -Infinity, board.NoSquare

	for _, m := range s.orderer.ScoreMoves(p, moves, prev, true) {
		v := -s.negamax(p.Play(m.Move), depth-1, width, -beta, -alpha)
		if v > best {
			best, bestMove = v, m.Move
			if v > alpha {
				alpha = v
			}
		}
	}
	return bestMove, best
}

// negamax is a fail-soft alpha-beta search.
func (s *Searcher) negamax(p board.Position, depth, width, alpha, beta int) int {
	s.nodes++

	moves := p.LegalMoves()
	if moves == 0 {
		passed := p.Pass()
		if !passed.HasLegalMove() {
			return p.TerminalScore() * 100
		}
		return -s.negamax(passed, depth, width, -beta, -alpha)
	}
	if depth <= 0 {
		return s.eval.Evaluate(p)
	}

	entry, hit := s.tt.Probe(p)
	ttMove := board.NoSquare
	if hit {
		if entry.DeepEnoughToSearch(depth, width) && entry.CutsOff(alpha, beta) {
			return entry.Value(alpha, beta)
		}
		ttMove = entry.BestMove()
	}

	if v, ok := s.probCut(p, depth, width, alpha, beta); ok {
		return v
	}

	alphaOrig := alpha
	best, bestMove := -Infinity, board.NoSquare
	for _, m := range s.orderer.ScoreMoves(p, moves, ttMove, false) {
		v := -s.negamax(p.Play(m.Move), depth-1, width, -beta, -alpha)
		if v > best {
			best, bestMove = v, m.Move
			if v > alpha {
				alpha = v
				if alpha >= beta {
					break
				}
			}
		}
	}

	// The slot pointer stays valid: shards are never reallocated.
	entry.Update(p, depth, width, alphaOrig, beta, best, bestMove)
	return best
}

// probCut tries to prove with a shallow search that the node will fail
// high or low. It never cuts at MaxWidth.
func (s *Searcher) probCut(p board.Position, depth, width, alpha, beta int) (int, bool) {
	if width >= MaxWidth || depth < mpcMinDepth {
		return 0, false
	}
	shallow := depth / 2
	margin := int(mpcConfidence[width] * float64(mpcSigmaBase+mpcSigmaStep*depth))

	if bound := beta + margin; bound < Infinity {
		if s.negamax(p, shallow, width, bound-1, bound) >= bound {
			return beta, true
		}
	}
	if bound := alpha - margin; bound > -Infinity {
		if s.negamax(p, shallow, width, bound, bound+1) <= bound {
			return alpha, true
		}
	}
	return 0, false
}
