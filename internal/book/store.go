// Package book implements the Othello opening book: a store of canonical
// positions, the negamax driver that resolves it and its binary format.
package book

import (
	"sort"
	"sync"

	"github.com/hailam/othellobook/internal/board"
)

// Store maps canonical positions to book nodes.
//
// Positions that require a pass are never stored directly; they live under
// their passed successor with the score negated. Lookups and puts perform
// that translation, as well as the reflection to the canonical key.
//
// The store is written by one goroutine at a time (game insertion, or the
// negamax consumer) and may be read concurrently for move ordering.
type Store struct {
	mu       sync.RWMutex
	nodes    map[board.Position]Node
	minDepth int
}

// Successor is a book child seen from the parent: Score is the negated child
// score, i.e. the value of Move for the parent's mover.
type Successor struct {
	Move  board.Square
	Score int
	Kind  Kind
}

// Entry is a stored canonical position and its node.
type Entry struct {
	Pos  board.Position
	Node Node
}

// New creates an empty store that accepts unevaluated positions with at
// least minDepth empty squares.
func New(minDepth int) *Store {
	return &Store{
		nodes:    make(map[board.Position]Node),
		minDepth: minDepth,
	}
}

// MinDepth returns the minimum empty-square count for unevaluated positions.
func (s *Store) MinDepth() int {
	return s.minDepth
}

// Len returns the number of stored positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// AddUnevaluatedPosition inserts p as a fresh branch unless it is already
// stored as a branch or solved node, has no legal move, or has fewer than
// MinDepth empty squares.
func (s *Store) AddUnevaluatedPosition(p board.Position) {
	if !p.HasLegalMove() || p.EmptyCount() < s.minDepth {
		return
	}
	key, _ := p.MinimalReflection()

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[key]; ok && n.Kind() != KindLeaf {
		return
	}
	s.nodes[key] = Branch{Unplayed: UnplayedUnknown}
}

// AddGame inserts every position of g as an unevaluated branch.
// Nothing is evaluated.
func (s *Store) AddGame(g board.Game) error {
	return g.Replay(s.AddUnevaluatedPosition)
}

// Lookup returns the node for p. A position without legal moves resolves
// through its pass successor with the score negated; a terminal position
// yields a synthesized Solved node that is never stored.
func (s *Store) Lookup(p board.Position) (Node, bool) {
	if p.HasLegalMove() {
		return s.lookup(p)
	}
	passed := p.Pass()
	if !passed.HasLegalMove() {
		return Solved{Disks: p.TerminalScore()}, true
	}
	n, ok := s.lookup(passed)
	if !ok {
		return nil, false
	}
	return negate(n), true
}

func (s *Store) lookup(p board.Position) (Node, bool) {
	key, sym := p.MinimalReflection()

	s.mu.RLock()
	n, ok := s.nodes[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if b, isBranch := n.(Branch); isBranch && sym != board.Identity {
		b.Unplayed = b.Unplayed.reflect(sym.Inverse())
		return b, true
	}
	return n, true
}

// Put stores n for p. If p has no legal move the node is stored, negated,
// under the pass successor. Storing a terminal position is a programming
// error and panics.
func (s *Store) Put(p board.Position, n Node) {
	if !p.HasLegalMove() {
		passed := p.Pass()
		if !passed.HasLegalMove() {
			panic("book: cannot store a terminal position")
		}
		p, n = passed, negate(n)
	}
	s.put(p, n)
}

// put stores n under the canonical form of p.
func (s *Store) put(p board.Position, n Node) {
	key, sym := p.MinimalReflection()
	if b, isBranch := n.(Branch); isBranch && sym != board.Identity {
		b.Unplayed = b.Unplayed.reflect(sym)
		n = b
	}

	s.mu.Lock()
	s.nodes[key] = n
	s.mu.Unlock()
}

// Successors returns the legal moves of p whose children are in the book,
// valued from p's point of view. Absent children are skipped.
func (s *Store) Successors(p board.Position) []Successor {
	moves := p.LegalMoves()
	succ := make([]Successor, 0, moves.PopCount())
	for moves != 0 {
		sq := moves.PopLSB()
		if n, ok := s.Lookup(p.Play(sq)); ok {
			succ = append(succ, Successor{Move: sq, Score: -n.Score(), Kind: n.Kind()})
		}
	}
	return succ
}

// Positions returns the canonical positions with the given empty count and
// node kind, in a stable order.
func (s *Store) Positions(empties int, kind Kind) []board.Position {
	s.mu.RLock()
	var out []board.Position
	for p, n := range s.nodes {
		if n.Kind() == kind && p.EmptyCount() == empties {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Entries returns a sorted snapshot of the store.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.nodes))
	for p, n := range s.nodes {
		out = append(out, Entry{Pos: p, Node: n})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

// Counts returns the number of stored nodes per kind.
func (s *Store) Counts() map[Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Kind]int, 3)
	for _, n := range s.nodes {
		counts[n.Kind()]++
	}
	return counts
}
