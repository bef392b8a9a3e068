package engine

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/hailam/othellobook/internal/board"
)

// Number of shards, one per empty-square count.
const numShards = 64

// Score bounds stored in a fresh entry. Both searchers return scores
// strictly inside this range.
const (
	boundInf = 1 << 14
)

// clearedKey can never match a real position: no square is both the
// mover's and the enemy's.
var clearedKey = board.Position{Mover: board.Universe, Enemy: board.Universe}

// hashPosition hashes the 16-byte little-endian encoding of p.
func hashPosition(p board.Position) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Mover))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.Enemy))
	return xxhash.Sum64(buf[:])
}

// SolverEntry holds exact-solve bounds for one position.
type SolverEntry struct {
	pos      board.Position
	min, max int
}

func (e *SolverEntry) reset() {
	*e = SolverEntry{pos: clearedKey, min: -boundInf, max: boundInf}
}

// Matches reports whether the entry holds p.
func (e *SolverEntry) Matches(p board.Position) bool {
	return e.pos == p
}

// Bounds returns the stored lower and upper bound.
func (e *SolverEntry) Bounds() (lower, upper int) {
	return e.min, e.max
}

// Update records the result of a search of p with window (alpha, beta).
// A different position is overwritten; the same position has its bounds
// tightened.
func (e *SolverEntry) Update(p board.Position, alpha, beta, result int) {
	if e.pos != p {
		e.pos = p
		e.min, e.max = boundsFor(alpha, beta, result)
		return
	}
	e.min, e.max = mergeBounds(e.min, e.max, alpha, beta, result)
}

// CutsOff reports whether the stored bounds decide a search with window
// (alpha, beta).
func (e *SolverEntry) CutsOff(alpha, beta int) bool {
	return cutsOff(e.min, e.max, alpha, beta)
}

// Value returns the score to return after CutsOff succeeded.
func (e *SolverEntry) Value(alpha, beta int) int {
	return cutValue(e.min, e.max, beta)
}

// MidgameEntry holds midgame bounds together with the depth and MPC width
// they were searched at, plus a best-move hint.
type MidgameEntry struct {
	pos      board.Position
	min, max int
	depth    int8
	width    int8
	best     board.Square
}

func (e *MidgameEntry) reset() {
	*e = MidgameEntry{
		pos:   clearedKey,
		min:   -boundInf,
		max:   boundInf,
		depth: -1,
		width: -1,
		best:  board.NoSquare,
	}
}

// Matches reports whether the entry holds p.
func (e *MidgameEntry) Matches(p board.Position) bool {
	return e.pos == p
}

// Bounds returns the stored lower and upper bound.
func (e *MidgameEntry) Bounds() (lower, upper int) {
	return e.min, e.max
}

// BestMove returns the stored move hint, or board.NoSquare.
func (e *MidgameEntry) BestMove() board.Square {
	return e.best
}

// DeepEnoughToSearch reports whether the stored bounds were searched at
// least as deep and as wide as requested.
func (e *MidgameEntry) DeepEnoughToSearch(depth, width int) bool {
	return int(e.depth) >= depth && int(e.width) >= width
}

// Update records the result of a search of p. A different position is
// overwritten. For the same position a deeper-and-wider search replaces the
// bounds, an equal one merges them and a shallower or narrower one is
// ignored. A valid best move is always recorded.
func (e *MidgameEntry) Update(p board.Position, depth, width, alpha, beta, result int, best board.Square) {
	switch {
	case e.pos != p:
		e.pos = p
		e.depth, e.width = int8(depth), int8(width)
		e.min, e.max = boundsFor(alpha, beta, result)
		e.best = board.NoSquare
	case depth == int(e.depth) && width == int(e.width):
		e.min, e.max = mergeBounds(e.min, e.max, alpha, beta, result)
	case depth >= int(e.depth) && width >= int(e.width):
		e.depth, e.width = int8(depth), int8(width)
		e.min, e.max = boundsFor(alpha, beta, result)
	}
	if best.IsValid() {
		e.best = best
	}
}

// CutsOff reports whether the stored bounds decide a search with window
// (alpha, beta).
func (e *MidgameEntry) CutsOff(alpha, beta int) bool {
	return cutsOff(e.min, e.max, alpha, beta)
}

// Value returns the score to return after CutsOff succeeded.
func (e *MidgameEntry) Value(alpha, beta int) int {
	return cutValue(e.min, e.max, beta)
}

func boundsFor(alpha, beta, result int) (lower, upper int) {
	switch {
	case result >= beta:
		return result, boundInf
	case result <= alpha:
		return -boundInf, result
	default:
		return result, result
	}
}

// mergeBounds tightens (lower, upper) with a new result. The bounds never
// widen and lower <= upper always holds.
func mergeBounds(lower, upper, alpha, beta, result int) (int, int) {
	switch {
	case result >= beta:
		if result > lower {
			lower = result
		}
		if upper < lower {
			upper = lower
		}
	case result <= alpha:
		if result < upper {
			upper = result
		}
		if lower > upper {
			lower = upper
		}
	default:
		lower, upper = result, result
	}
	return lower, upper
}

func cutsOff(lower, upper, alpha, beta int) bool {
	return lower >= beta || upper <= alpha || lower == upper
}

func cutValue(lower, upper, beta int) int {
	if lower >= beta || lower == upper {
		return lower
	}
	return upper
}

// slot is the constraint on table entries.
type slot[E any] interface {
	*E
	reset()
	Matches(board.Position) bool
}

// Table is a direct-mapped hash table with one shard per empty-square
// count. Shards are allocated on first use. A collision evicts.
//
// A Table is owned by one worker and is not safe for concurrent use.
type Table[E any, P slot[E]] struct {
	shards [numShards][]E

	hits   uint64
	probes uint64
}

// SolverTable caches exact-solve bounds.
type SolverTable = Table[SolverEntry, *SolverEntry]

// MidgameTable caches midgame bounds.
type MidgameTable = Table[MidgameEntry, *MidgameEntry]

// shardSize returns the number of entries for a shard. Near-terminal
// positions are cheap to re-search and get small shards.
func shardSize(empties int) int {
	switch {
	case empties < 10:
		return 1 << 10
	case empties < 14:
		return 1 << 11
	case empties < 18:
		return 1 << 12
	case empties < 22:
		return 1 << 13
	default:
		return 1 << 14
	}
}

func shardIndex(p board.Position) int {
	e := p.EmptyCount()
	if e >= numShards {
		e = numShards - 1
	}
	return e
}

// Probe returns the slot for p and whether it currently holds p. The slot
// may be updated in place.
func (t *Table[E, P]) Probe(p board.Position) (P, bool) {
	idx := shardIndex(p)
	shard := t.shards[idx]
	if shard == nil {
		shard = make([]E, shardSize(idx))
		for i := range shard {
			P(&shard[i]).reset()
		}
		t.shards[idx] = shard
	}

	t.probes++
	entry := P(&shard[hashPosition(p)&uint64(len(shard)-1)])
	if entry.Matches(p) {
		t.hits++
		return entry, true
	}
	return entry, false
}

// Clear resets every shard with at most maxEmpty empty squares, along with
// the hit statistics.
func (t *Table[E, P]) Clear(maxEmpty int) {
	for e := 0; e < numShards && e <= maxEmpty; e++ {
		shard := t.shards[e]
		for i := range shard {
			P(&shard[i]).reset()
		}
	}
	t.hits = 0
	t.probes = 0
}

// HitRate returns the probe hit rate as a percentage.
func (t *Table[E, P]) HitRate() float64 {
	if t.probes == 0 {
		return 0
	}
	return float64(t.hits) / float64(t.probes) * 100
}

// Allocated returns the number of allocated entries.
func (t *Table[E, P]) Allocated() int {
	n := 0
	for _, shard := range t.shards {
		n += len(shard)
	}
	return n
}
