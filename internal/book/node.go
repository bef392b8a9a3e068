package book

import (
	"fmt"

	"github.com/hailam/othellobook/internal/board"
)

// Kind is the node-type ordinal used on the wire.
type Kind uint8

const (
	KindSolved Kind = iota // Exact game-theoretic value
	KindLeaf               // Searched once, never expanded
	KindBranch             // Value derived from the best child
)

func (k Kind) String() string {
	switch k {
	case KindSolved:
		return "solved"
	case KindLeaf:
		return "leaf"
	case KindBranch:
		return "branch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is a book record. Scores are net disks from the mover's point of view.
// The concrete types are Solved, Leaf and Branch.
type Node interface {
	Kind() Kind
	Score() int
	withScore(score int) Node
}

// Solved is a position whose value is exact.
type Solved struct {
	Disks int
}

// Leaf is a position valued by a search but not expanded in the book.
type Leaf struct {
	Disks int
}

// Branch is a position valued through its book children. Unplayed caches the
// best move whose child is absent from the book or is still a Leaf.
type Branch struct {
	Disks    int
	Unplayed Unplayed
}

func (Solved) Kind() Kind { return KindSolved }
func (Leaf) Kind() Kind   { return KindLeaf }
func (Branch) Kind() Kind { return KindBranch }

func (n Solved) Score() int { return n.Disks }
func (n Leaf) Score() int   { return n.Disks }
func (n Branch) Score() int { return n.Disks }

func (n Solved) withScore(score int) Node { return Solved{Disks: score} }
func (n Leaf) withScore(score int) Node   { return Leaf{Disks: score} }
func (n Branch) withScore(score int) Node { return Branch{Disks: score, Unplayed: n.Unplayed} }

// negate returns n seen from the other player.
func negate(n Node) Node {
	return n.withScore(-n.Score())
}

// Unplayed is the tri-state cache of a branch's best unexpanded move.
// The zero value is UnplayedUnknown.
type Unplayed struct {
	code int8 // 0 unknown, 1 none remaining, 2+sq known
}

var (
	// UnplayedUnknown means the best unexpanded move has not been determined.
	UnplayedUnknown = Unplayed{code: 0}
	// NoneRemaining means every legal move leads to an expanded book child.
	NoneRemaining = Unplayed{code: 1}
)

// KnownUnplayed returns the cache value naming sq.
func KnownUnplayed(sq board.Square) Unplayed {
	if !sq.IsValid() {
		panic(fmt.Sprintf("book: invalid unplayed square %d", sq))
	}
	return Unplayed{code: int8(sq) + 2}
}

// Square returns the cached move, if one is known.
func (u Unplayed) Square() (board.Square, bool) {
	if u.code < 2 {
		return board.NoSquare, false
	}
	return board.Square(u.code - 2), true
}

func (u Unplayed) IsUnknown() bool       { return u.code == 0 }
func (u Unplayed) IsNoneRemaining() bool { return u.code == 1 }

// reflect maps a known square through s.
func (u Unplayed) reflect(s board.Symmetry) Unplayed {
	if sq, ok := u.Square(); ok {
		return KnownUnplayed(sq.Reflect(s))
	}
	return u
}

// wire returns the serialized byte: -1 unknown, -2 none remaining, else the square.
func (u Unplayed) wire() int8 {
	switch u.code {
	case 0:
		return -1
	case 1:
		return -2
	default:
		return u.code - 2
	}
}

func unplayedFromWire(b int8) (Unplayed, error) {
	switch {
	case b == -1:
		return UnplayedUnknown, nil
	case b == -2:
		return NoneRemaining, nil
	case b >= 0 && b < 64:
		return KnownUnplayed(board.Square(b)), nil
	default:
		return Unplayed{}, fmt.Errorf("invalid unplayed square %d", b)
	}
}

func (u Unplayed) String() string {
	switch {
	case u.IsUnknown():
		return "unknown"
	case u.IsNoneRemaining():
		return "none"
	default:
		sq, _ := u.Square()
		return sq.String()
	}
}
