package book

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/board"
)

// fakeProvider answers every search with the lowest requested move and a
// score chosen by the test.
type fakeProvider struct {
	threshold int
	searches  *atomic.Int32
	solves    *atomic.Int32
	score     func(p board.Position, move board.Square) int
	lastMoves *atomic.Uint64
	err       error
	panics    bool
}

func (f *fakeProvider) RestrictedSearch(p board.Position, moves board.Bitboard) (Result, error) {
	if f.panics {
		panic("search exploded")
	}
	if f.err != nil {
		return Result{Move: board.NoSquare}, f.err
	}
	f.searches.Add(1)
	f.lastMoves.Store(uint64(moves))
	sq := moves.LSB()
	return Result{Move: sq, Score: f.score(p, sq)}, nil
}

func (f *fakeProvider) ExactSolve(p board.Position) (Result, error) {
	if f.err != nil {
		return Result{Move: board.NoSquare}, f.err
	}
	f.solves.Add(1)
	sq := p.LegalMoves().LSB()
	return Result{Move: sq, Score: f.score(p, sq)}, nil
}

func (f *fakeProvider) ExactSolveThreshold() int { return f.threshold }

func newFake(threshold int, score func(board.Position, board.Square) int) *fakeProvider {
	return &fakeProvider{
		threshold: threshold,
		searches:  new(atomic.Int32),
		solves:    new(atomic.Int32),
		lastMoves: new(atomic.Uint64),
		score:     score,
	}
}

func newTestBuilder(t *testing.T, s *Store, f *fakeProvider, workers int) *Builder {
	t.Helper()
	b, err := NewBuilder(s, BuilderConfig{
		Workers:     workers,
		NewProvider: func(int) Provider { return f },
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestNewBuilderRequiresProvider(t *testing.T) {
	if _, err := NewBuilder(New(0), BuilderConfig{}); err == nil {
		t.Error("Expected error without a provider factory")
	}
}

func TestNegamaxBranchIsBestChild(t *testing.T) {
	is := is.New(t)
	root := twoMoves()
	s := New(59)
	s.AddUnevaluatedPosition(root)
	// c1 is already worth 4 to the root mover.
	s.Put(root.Play(board.C1), Leaf{Disks: -4})

	f := newFake(0, func(board.Position, board.Square) int { return 2 })
	stats, err := newTestBuilder(t, s, f, 1).Negamax(context.Background())
	is.NoErr(err)

	is.Equal(f.searches.Load(), int32(1))
	// Only the absent child is searched, in the stored orientation.
	_, sym := root.MinimalReflection()
	is.True(sym != board.Identity)
	is.Equal(board.Bitboard(f.lastMoves.Load()), board.SquareBB(board.A3.Reflect(sym)))
	is.Equal(stats.Searched, 1)

	child, ok := s.Lookup(root.Play(board.A3))
	is.True(ok)
	is.Equal(child, Leaf{Disks: -2})

	n, ok := s.Lookup(root)
	is.True(ok)
	is.Equal(n.Score(), 4)
	b := n.(Branch)
	sq, known := b.Unplayed.Square()
	is.True(known)
	is.Equal(sq, board.C1)
}

func TestNegamaxIncremental(t *testing.T) {
	s := New(60)
	s.AddUnevaluatedPosition(board.Start())
	f := newFake(0, func(board.Position, board.Square) int { return 1 })
	b := newTestBuilder(t, s, f, 2)

	stats, err := b.Negamax(context.Background())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if got := f.searches.Load(); got != 1 {
		t.Fatalf("Expected 1 search on the first pass, got %d", got)
	}
	if stats.Searched != 1 || stats.Skipped != 0 {
		t.Errorf("Unexpected first pass stats: %+v", stats)
	}

	stats, err = b.Negamax(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := f.searches.Load(); got != 1 {
		t.Errorf("Expected no new searches on the second pass, got %d total", got)
	}
	if stats.Skipped != 1 {
		t.Errorf("Expected the root to be skipped, got %+v", stats)
	}

	n, _ := s.Lookup(board.Start())
	if n.Score() != 1 {
		t.Errorf("Expected root score 1, got %d", n.Score())
	}
}

func TestNegamaxAllChildrenExpanded(t *testing.T) {
	is := is.New(t)
	root := twoMoves()
	s := New(59)
	s.AddUnevaluatedPosition(root)
	s.Put(root.Play(board.C1), Solved{Disks: -4})
	s.Put(root.Play(board.A3), Solved{Disks: 6})

	f := newFake(0, func(board.Position, board.Square) int { return 0 })
	stats, err := newTestBuilder(t, s, f, 1).Negamax(context.Background())
	is.NoErr(err)
	is.Equal(f.searches.Load(), int32(0))
	is.Equal(stats.Skipped, 1)

	n, _ := s.Lookup(root)
	is.Equal(n, Branch{Disks: 4, Unplayed: NoneRemaining})
}

func TestNegamaxExactSolve(t *testing.T) {
	is := is.New(t)
	s := New(59)
	s.AddUnevaluatedPosition(board.Start())

	f := newFake(60, func(board.Position, board.Square) int { return -2 })
	stats, err := newTestBuilder(t, s, f, 1).Negamax(context.Background())
	is.NoErr(err)
	is.Equal(f.solves.Load(), int32(1))
	is.Equal(stats.Solved, 1)

	n, _ := s.Lookup(board.Start())
	is.Equal(n, Solved{Disks: -2})

	// The best child is stored too, since it lies above the minimum depth.
	child, ok := s.Lookup(board.Start().Play(board.D3))
	is.True(ok)
	is.Equal(child, Solved{Disks: 2})
	is.Equal(s.Len(), 2)
}

func TestNegamaxExactAtMinDepthStoresNoChild(t *testing.T) {
	s := New(60)
	s.AddUnevaluatedPosition(board.Start())

	f := newFake(60, func(board.Position, board.Square) int { return 0 })
	if _, err := newTestBuilder(t, s, f, 1).Negamax(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Expected only the root, got %d positions", s.Len())
	}
}

func TestNegamaxBottomUp(t *testing.T) {
	is := is.New(t)
	s := New(0)
	g, err := board.ParseGame("f5d6c3d3c4")
	is.NoErr(err)
	is.NoErr(s.AddGame(g))

	f := newFake(0, func(board.Position, board.Square) int { return 3 })
	stats, err := newTestBuilder(t, s, f, 4).Negamax(context.Background())
	is.NoErr(err)

	// Every opening move leads to the f5 branch, so the root needs no search.
	is.Equal(stats.Searched, 5)
	is.Equal(stats.Skipped, 1)

	// Below the root each branch holds a searched leaf worth 3 and a branch
	// child worth 3 to the opponent, so each is worth 3.
	for _, p := range s.Positions(59, KindBranch) {
		n, _ := s.Lookup(p)
		is.Equal(n.Score(), 3)
	}
	n, _ := s.Lookup(board.Start())
	is.Equal(n, Branch{Disks: -3, Unplayed: NoneRemaining})
}

func TestNegamaxProviderError(t *testing.T) {
	errBoom := errors.New("boom")
	s := New(0)
	g, _ := board.ParseGame("f5d6c3")
	if err := s.AddGame(g); err != nil {
		t.Fatal(err)
	}

	f := newFake(0, func(board.Position, board.Square) int { return 0 })
	f.err = errBoom
	_, err := newTestBuilder(t, s, f, 3).Negamax(context.Background())
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected provider error, got %v", err)
	}
}

func TestNegamaxProviderPanic(t *testing.T) {
	s := New(60)
	s.AddUnevaluatedPosition(board.Start())

	f := newFake(0, func(board.Position, board.Square) int { return 0 })
	f.panics = true
	if _, err := newTestBuilder(t, s, f, 2).Negamax(context.Background()); err == nil {
		t.Error("Expected provider panic to abort the pass")
	}
}

func TestNegamaxCancelled(t *testing.T) {
	s := New(60)
	s.AddUnevaluatedPosition(board.Start())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFake(0, func(board.Position, board.Square) int { return 0 })
	if _, err := newTestBuilder(t, s, f, 1).Negamax(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
