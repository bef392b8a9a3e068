package book

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/othellobook/internal/board"
)

// MaxEmpties is the empty count of the starting position.
const MaxEmpties = 60

// BuilderConfig configures the negamax driver.
type BuilderConfig struct {
	// Workers is the number of search workers (0 = NumCPU).
	Workers int
	// NewProvider is called once per worker.
	NewProvider func(worker int) Provider
	// Logger receives per-depth progress.
	Logger zerolog.Logger
}

// Stats summarizes one negamax pass.
type Stats struct {
	Solved   int           `json:"solved"`   // Exact solves applied
	Searched int           `json:"searched"` // Restricted searches applied
	Skipped  int           `json:"skipped"`  // Branches whose frontier had not moved
	Updated  int           `json:"updated"`  // Branch scores rewritten
	Duration time.Duration `json:"duration"`
}

// Builder resolves the branch nodes of a Store bottom-up.
type Builder struct {
	store     *Store
	providers []Provider
	log       zerolog.Logger
}

// NewBuilder creates a builder with one provider per worker.
func NewBuilder(store *Store, cfg BuilderConfig) (*Builder, error) {
	if cfg.NewProvider == nil {
		return nil, errors.New("book: builder needs a provider factory")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	providers := make([]Provider, cfg.Workers)
	for i := range providers {
		providers[i] = cfg.NewProvider(i)
	}

	return &Builder{
		store:     store,
		providers: providers,
		log:       cfg.Logger,
	}, nil
}

// task is the outcome of one worker task, applied by the consumer.
type task struct {
	pos      board.Position
	exact    bool
	searched bool // A provider call was made and res holds its answer
	res      Result
}

// Negamax runs one resolution pass over the store, from the fewest empty
// squares upward. Every branch at one empty count is resolved before any
// branch with more empties, since parents depend on their children.
//
// A provider error or panic aborts the pass and is returned.
func (b *Builder) Negamax(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats
	threshold := b.providers[0].ExactSolveThreshold()

	for empties := b.store.MinDepth(); empties <= MaxEmpties; empties++ {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		branches := b.store.Positions(empties, KindBranch)
		if len(branches) == 0 {
			continue
		}
		exact := empties <= threshold

		depthStart := time.Now()
		err := b.resolve(ctx, branches, exact, func(t task) {
			b.apply(t, empties, &stats)
		})
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, errors.Wrapf(err, "resolve %d empties", empties)
		}

		b.log.Info().
			Int("empties", empties).
			Int("branches", len(branches)).
			Bool("exact", exact).
			Dur("elapsed", time.Since(depthStart)).
			Msg("depth resolved")
	}

	stats.Duration = time.Since(start)
	b.log.Info().
		Int("solved", stats.Solved).
		Int("searched", stats.Searched).
		Int("skipped", stats.Skipped).
		Int("updated", stats.Updated).
		Dur("elapsed", stats.Duration).
		Msg("negamax complete")
	return stats, nil
}

// resolve fans positions out to the workers and hands each finished task to
// apply, in completion order, on the calling goroutine. The caller is
// therefore the only writer to the store.
func (b *Builder) resolve(ctx context.Context, positions []board.Position, exact bool, apply func(task)) error {
	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan board.Position)
	done := make(chan task, len(b.providers))

	g.Go(func() error {
		defer close(queue)
		for _, p := range positions {
			select {
			case queue <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for id, provider := range b.providers {
		id, provider := id, provider
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for p := range queue {
				t, err := b.run(provider, p, exact)
				if err != nil {
					return errors.Wrapf(err, "worker %d", id)
				}
				select {
				case done <- t:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		workers.Wait()
		close(done)
	}()

	for t := range done {
		if gctx.Err() != nil {
			continue
		}
		apply(t)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// run performs the provider work for one branch. It only reads the store.
func (b *Builder) run(provider Provider, p board.Position, exact bool) (t task, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("provider panic: %v", r)
		}
	}()

	t = task{pos: p, exact: exact}
	if exact {
		res, err := provider.ExactSolve(p)
		if err != nil {
			return t, errors.Wrap(err, "exact solve")
		}
		t.res, t.searched = res, true
		return t, nil
	}

	moves, resolved := b.frontier(p)
	if resolved || moves == 0 {
		return t, nil
	}
	res, err := provider.RestrictedSearch(p, moves)
	if err != nil {
		return t, errors.Wrap(err, "restricted search")
	}
	t.res, t.searched = res, true
	return t, nil
}

// frontier returns the legal moves of p whose children are absent from the
// store. resolved is true when the cached unplayed move shows that another
// search cannot change the branch: no moves remain, or the best unplayed
// move already leads to a leaf.
func (b *Builder) frontier(p board.Position) (moves board.Bitboard, resolved bool) {
	if n, ok := b.store.Lookup(p); ok {
		if br, isBranch := n.(Branch); isBranch {
			if br.Unplayed.IsNoneRemaining() {
				return 0, true
			}
			if sq, known := br.Unplayed.Square(); known && p.IsLegal(sq) {
				if child, ok := b.store.Lookup(p.Play(sq)); ok && child.Kind() == KindLeaf {
					return 0, true
				}
			}
		}
	}

	legal := p.LegalMoves()
	for legal != 0 {
		sq := legal.PopLSB()
		if _, ok := b.store.Lookup(p.Play(sq)); !ok {
			moves |= board.SquareBB(sq)
		}
	}
	return moves, false
}

// apply writes one task's outcome back into the store.
func (b *Builder) apply(t task, empties int, stats *Stats) {
	p := t.pos

	if t.exact {
		if !t.searched || !p.IsLegal(t.res.Move) {
			return
		}
		b.store.Put(p, Solved{Disks: t.res.Score})
		stats.Solved++
		if empties > b.store.MinDepth() {
			if child := p.Play(t.res.Move); !child.IsTerminal() {
				b.store.Put(child, Solved{Disks: -t.res.Score})
			}
		}
		return
	}

	if t.searched {
		if !p.IsLegal(t.res.Move) {
			return
		}
		child := p.Play(t.res.Move)
		if !child.IsTerminal() {
			if n, ok := b.store.Lookup(child); !ok || n.Kind() == KindLeaf {
				b.store.Put(child, Leaf{Disks: -t.res.Score})
			}
		}
		stats.Searched++
	} else {
		stats.Skipped++
	}

	if br, ok := b.valueBranch(p); ok {
		b.store.Put(p, br)
		stats.Updated++
	}
}

// valueBranch computes the negamax value of p over its stored children and
// the best move that still leads to a leaf.
func (b *Builder) valueBranch(p board.Position) (Branch, bool) {
	var (
		found     bool
		best      int
		leafMove  = board.NoSquare
		leafScore int
		missing   bool
	)

	legal := p.LegalMoves()
	for legal != 0 {
		sq := legal.PopLSB()
		n, ok := b.store.Lookup(p.Play(sq))
		if !ok {
			missing = true
			continue
		}
		v := -n.Score()
		if !found || v > best {
			best, found = v, true
		}
		if n.Kind() == KindLeaf && (leafMove == board.NoSquare || v > leafScore) {
			leafMove, leafScore = sq, v
		}
	}
	if !found {
		return Branch{}, false
	}

	unplayed := NoneRemaining
	switch {
	case leafMove != board.NoSquare:
		unplayed = KnownUnplayed(leafMove)
	case missing:
		unplayed = UnplayedUnknown
	}
	return Branch{Disks: best, Unplayed: unplayed}, true
}
