package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/book"
)

// Storage keys
const (
	nodePrefix = "node/"
	keyStats   = "stats"
	keyVersion = "version"
)

// BuildStats accumulates statistics over book builds.
type BuildStats struct {
	Builds        int            `json:"builds"`
	Solved        int            `json:"solved"`
	Searched      int            `json:"searched"`
	Skipped       int            `json:"skipped"`
	TotalDuration time.Duration  `json:"total_duration"`
	LastBuild     time.Time      `json:"last_build"`
	Positions     map[string]int `json:"positions"` // By node kind, after the last build
}

// NewBuildStats returns empty statistics.
func NewBuildStats() *BuildStats {
	return &BuildStats{
		Positions: make(map[string]int),
	}
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage(log zerolog.Logger) (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir, log)
}

// Open opens the database in dir.
func Open(dir string, log zerolog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions(dir), log)
}

// OpenInMemory opens a database that is never written to disk.
func OpenInMemory(log zerolog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

func open(opts badger.Options, log zerolog.Logger) (*Storage, error) {
	opts.Logger = badgerLogger{log: log.With().Str("component", "badger").Logger()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open book database")
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveBook replaces the stored book with the contents of store.
func (s *Storage) SaveBook(store *book.Store) error {
	if err := s.db.DropPrefix([]byte(nodePrefix)); err != nil {
		return errors.Wrap(err, "drop old book")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range store.Entries() {
		key := append([]byte(nodePrefix), book.EncodePosition(e.Pos)...)
		if err := wb.Set(key, book.EncodeNode(e.Node)); err != nil {
			return errors.Wrap(err, "write book node")
		}
	}
	if err := wb.Set([]byte(keyVersion), []byte(fmt.Sprint(book.Version))); err != nil {
		return errors.Wrap(err, "write book version")
	}
	return errors.Wrap(wb.Flush(), "flush book")
}

// LoadBook reads the stored book. An empty database yields an empty store.
func (s *Storage) LoadBook(minDepth int) (*book.Store, error) {
	store := book.New(minDepth)

	err := s.db.View(func(txn *badger.Txn) error {
		if item, err := txn.Get([]byte(keyVersion)); err == nil {
			var version string
			if err := item.Value(func(val []byte) error {
				version = string(val)
				return nil
			}); err != nil {
				return err
			}
			if version != fmt.Sprint(book.Version) {
				return errors.Wrapf(book.ErrVersionMismatch, "database has version %s", version)
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		prefix := []byte(nodePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			pos, err := book.DecodePosition(item.Key()[len(prefix):])
			if err != nil {
				return err
			}
			if !pos.HasLegalMove() {
				return errors.Wrapf(book.ErrMalformed, "stored position without moves\n%s", pos)
			}
			err = item.Value(func(val []byte) error {
				node, err := book.DecodeNode(val)
				if err != nil {
					return err
				}
				store.Put(pos, node)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, errors.Wrap(err, "load book")
	}
	return store, nil
}

// SaveStats saves build statistics
func (s *Storage) SaveStats(stats *BuildStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// LoadStats loads build statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*BuildStats, error) {
	stats := NewBuildStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// RecordBuild adds one negamax pass to the statistics, along with the
// node counts of the resulting book.
func (s *Storage) RecordBuild(run book.Stats, counts map[book.Kind]int) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Builds++
	stats.Solved += run.Solved
	stats.Searched += run.Searched
	stats.Skipped += run.Skipped
	stats.TotalDuration += run.Duration
	stats.LastBuild = time.Now()

	if stats.Positions == nil {
		stats.Positions = make(map[string]int)
	}
	for _, k := range []book.Kind{book.KindSolved, book.KindLeaf, book.KindBranch} {
		stats.Positions[k.String()] = counts[k]
	}

	return s.SaveStats(stats)
}

// Total returns the number of positions counted after the last build.
func (s *BuildStats) Total() int {
	n := 0
	for _, c := range s.Positions {
		n += c
	}
	return n
}

// badgerLogger routes badger's log output through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(trimNewline(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(trimNewline(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(trimNewline(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(trimNewline(format), args...)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
