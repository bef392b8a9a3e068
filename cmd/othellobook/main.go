// Command othellobook builds an Othello opening book from game records.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/book"
	"github.com/hailam/othellobook/internal/config"
	"github.com/hailam/othellobook/internal/engine"
	"github.com/hailam/othellobook/internal/storage"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	bookPath   = flag.String("book", "", "book file, compressed if it ends in .zst (default: platform data directory)")
	useDB      = flag.Bool("db", false, "store the book in the database instead of a file")
	dataDir    = flag.String("data-dir", "", "database directory (default: platform data directory)")
	gamesPath  = flag.String("games", "", "file of move lists to add, one game per line")
	minDepth   = flag.Int("min-depth", 0, "smallest empty count stored for game positions")
	solveDepth = flag.Int("solve-depth", 0, "largest empty count solved exactly")
	depth      = flag.Int("depth", 0, "midgame search depth")
	width      = flag.Int("width", 0, "midgame MPC width (0-4, 4 = no cuts)")
	workers    = flag.Int("workers", 0, "search workers")
	logLevel   = flag.String("log-level", "", "log level (trace, debug, info, warn, error)")
	bench      = flag.Int("bench", 0, "benchmark the solver at this many empties and exit")
	benchCount = flag.Int("bench-count", 20, "positions solved by -bench")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	logger := newLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		logger.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	if *bench > 0 {
		engine.NewEngine(cfg.Engine(), nil, nil, logger).Bench(*bench, *benchCount)
		return
	}

	// Interrupting stops new searches; finished results are still saved.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		pprof.StopCPUProfile()
		logger.Fatal().Err(err).Msg("book build failed")
	}
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "book":
			cfg.BookPath = *bookPath
		case "db":
			cfg.UseDatabase = *useDB
		case "data-dir":
			cfg.DataDir = *dataDir
		case "min-depth":
			cfg.MinDepth = *minDepth
		case "solve-depth":
			cfg.SolveDepth = *solveDepth
		case "depth":
			cfg.MidgameDepth = *depth
		case "width":
			cfg.MidgameWidth = *width
		case "workers":
			cfg.Workers = *workers
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	var db *storage.Storage
	if cfg.UseDatabase {
		var err error
		if cfg.DataDir != "" {
			db, err = storage.Open(cfg.DataDir, logger)
		} else {
			db, err = storage.NewStorage(logger)
		}
		if err != nil {
			return err
		}
		defer db.Close()
	}

	if db == nil && cfg.BookPath == "" {
		path, err := storage.DefaultBookPath()
		if err != nil {
			return err
		}
		cfg.BookPath = path
	}

	store, err := loadBook(cfg, db)
	if err != nil {
		return err
	}
	logger.Info().Str("book", cfg.BookPath).Int("positions", store.Len()).Msg("book loaded")

	if *gamesPath != "" {
		added, skipped, err := addGamesFile(store, *gamesPath, logger)
		if err != nil {
			return err
		}
		logger.Info().
			Int("games", added).
			Int("skipped", skipped).
			Int("positions", store.Len()).
			Msg("games added")
	}

	eng := engine.NewEngine(cfg.Engine(), nil, store, logger)
	builder, err := book.NewBuilder(store, book.BuilderConfig{
		Workers:     cfg.Workers,
		NewProvider: eng.Provider,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	stats, buildErr := builder.Negamax(ctx)
	if buildErr != nil && !errors.Is(buildErr, context.Canceled) {
		return buildErr
	}

	if err := saveBook(cfg, db, store); err != nil {
		return err
	}
	if db != nil {
		if err := db.RecordBuild(stats, store.Counts()); err != nil {
			return errors.Wrap(err, "record build")
		}
	}

	counts := store.Counts()
	logger.Info().
		Int("solved", counts[book.KindSolved]).
		Int("leaves", counts[book.KindLeaf]).
		Int("branches", counts[book.KindBranch]).
		Msg("book saved")
	return buildErr
}

func loadBook(cfg config.Config, db *storage.Storage) (*book.Store, error) {
	if db != nil {
		return db.LoadBook(cfg.MinDepth)
	}
	if _, err := os.Stat(cfg.BookPath); os.IsNotExist(err) {
		return book.New(cfg.MinDepth), nil
	}
	return book.LoadFile(cfg.BookPath, cfg.MinDepth)
}

func saveBook(cfg config.Config, db *storage.Storage, store *book.Store) error {
	if db != nil {
		return db.SaveBook(store)
	}
	return store.SaveFile(cfg.BookPath)
}
