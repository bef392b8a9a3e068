package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hailam/othellobook/internal/board"
	"github.com/hailam/othellobook/internal/book"
)

// addGamesFile adds every game in path to store.
func addGamesFile(store *book.Store, path string, logger zerolog.Logger) (added, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open games file")
	}
	defer f.Close()
	return addGames(store, f, logger)
}

// addGames reads one move list per line. Blank lines and lines starting
// with '#' are ignored; games that fail to parse or replay are logged and
// skipped.
func addGames(store *book.Store, r io.Reader, logger zerolog.Logger) (added, skipped int, err error) {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		g, err := board.ParseGame(text)
		if err == nil {
			err = store.AddGame(g)
		}
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping game")
			skipped++
			continue
		}
		added++
	}
	return added, skipped, errors.Wrap(sc.Err(), "read games")
}
