package board

import (
	"fmt"
	"strings"
)

// Game is a sequence of moves played from a start position. Passes are not
// recorded; they are implied whenever the side to move has no legal move.
type Game struct {
	Start Position
	Moves []Square
}

// ParseGame parses a move list such as "f5d6c3d3" or "F5 d6 c3 pa d3"
// starting from the standard position. Explicit pass tokens are skipped.
func ParseGame(text string) (Game, error) {
	g := Game{Start: Start()}
	s := strings.ToLower(strings.Join(strings.Fields(text), ""))
	s = strings.ReplaceAll(s, "pass", "")
	s = strings.ReplaceAll(s, "pa", "")
	if len(s)%2 != 0 {
		return Game{}, fmt.Errorf("move list has odd length: %q", text)
	}
	for i := 0; i < len(s); i += 2 {
		sq, err := ParseSquare(s[i : i+2])
		if err != nil {
			return Game{}, fmt.Errorf("move %d: %w", i/2+1, err)
		}
		g.Moves = append(g.Moves, sq)
	}
	return g, nil
}

// Replay walks the game, calling visit with each position reached before a
// move is played and once more with the final position. Forced passes are
// taken before visiting. An illegal move stops the replay with an error.
func (g Game) Replay(visit func(Position)) error {
	p := g.Start
	for i, sq := range g.Moves {
		if !p.HasLegalMove() {
			p = p.Pass()
		}
		visit(p)
		if !p.IsLegal(sq) {
			return fmt.Errorf("move %d (%s) is illegal", i+1, sq)
		}
		p = p.Play(sq)
	}
	if !p.HasLegalMove() && p.Pass().HasLegalMove() {
		p = p.Pass()
	}
	visit(p)
	return nil
}

// String returns the compact move list.
func (g Game) String() string {
	var sb strings.Builder
	for _, sq := range g.Moves {
		sb.WriteString(sq.String())
	}
	return sb.String()
}
