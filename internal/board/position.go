package board

import (
	"fmt"
	"strings"
)

// Position is an Othello position seen from the side to move.
// Mover holds the discs of the player to move, Enemy those of the opponent.
// The two sets are always disjoint.
type Position struct {
	Mover Bitboard
	Enemy Bitboard
}

// Start returns the standard starting position with black to move.
func Start() Position {
	return Position{
		Mover: SquareBB(D5) | SquareBB(E4),
		Enemy: SquareBB(D4) | SquareBB(E5),
	}
}

// Empties returns the bitboard of empty squares.
func (p Position) Empties() Bitboard {
	return ^(p.Mover | p.Enemy)
}

// EmptyCount returns the number of empty squares.
func (p Position) EmptyCount() int {
	return p.Empties().PopCount()
}

// LegalMoves returns the set of squares the mover may play.
func (p Position) LegalMoves() Bitboard {
	empty := p.Empties()
	var moves Bitboard
	for _, shift := range shifts {
		x := shift(p.Mover) & p.Enemy
		for i := 0; i < 5; i++ {
			x |= shift(x) & p.Enemy
		}
		moves |= shift(x) & empty
	}
	return moves
}

// HasLegalMove returns true if the mover has at least one legal move.
func (p Position) HasLegalMove() bool {
	return p.LegalMoves() != 0
}

// IsLegal returns true if the mover may play sq.
func (p Position) IsLegal(sq Square) bool {
	return sq.IsValid() && p.LegalMoves().IsSet(sq)
}

// IsTerminal returns true if neither side can move.
func (p Position) IsTerminal() bool {
	return !p.HasLegalMove() && !p.Pass().HasLegalMove()
}

// Flips returns the enemy discs turned over by playing sq.
func (p Position) Flips(sq Square) Bitboard {
	if p.Empties()&SquareBB(sq) == 0 {
		return 0
	}
	var flips Bitboard
	for _, shift := range shifts {
		var line Bitboard
		x := shift(SquareBB(sq))
		for x&p.Enemy != 0 {
			line |= x
			x = shift(x)
		}
		if x&p.Mover != 0 {
			flips |= line
		}
	}
	return flips
}

// Play returns the position after the mover plays sq, from the opponent's
// point of view. Playing an illegal square is a programming error and panics.
func (p Position) Play(sq Square) Position {
	if !sq.IsValid() {
		panic(fmt.Sprintf("board: play of invalid square %d", sq))
	}
	flips := p.Flips(sq)
	if flips == 0 {
		panic(fmt.Sprintf("board: illegal move %s", sq))
	}
	return Position{
		Mover: p.Enemy &^ flips,
		Enemy: p.Mover | flips | SquareBB(sq),
	}
}

// Pass returns the position with the players swapped.
func (p Position) Pass() Position {
	return Position{Mover: p.Enemy, Enemy: p.Mover}
}

// TerminalScore returns the final net disk count from the mover's point of
// view. Empty squares are awarded to the winner.
func (p Position) TerminalScore() int {
	mover := p.Mover.PopCount()
	enemy := p.Enemy.PopCount()
	diff := mover - enemy
	switch {
	case diff > 0:
		diff += p.EmptyCount()
	case diff < 0:
		diff -= p.EmptyCount()
	}
	return diff
}

// Less orders positions by mover then enemy bitboard.
func (p Position) Less(o Position) bool {
	if p.Mover != o.Mover {
		return p.Mover < o.Mover
	}
	return p.Enemy < o.Enemy
}

// String renders the board with '*' for the mover and 'O' for the enemy.
func (p Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			switch {
			case p.Mover.IsSet(sq):
				sb.WriteString("* ")
			case p.Enemy.IsSet(sq):
				sb.WriteString("O ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
