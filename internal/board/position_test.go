package board

import (
	"strings"
	"testing"
)

func TestStartLegalMoves(t *testing.T) {
	pos := Start()
	want := SquareBB(D3) | SquareBB(C4) | SquareBB(F5) | SquareBB(E6)
	if got := pos.LegalMoves(); got != want {
		t.Errorf("LegalMoves mismatch:\n%s\nwant:\n%s", got, want)
	}
	if pos.EmptyCount() != 60 {
		t.Errorf("Expected 60 empties, got %d", pos.EmptyCount())
	}
}

func TestPlayFlipsAndSwapsSides(t *testing.T) {
	pos := Start().Play(F5)

	if pos.Mover != SquareBB(D4) {
		t.Errorf("Expected white to keep only d4, got:\n%s", pos.Mover)
	}
	wantEnemy := SquareBB(D5) | SquareBB(E4) | SquareBB(E5) | SquareBB(F5)
	if pos.Enemy != wantEnemy {
		t.Errorf("Expected black discs d5 e4 e5 f5, got:\n%s", pos.Enemy)
	}
	if pos.EmptyCount() != 59 {
		t.Errorf("Expected 59 empties, got %d", pos.EmptyCount())
	}
}

func TestPlayIllegalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on illegal move")
		}
	}()
	Start().Play(A1)
}

func TestPass(t *testing.T) {
	pos := Start()
	passed := pos.Pass()
	if passed.Mover != pos.Enemy || passed.Enemy != pos.Mover {
		t.Error("Pass should swap mover and enemy")
	}
	if passed.Pass() != pos {
		t.Error("Double pass should restore the position")
	}
}

func TestTerminalScore(t *testing.T) {
	t.Run("WinnerTakesEmpties", func(t *testing.T) {
		pos := Position{Mover: SquareBB(A1) | SquareBB(B1), Enemy: SquareBB(H8)}
		if !pos.IsTerminal() {
			t.Fatal("Expected terminal position")
		}
		if got := pos.TerminalScore(); got != 62 {
			t.Errorf("Expected 62, got %d", got)
		}
		if got := pos.Pass().TerminalScore(); got != -62 {
			t.Errorf("Expected -62 for the opponent, got %d", got)
		}
	})

	t.Run("Draw", func(t *testing.T) {
		pos := Position{Mover: 0x00000000FFFFFFFF, Enemy: 0xFFFFFFFF00000000}
		if got := pos.TerminalScore(); got != 0 {
			t.Errorf("Expected draw, got %d", got)
		}
	})
}

func TestMinimalReflection(t *testing.T) {
	positions := []Position{Start(), Start().Play(F5), Start().Play(F5).Play(D6)}

	for _, pos := range positions {
		canon, _ := pos.MinimalReflection()
		again, sym := canon.MinimalReflection()
		if again != canon {
			t.Errorf("MinimalReflection not idempotent for\n%s", pos)
		}
		if sym != Identity {
			t.Errorf("Canonical position should map with identity, got %d", sym)
		}

		for s := Symmetry(0); s < NumSymmetries; s++ {
			r := pos.Reflect(s)
			rmin, rsym := r.MinimalReflection()
			if rmin != canon {
				t.Errorf("Reflection %d has a different canonical form", s)
			}
			if r.Reflect(rsym) != rmin {
				t.Errorf("Returned symmetry %d does not map onto the canonical form", rsym)
			}
			if r.Reflect(s.Inverse()) != pos {
				t.Errorf("Inverse of %d does not restore the position", s)
			}
		}
	}
}

func TestOpeningMovesAreSymmetric(t *testing.T) {
	pos := Start()
	var keys []Position
	for _, sq := range pos.LegalMoves().Squares() {
		key, _ := pos.Play(sq).MinimalReflection()
		keys = append(keys, key)
	}
	for _, k := range keys[1:] {
		if k != keys[0] {
			t.Error("All four opening moves should share one canonical child")
		}
	}
}

func TestSquareReflectPreservesLegality(t *testing.T) {
	pos := Start().Play(F5).Play(D6)
	for s := Symmetry(0); s < NumSymmetries; s++ {
		r := pos.Reflect(s)
		if got, want := r.LegalMoves(), s.Apply(pos.LegalMoves()); got != want {
			t.Errorf("Symmetry %d: legal moves do not commute with reflection", s)
		}
		for _, sq := range pos.LegalMoves().Squares() {
			if r.Play(sq.Reflect(s)) != pos.Play(sq).Reflect(s) {
				t.Errorf("Symmetry %d: play %s does not commute with reflection", s, sq)
			}
		}
	}
}

func TestParseSquare(t *testing.T) {
	tests := []struct {
		in   string
		want Square
		ok   bool
	}{
		{"a1", A1, true},
		{"H8", H8, true},
		{"f5", F5, true},
		{"i1", NoSquare, false},
		{"a9", NoSquare, false},
		{"a", NoSquare, false},
	}
	for _, tc := range tests {
		got, err := ParseSquare(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseSquare(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSquare(%q) = %s, want %s", tc.in, got, tc.want)
		}
		if tc.ok && got.String() != strings.ToLower(tc.in) {
			t.Errorf("String() = %s, want %s", got.String(), tc.in)
		}
	}
}

