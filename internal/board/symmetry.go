package board

// Symmetry identifies one of the eight board symmetries. Bit 0 flips the
// board vertically, bit 1 mirrors it horizontally and bit 2 transposes it
// along the a1-h8 diagonal, applied in that order.
type Symmetry uint8

// Identity leaves the board unchanged.
const Identity Symmetry = 0

// NumSymmetries is the size of the board's symmetry group.
const NumSymmetries = 8

var inverseSymmetry [NumSymmetries]Symmetry

func init() {
	for s := Symmetry(0); s < NumSymmetries; s++ {
		for t := Symmetry(0); t < NumSymmetries; t++ {
			if isInverse(s, t) {
				inverseSymmetry[s] = t
				break
			}
		}
	}
}

func isInverse(s, t Symmetry) bool {
	for sq := A1; sq <= H8; sq++ {
		if sq.Reflect(s).Reflect(t) != sq {
			return false
		}
	}
	return true
}

// Inverse returns the symmetry that undoes s.
func (s Symmetry) Inverse() Symmetry {
	return inverseSymmetry[s]
}

// Apply transforms a bitboard by s.
func (s Symmetry) Apply(b Bitboard) Bitboard {
	if s&1 != 0 {
		b = b.flipVertical()
	}
	if s&2 != 0 {
		b = b.mirrorHorizontal()
	}
	if s&4 != 0 {
		b = b.flipDiagonal()
	}
	return b
}

// Reflect returns the square that sq maps to under s.
func (sq Square) Reflect(s Symmetry) Square {
	if !sq.IsValid() {
		return sq
	}
	return s.Apply(SquareBB(sq)).LSB()
}

// Reflect returns the position transformed by s. Reflection never swaps
// the side to move.
func (p Position) Reflect(s Symmetry) Position {
	return Position{Mover: s.Apply(p.Mover), Enemy: s.Apply(p.Enemy)}
}

// MinimalReflection returns the smallest of the eight symmetric encodings of
// p, ordered by mover then enemy bitboard, together with the symmetry that
// maps p onto it. Equivalent positions share one minimal reflection.
func (p Position) MinimalReflection() (Position, Symmetry) {
	best, bestSym := p, Identity
	for s := Symmetry(1); s < NumSymmetries; s++ {
		r := p.Reflect(s)
		if r.Less(best) {
			best, bestSym = r, s
		}
	}
	return best, bestSym
}
