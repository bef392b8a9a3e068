package book

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"

	"github.com/hailam/othellobook/internal/board"
)

func sampleStore(t *testing.T) *Store {
	t.Helper()
	s := New(0)
	g, err := board.ParseGame("f5d6c3d3c4f4")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddGame(g); err != nil {
		t.Fatal(err)
	}

	p := board.Start().Play(board.F5)
	s.Put(p, Branch{Disks: -3, Unplayed: KnownUnplayed(p.LegalMoves().LSB())})
	p = p.Play(board.D6)
	s.Put(p, Branch{Disks: 5, Unplayed: NoneRemaining})
	s.Put(p.Play(p.LegalMoves().LSB()), Leaf{Disks: -64})
	s.Put(board.Start(), Solved{Disks: 0})
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	is := is.New(t)
	s := sampleStore(t)

	var buf bytes.Buffer
	is.NoErr(s.Write(&buf))
	is.Equal(binary.BigEndian.Uint32(buf.Bytes()[:4]), uint32(Version))

	got, err := Read(&buf, 0)
	is.NoErr(err)
	is.Equal(got.Entries(), s.Entries())
}

func TestRecordLayout(t *testing.T) {
	s := New(0)
	s.Put(board.Start(), Leaf{Disks: -7})

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 4+18 {
		t.Fatalf("Expected 22 bytes for one leaf, got %d", len(b))
	}
	key, _ := board.Start().MinimalReflection()
	if board.Bitboard(binary.BigEndian.Uint64(b[4:12])) != key.Mover {
		t.Error("Mover bitboard mismatch")
	}
	if board.Bitboard(binary.BigEndian.Uint64(b[12:20])) != key.Enemy {
		t.Error("Enemy bitboard mismatch")
	}
	if b[20] != byte(KindLeaf) || int8(b[21]) != -7 {
		t.Errorf("Unexpected kind/score bytes %d %d", b[20], int8(b[21]))
	}

	s = New(0)
	s.AddUnevaluatedPosition(board.Start())
	buf.Reset()
	if err := s.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4+19 {
		t.Fatalf("Expected 23 bytes for one branch, got %d", buf.Len())
	}
	if int8(buf.Bytes()[22]) != -1 {
		t.Errorf("Expected unknown unplayed byte -1, got %d", int8(buf.Bytes()[22]))
	}
}

func TestReadEmptyBook(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, Version)

	s, err := Read(&buf, 12)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Len() != 0 || s.MinDepth() != 12 {
		t.Errorf("Expected empty store with min depth 12, got %d entries, min depth %d", s.Len(), s.MinDepth())
	}
}

func TestReadErrors(t *testing.T) {
	var valid bytes.Buffer
	if err := sampleStore(t).Write(&valid); err != nil {
		t.Fatal(err)
	}

	badVersion := append([]byte{}, valid.Bytes()...)
	binary.BigEndian.PutUint32(badVersion, 2)

	overlap := make([]byte, 4+18)
	binary.BigEndian.PutUint32(overlap, uint32(Version))
	binary.BigEndian.PutUint64(overlap[4:], 1)
	binary.BigEndian.PutUint64(overlap[12:], 1)
	overlap[20] = byte(KindLeaf)

	badKind := append([]byte{}, overlap...)
	binary.BigEndian.PutUint64(badKind[12:], 2)
	badKind[20] = 9

	badSquare := make([]byte, 4+19)
	binary.BigEndian.PutUint32(badSquare, uint32(Version))
	binary.BigEndian.PutUint64(badSquare[4:], 1)
	binary.BigEndian.PutUint64(badSquare[12:], 2)
	badSquare[20] = byte(KindBranch)
	badSquare[22] = 64

	// b1 against a1: the mover must pass.
	mustPass := make([]byte, 4+18)
	binary.BigEndian.PutUint32(mustPass, uint32(Version))
	binary.BigEndian.PutUint64(mustPass[4:], 2)
	binary.BigEndian.PutUint64(mustPass[12:], 1)
	mustPass[20] = byte(KindLeaf)

	terminal := append([]byte{}, mustPass...)
	binary.BigEndian.PutUint64(terminal[4:], 1)
	binary.BigEndian.PutUint64(terminal[12:], 1<<63)
	terminal[20] = byte(KindSolved)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"VersionMismatch", badVersion, ErrVersionMismatch},
		{"TruncatedRecord", valid.Bytes()[:valid.Len()-5], ErrMalformed},
		{"TruncatedBranch", badSquare[:len(badSquare)-1], ErrMalformed},
		{"OverlappingDiscs", overlap, ErrMalformed},
		{"UnknownKind", badKind, ErrMalformed},
		{"InvalidUnplayed", badSquare, ErrMalformed},
		{"PassPosition", mustPass, ErrMalformed},
		{"TerminalPosition", terminal, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data), 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Read(bytes.NewReader(nil), 0); err == nil {
		t.Error("Expected error for missing version")
	}
}

func TestSaveLoadFile(t *testing.T) {
	for _, name := range []string{"book.bin", "book.bin.zst"} {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			s := sampleStore(t)
			path := filepath.Join(t.TempDir(), name)

			is.NoErr(s.SaveFile(path))
			got, err := LoadFile(path, 0)
			is.NoErr(err)
			is.Equal(got.Entries(), s.Entries())

			// Saving again replaces the file in place.
			s.Put(board.Start(), Solved{Disks: 2})
			is.NoErr(s.SaveFile(path))
			got, err = LoadFile(path, 0)
			is.NoErr(err)
			n, _ := got.Lookup(board.Start())
			is.Equal(n, Solved{Disks: 2})
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.bin"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}
