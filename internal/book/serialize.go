package book

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/hailam/othellobook/internal/board"
)

// Version is the book format version written in the stream header.
const Version int32 = 1

// Book format (big-endian):
//
//	int32 version
//	repeated until end of stream:
//	  int64 mover bitboard
//	  int64 enemy bitboard
//	  byte  node kind (0 solved, 1 leaf, 2 branch)
//	  int8  score in net disks
//	  int8  best unplayed square, branch records only
const recordHeaderSize = 18

var (
	// ErrVersionMismatch is returned when a stream carries another version.
	ErrVersionMismatch = errors.New("book: version mismatch")
	// ErrMalformed is returned for truncated or invalid records.
	ErrMalformed = errors.New("book: malformed record")
)

// EncodeNode returns the kind, score and optional unplayed bytes of n.
func EncodeNode(n Node) []byte {
	buf := []byte{byte(n.Kind()), byte(int8(n.Score()))}
	if b, ok := n.(Branch); ok {
		buf = append(buf, byte(b.Unplayed.wire()))
	}
	return buf
}

// DecodeNode parses the output of EncodeNode.
func DecodeNode(buf []byte) (Node, error) {
	if len(buf) < 2 {
		return nil, errors.Wrapf(ErrMalformed, "node of %d bytes", len(buf))
	}
	score := int(int8(buf[1]))
	switch Kind(buf[0]) {
	case KindSolved:
		return Solved{Disks: score}, nil
	case KindLeaf:
		return Leaf{Disks: score}, nil
	case KindBranch:
		if len(buf) < 3 {
			return nil, errors.Wrap(ErrMalformed, "branch without unplayed square")
		}
		u, err := unplayedFromWire(int8(buf[2]))
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return Branch{Disks: score, Unplayed: u}, nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown node kind %d", buf[0])
	}
}

// EncodePosition returns the 16-byte big-endian key of p.
func EncodePosition(p board.Position) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(p.Mover))
	binary.BigEndian.PutUint64(buf[8:16], uint64(p.Enemy))
	return buf
}

// DecodePosition parses the output of EncodePosition.
func DecodePosition(buf []byte) (board.Position, error) {
	if len(buf) != 16 {
		return board.Position{}, errors.Wrapf(ErrMalformed, "position key of %d bytes", len(buf))
	}
	p := board.Position{
		Mover: board.Bitboard(binary.BigEndian.Uint64(buf[0:8])),
		Enemy: board.Bitboard(binary.BigEndian.Uint64(buf[8:16])),
	}
	if p.Mover&p.Enemy != 0 {
		return board.Position{}, errors.Wrap(ErrMalformed, "overlapping discs")
	}
	return p, nil
}

// Write serializes the store as a flat list of records.
func (s *Store) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.BigEndian, Version); err != nil {
		return errors.Wrap(err, "write book version")
	}
	for _, e := range s.Entries() {
		if _, err := bw.Write(EncodePosition(e.Pos)); err != nil {
			return errors.Wrap(err, "write book record")
		}
		if _, err := bw.Write(EncodeNode(e.Node)); err != nil {
			return errors.Wrap(err, "write book record")
		}
	}
	return errors.Wrap(bw.Flush(), "flush book")
}

// Read loads a store written by Write. End of stream terminates the record
// list; a version mismatch, a truncated record or a record for a position
// without legal moves is an error.
func Read(r io.Reader, minDepth int) (*Store, error) {
	br := bufio.NewReader(r)

	var version int32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, errors.Wrap(err, "read book version")
	}
	if version != Version {
		return nil, errors.Wrapf(ErrVersionMismatch, "got %d, want %d", version, Version)
	}

	s := New(minDepth)
	var hdr [recordHeaderSize + 1]byte
	for {
		_, err := io.ReadFull(br, hdr[:recordHeaderSize])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "record %d: %v", s.Len(), err)
		}

		n := recordHeaderSize
		if Kind(hdr[16]) == KindBranch {
			if _, err := io.ReadFull(br, hdr[n:n+1]); err != nil {
				return nil, errors.Wrapf(ErrMalformed, "record %d: %v", s.Len(), err)
			}
			n++
		}

		pos, err := DecodePosition(hdr[:16])
		if err != nil {
			return nil, err
		}
		node, err := DecodeNode(hdr[16:n])
		if err != nil {
			return nil, err
		}
		if !pos.HasLegalMove() {
			return nil, errors.Wrapf(ErrMalformed, "record %d: position without moves\n%s", s.Len(), pos)
		}
		s.put(pos, node)
	}
	return s, nil
}

// compressed reports whether path names a zstd-compressed book.
func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// SaveFile writes the store to path through a temporary file in the same
// directory, so a failed write never replaces an existing book. Paths ending
// in ".zst" are zstd-compressed.
func (s *Store) SaveFile(path string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".book-*")
	if err != nil {
		return errors.Wrap(err, "create temporary book file")
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	var w io.Writer = f
	var zw *zstd.Encoder
	if compressed(path) {
		zw, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return errors.Wrap(err, "create zstd encoder")
		}
		w = zw
	}

	if err = s.Write(w); err != nil {
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return errors.Wrap(err, "close zstd encoder")
		}
	}
	if err = f.Sync(); err != nil {
		return errors.Wrap(err, "sync book file")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "close book file")
	}
	err = os.Rename(f.Name(), path)
	return errors.Wrap(err, "rename book file")
}

// LoadFile reads a book written by SaveFile.
func LoadFile(path string, minDepth int) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open book file")
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create zstd decoder")
		}
		defer zr.Close()
		r = zr
	}
	return Read(r, minDepth)
}
