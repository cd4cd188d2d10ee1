// Package checkpoint persists a macroparticle ensemble, restoration snapshot
// and identities included, so that a run can be resumed from disk.
//
// A checkpoint is a fixed little-endian header followed by thirteen columns:
// the six coordinates, their six snapshots and the identities. Each column is
// split into its eight byte planes and every plane is zstd-compressed on its
// own, which lets the high-significance bytes shrink to almost nothing.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
)

const (
	magic   uint32 = 0x48545342 // "BSTH"
	version uint32 = 1

	compressionLevel = 1
	planes           = 8
	columns          = 13

	// MaxParticles bounds the ensemble size accepted from a header.
	MaxParticles = math.MaxInt32
)

var (
	ErrFormat = errors.New("malformed checkpoint")
	order     = binary.LittleEndian
)

type header struct {
	Magic, Version    uint32
	N, NLost          int64
	Charge, Gamma     float64
	Intensity, Mass   float64
	RestoreIdentities uint8
}

// Save writes e to w.
func Save(w io.Writer, e *beam.Ensemble) error {
	if err := e.Validate(); err != nil {
		return errors.Wrap(err, "saving checkpoint")
	}
	lost := 0
	for _, id := range e.ID {
		if id == 0 {
			lost++
		}
	}
	hd := header{
		Magic: magic, Version: version,
		N: int64(e.Len()), NLost: int64(lost),
		Charge: e.Charge, Gamma: e.Gamma, Intensity: e.Intensity, Mass: e.Mass,
	}
	if e.RestoresIdentities() {
		hd.RestoreIdentities = 1
	}
	if err := binary.Write(w, order, hd); err != nil {
		return errors.Wrap(err, "writing checkpoint header")
	}

	words := make([]uint64, e.Len())
	b := make([]byte, e.Len())
	var buf []byte
	var err error
	for _, col := range floatColumns(e) {
		for i, v := range col {
			words[i] = math.Float64bits(v)
		}
		if buf, err = writeColumn(w, words, b, buf); err != nil {
			return err
		}
	}
	for i, id := range e.ID {
		words[i] = uint64(int64(id))
	}
	_, err = writeColumn(w, words, b, buf)
	return err
}

func floatColumns(e *beam.Ensemble) [12][]float64 {
	snap := e.Snapshot()
	return [12][]float64{
		e.X, e.XP, e.Y, e.YP, e.Z, e.DP,
		snap[0], snap[1], snap[2], snap[3], snap[4], snap[5],
	}
}

// writeColumn writes the byte planes of words as length-prefixed zstd blocks.
// b must have the length of words; buf is reused between calls.
func writeColumn(w io.Writer, words []uint64, b, buf []byte) ([]byte, error) {
	for plane := 0; plane < planes; plane++ {
		shift := 8 * plane
		for i, word := range words {
			b[i] = byte(word >> shift)
		}
		var err error
		buf, err = zstd.CompressLevel(buf, b, compressionLevel)
		if err != nil {
			return nil, errors.Wrap(err, "compressing checkpoint column")
		}
		if err = binary.Write(w, order, int64(len(buf))); err != nil {
			return nil, errors.Wrap(err, "writing checkpoint column")
		}
		if _, err = w.Write(buf); err != nil {
			return nil, errors.Wrap(err, "writing checkpoint column")
		}
	}
	return buf[:0], nil
}

// readColumn is the inverse of writeColumn.
func readColumn(r io.Reader, words []uint64, b, buf []byte) (bOut, bufOut []byte, err error) {
	for i := range words {
		words[i] = 0
	}
	for plane := 0; plane < planes; plane++ {
		var size int64
		if err = binary.Read(r, order, &size); err != nil {
			return nil, nil, errors.Wrap(err, "reading checkpoint column")
		}
		if size < 0 {
			return nil, nil, errors.Wrapf(ErrFormat, "negative block size %d", size)
		}
		if int64(cap(buf)) < size {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		if _, err = io.ReadFull(r, buf); err != nil {
			return nil, nil, errors.Wrap(err, "reading checkpoint column")
		}
		if b, err = zstd.Decompress(b[:0], buf); err != nil {
			return nil, nil, errors.Wrap(err, "decompressing checkpoint column")
		}
		if len(b) != len(words) {
			return nil, nil, errors.Wrapf(ErrFormat, "byte plane has %d entries, want %d", len(b), len(words))
		}
		shift := 8 * plane
		for i, v := range b {
			words[i] |= uint64(v) << shift
		}
	}
	return b, buf, nil
}

// Load reads an ensemble written by Save. opts are passed on to the
// ensemble; the saved restore policy applies unless opts override it.
func Load(r io.Reader, opts ...beam.Option) (*beam.Ensemble, error) {
	var hd header
	if err := binary.Read(r, order, &hd); err != nil {
		return nil, errors.Wrap(err, "reading checkpoint header")
	}
	switch {
	case hd.Magic != magic:
		return nil, errors.Wrapf(ErrFormat, "bad magic number %#x", hd.Magic)
	case hd.Version != version:
		return nil, errors.Wrapf(ErrFormat, "unsupported version %d", hd.Version)
	case hd.N <= 0 || hd.N > MaxParticles:
		return nil, errors.Wrapf(ErrFormat, "ensemble size %d out of range", hd.N)
	case hd.NLost < 0 || hd.NLost > hd.N:
		return nil, errors.Wrapf(ErrFormat, "%d particles with %d lost", hd.N, hd.NLost)
	}

	n := int(hd.N)
	words := make([]uint64, n)
	var b, buf []byte
	var err error
	var cols [columns - 1][]float64
	for c := range cols {
		if b, buf, err = readColumn(r, words, b, buf); err != nil {
			return nil, err
		}
		cols[c] = make([]float64, n)
		for i, word := range words {
			cols[c][i] = math.Float64frombits(word)
		}
	}
	if _, _, err = readColumn(r, words, b, buf); err != nil {
		return nil, err
	}
	id := make([]int, n)
	for i, word := range words {
		id[i] = int(int64(word))
	}

	q := beam.Quality{Charge: hd.Charge, Gamma: hd.Gamma, Intensity: hd.Intensity, Mass: hd.Mass}
	opts = append([]beam.Option{beam.WithIdentityRestore(hd.RestoreIdentities == 1)}, opts...)
	var coords, snapshot [6][]float64
	copy(coords[:], cols[:6])
	copy(snapshot[:], cols[6:])
	e, err := beam.FromState(coords, snapshot, id, q, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "rebuilding checkpointed ensemble")
	}
	if e.NLost != int(hd.NLost) {
		return nil, errors.Wrapf(ErrFormat, "header reports %d lost particles, identities %d", hd.NLost, e.NLost)
	}
	return e, nil
}

// SaveFile writes e to the named file, replacing it.
func SaveFile(name string, e *beam.Ensemble) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "creating checkpoint")
	}
	w := bufio.NewWriter(f)
	if err = Save(w, e); err != nil {
		f.Close()
		return errors.Wrapf(err, "checkpoint %s", name)
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "checkpoint %s", name)
	}
	return f.Close()
}

// LoadFile reads the named checkpoint.
func LoadFile(name string, opts ...beam.Option) (*beam.Ensemble, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "opening checkpoint")
	}
	defer f.Close()
	e, err := Load(bufio.NewReader(f), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "checkpoint %s", name)
	}
	return e, nil
}
