package checkpoint

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/constants"
)

func evolved(t *testing.T, restoreIdentities bool) *beam.Ensemble {
	t.Helper()
	q := beam.Quality{
		Charge:    constants.ElementaryCharge,
		Gamma:     7460.5,
		Intensity: 1.15e11,
		Mass:      constants.ProtonMass,
	}
	e, err := beam.New(1000, beam.Gauss, q,
		beam.WithRandom(rand.New(rand.NewSource(17))),
		beam.WithIdentityRestore(restoreIdentities))
	require.NoError(t, err)
	for i := range e.Z {
		e.Z[i] = 0.5*e.Z[i] + 0.01
		e.X[i] *= 1e-3
	}
	for i := 0; i < 1000; i += 37 {
		e.MarkLost(i)
	}
	e.SortByLongitudinalPosition()
	return e
}

func requireSame(t *testing.T, want, got *beam.Ensemble) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	assert.Equal(t, want.X, got.X)
	assert.Equal(t, want.XP, got.XP)
	assert.Equal(t, want.Y, got.Y)
	assert.Equal(t, want.YP, got.YP)
	assert.Equal(t, want.Z, got.Z)
	assert.Equal(t, want.DP, got.DP)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.NLost, got.NLost)
	assert.Equal(t, want.Quality, got.Quality)
	assert.Equal(t, want.Snapshot(), got.Snapshot())
	assert.Equal(t, want.RestoresIdentities(), got.RestoresIdentities())
}

func TestRoundTrip(t *testing.T) {
	for _, restoreIdentities := range []bool{false, true} {
		e := evolved(t, restoreIdentities)
		var buf bytes.Buffer
		require.NoError(t, Save(&buf, e))
		// compression must pay off on real coordinates
		assert.Less(t, buf.Len(), 13*8*e.Len())

		loaded, err := Load(&buf)
		require.NoError(t, err)
		requireSame(t, e, loaded)
		assert.Equal(t, 28, loaded.NLost)
		assert.True(t, loaded.IsSorted())

		e.Restore()
		loaded.Restore()
		requireSame(t, e, loaded)
	}
}

func TestLoadOptionsOverrideSavedPolicy(t *testing.T) {
	e := evolved(t, false)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, e))

	loaded, err := Load(&buf, beam.WithIdentityRestore(true))
	require.NoError(t, err)
	assert.True(t, loaded.RestoresIdentities())
	loaded.Restore()
	assert.Equal(t, 0, loaded.NLost)
}

func TestFiles(t *testing.T) {
	e := evolved(t, true)
	name := filepath.Join(t.TempDir(), "bunch.ckpt")
	require.NoError(t, SaveFile(name, e))

	loaded, err := LoadFile(name)
	require.NoError(t, err)
	requireSame(t, e, loaded)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.ckpt"))
	assert.Error(t, err)
}

func TestMalformed(t *testing.T) {
	e := evolved(t, false)
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, e))
	data := buf.Bytes()

	badMagic := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(badMagic, 0xdeadbeef)
	_, err := Load(bytes.NewReader(badMagic))
	assert.True(t, errors.Is(err, ErrFormat), "got %v", err)

	badVersion := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(badVersion[4:], 99)
	_, err = Load(bytes.NewReader(badVersion))
	assert.True(t, errors.Is(err, ErrFormat), "got %v", err)

	for _, n := range []int64{1 << 60, -1, MaxParticles + 1} {
		badSize := append([]byte(nil), data...)
		binary.LittleEndian.PutUint64(badSize[8:], uint64(n))
		assert.NotPanics(t, func() {
			_, err = Load(bytes.NewReader(badSize))
		})
		assert.True(t, errors.Is(err, ErrFormat), "size %d: got %v", n, err)
	}

	_, err = Load(bytes.NewReader(data[:len(data)/2]))
	assert.Error(t, err)

	_, err = Load(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestSaveRejectsInconsistentEnsemble(t *testing.T) {
	e := evolved(t, false)
	e.DP = e.DP[:10]
	err := Save(&bytes.Buffer{}, e)
	assert.True(t, errors.Is(err, beam.ErrLengthMismatch))
}
