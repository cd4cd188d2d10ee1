package beam

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliakis/PyHEADTAIL/internal/constants"
)

var proton = Quality{
	Charge:    constants.ElementaryCharge,
	Gamma:     27.7,
	Intensity: 1.15e11,
	Mass:      constants.ProtonMass,
}

func newGauss(t *testing.T, n int, opts ...Option) *Ensemble {
	t.Helper()
	opts = append([]Option{WithRandom(rand.New(rand.NewSource(42)))}, opts...)
	e, err := New(n, Gauss, proton, opts...)
	require.NoError(t, err)
	return e
}

func TestNewRejectsBadArguments(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := New(n, Gauss, proton)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "n = %d", n)
	}
	_, err := New(10, Distribution("lorentz"), proton)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = New(10, Empty, Quality{Gamma: 0.5})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = ParseDistribution("uniform")
	assert.NoError(t, err)
	_, err = ParseDistribution("flat")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestDistributions(t *testing.T) {
	src := rand.New(rand.NewSource(1))

	empty, err := New(100, Empty, proton, WithRandom(src))
	require.NoError(t, err)
	for _, arr := range empty.coordinates() {
		assert.Len(t, arr, 100)
		for _, v := range arr {
			assert.Equal(t, 0., v)
		}
	}

	uniform, err := New(1000, Uniform, proton, WithRandom(src))
	require.NoError(t, err)
	for _, arr := range uniform.coordinates() {
		for _, v := range arr {
			assert.True(t, -1 <= v && v <= 1, "uniform value %g outside [-1, 1]", v)
		}
	}

	gauss, err := New(20000, Gauss, proton, WithRandom(src))
	require.NoError(t, err)
	var sum, sumSq float64
	for _, v := range gauss.Z {
		sum += v
		sumSq += v * v
	}
	n := float64(gauss.Len())
	assert.InDelta(t, 0., sum/n, 0.05)
	assert.InDelta(t, 1., math.Sqrt(sumSq/n), 0.05)
}

func TestIdentitiesAndDerivedQuantities(t *testing.T) {
	e := newGauss(t, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, e.ID)
	assert.Equal(t, 5, e.Len())
	assert.Equal(t, 5, e.NAlive())

	beta := math.Sqrt(1 - 1/(27.7*27.7))
	assert.InDelta(t, beta, e.Beta(), 1e-15)
	assert.InDelta(t, constants.ProtonMass*27.7*beta*constants.SpeedOfLight, e.P0(), 1e-30)
}

func TestRestoreCoordinatesOnly(t *testing.T) {
	e := newGauss(t, 50)
	snapshot := [6][]float64{}
	for i, arr := range e.coordinates() {
		snapshot[i] = clone(arr)
	}
	x := e.X

	for _, arr := range e.coordinates() {
		for i := range arr {
			arr[i] = arr[i]*3 + 1
		}
	}
	e.MarkLost(7)
	e.SortByLongitudinalPosition()
	ids := append([]int(nil), e.ID...)

	e.Restore()
	for i, arr := range e.coordinates() {
		assert.Equal(t, snapshot[i], arr)
	}
	assert.Same(t, &x[0], &e.X[0], "restore must work in place")
	assert.Equal(t, ids, e.ID, "identities untouched by default")
	assert.Equal(t, 1, e.NLost)
	assert.False(t, e.RestoresIdentities())
}

func TestRestoreWithIdentities(t *testing.T) {
	e := newGauss(t, 20, WithIdentityRestore(true))
	e.MarkLost(0)
	e.MarkLost(3)
	e.SortByLongitudinalPosition()
	require.Equal(t, 2, e.NLost)

	e.Restore()
	assert.Equal(t, 0, e.NLost)
	for i, id := range e.ID {
		assert.Equal(t, i+1, id)
	}
	assert.Equal(t, e.Snapshot()[4], e.Z)
}

func TestSortWithoutLosses(t *testing.T) {
	z := []float64{3, -1, 2, 0, -4}
	e := fromZ(t, z)
	e.SortByLongitudinalPosition()

	assert.Equal(t, []float64{-4, -1, 0, 2, 3}, e.Z)
	assert.Equal(t, []int{5, 2, 4, 3, 1}, e.ID)
	// index alignment: x was set equal to z
	assert.Equal(t, e.Z, e.X)
	assert.Equal(t, 0, e.NLost)
}

func TestSortMovesLostToEnd(t *testing.T) {
	z := []float64{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4}
	e := fromZ(t, z)
	e.MarkLost(0)
	e.MarkLost(6)
	e.SortByLongitudinalPosition()

	assert.Equal(t, 2, e.NLost)
	assert.Equal(t, 8, e.NAlive())
	assert.Equal(t, []float64{-4, -3, -2, -1, 0, 2, 3, 4}, e.Z[:8])
	assert.Equal(t, []int{0, 0}, e.ID[8:])
	assert.ElementsMatch(t, []float64{-5, 1}, e.Z[8:])
	assert.Equal(t, e.Z, e.X)
	assert.True(t, e.IsSorted())
}

func TestSortIsIdempotent(t *testing.T) {
	e := newGauss(t, 500)
	src := rand.New(rand.NewSource(3))
	for i := 0; i < 60; i++ {
		e.MarkLost(src.Intn(e.Len()))
	}
	// duplicates exercise tie handling
	e.Z[10], e.Z[11], e.Z[12] = 0.25, 0.25, 0.25

	e.SortByLongitudinalPosition()
	require.True(t, e.IsSorted())
	once := [6][]float64{}
	for i, arr := range e.coordinates() {
		once[i] = clone(arr)
	}
	ids := append([]int(nil), e.ID...)

	e.SortByLongitudinalPosition()
	for i, arr := range e.coordinates() {
		assert.Equal(t, once[i], arr)
	}
	assert.Equal(t, ids, e.ID)
}

func TestSortAllLost(t *testing.T) {
	e := fromZ(t, []float64{1, 0, -1})
	for i := range e.ID {
		e.MarkLost(i)
	}
	e.SortByLongitudinalPosition()
	assert.Equal(t, 3, e.NLost)
	assert.Equal(t, 0, e.NAlive())
	assert.True(t, e.IsSorted())
}

func TestValidate(t *testing.T) {
	e := newGauss(t, 10)
	require.NoError(t, e.Validate())

	e.DP = e.DP[:9]
	err := e.Validate()
	assert.True(t, errors.Is(err, ErrLengthMismatch))

	_, err = FromCoordinates(make([]float64, 3), make([]float64, 3), make([]float64, 3),
		make([]float64, 3), make([]float64, 2), make([]float64, 3), proton)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

type scaleZ float64

func (s scaleZ) Match(e *Ensemble) error {
	for i := range e.Z {
		e.Z[i] *= float64(s)
	}
	return nil
}

func TestMatcherRunsBeforeSnapshot(t *testing.T) {
	e := newGauss(t, 100, WithMatcher(scaleZ(0.01)))
	for _, v := range e.Z {
		assert.Less(t, math.Abs(v), 0.1)
	}
	assert.Equal(t, e.Z, e.Snapshot()[4])
}

func fromZ(t *testing.T, z []float64) *Ensemble {
	t.Helper()
	n := len(z)
	e, err := FromCoordinates(clone(z), make([]float64, n), make([]float64, n),
		make([]float64, n), clone(z), make([]float64, n), proton)
	require.NoError(t, err)
	return e
}
