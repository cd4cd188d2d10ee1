// Package slicing partitions a sorted macroparticle ensemble into ordered
// longitudinal slices and computes the moments of every slice.
//
// Slices are half-open intervals [ZBins[i], ZBins[i+1]) over the live
// particles, except the last one which also holds particles sitting exactly
// on the head edge. Live particles below ZCutTail or above ZCutHead are
// counted as cut and belong to no slice. After every Update
//
//	sum(NMacroparticles) + NCutTail + NCutHead == ensemble.NAlive()
package slicing

import (
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/stats"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStale is returned when statistics are requested for an ensemble the
	// slice set was not last updated with.
	ErrStale = errors.New("slice set is not up to date with the ensemble")
)

type Mode string

const (
	EqualSpace  Mode = "const_space"
	EqualCharge Mode = "const_charge"
)

func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case EqualSpace, EqualCharge:
		return m, nil
	}
	return "", errors.Wrapf(ErrInvalidArgument, "unknown slicing mode %q", name)
}

// RandomSource picks the slices receiving the remainder particles in
// EqualCharge mode. *rand.Rand satisfies it. A source must not be shared
// between slice sets updated concurrently.
type RandomSource interface {
	Perm(n int) []int
}

type SliceSet struct {
	NSlices int
	Mode    Mode
	// NSigmaZ is the half width of the dynamic cut window in units of the
	// rms bunch length. Zero puts the cuts on the outermost live particles.
	NSigmaZ float64

	// Static cuts are fixed at construction. In EqualSpace mode the edges are
	// then fixed too; in EqualCharge mode only the outer edges are.
	Static             bool
	ZCutTail, ZCutHead float64
	NCutTail, NCutHead int

	ZBins    []float64 // NSlices+1 edges
	ZCenters []float64 // NSlices midpoints
	// ZIndex[i] is the index of the first particle of slice i in the sorted
	// ensemble; ZIndex[NSlices] is one past the last sliced particle.
	ZIndex          []int
	NMacroparticles []int

	MeanX, MeanXP, MeanY, MeanYP, MeanZ, MeanDP       []float64
	SigmaX, SigmaXP, SigmaY, SigmaYP, SigmaZ, SigmaDP []float64
	EpsnX, EpsnY                                      []float64 // [um]
	EpsnZ                                             []float64 // [eV s]

	rng     RandomSource
	updated bool
	nAlive  int
}

type Option func(*SliceSet)

func WithNSigmaZ(nSigma float64) Option {
	return func(s *SliceSet) { s.NSigmaZ = nSigma }
}

// WithZCuts fixes the longitudinal window to [tail, head].
func WithZCuts(tail, head float64) Option {
	return func(s *SliceSet) {
		s.Static = true
		s.ZCutTail, s.ZCutHead = tail, head
	}
}

func WithRandom(src RandomSource) Option {
	return func(s *SliceSet) { s.rng = src }
}

func New(nSlices int, mode Mode, opts ...Option) (*SliceSet, error) {
	if nSlices <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "number of slices must be positive, got %d", nSlices)
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	s := &SliceSet{NSlices: nSlices, Mode: mode}
	for _, opt := range opts {
		opt(s)
	}
	if s.NSigmaZ < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "sigma cut must not be negative, got %g", s.NSigmaZ)
	}
	if s.Static {
		if s.NSigmaZ != 0 {
			return nil, errors.Wrap(ErrInvalidArgument, "explicit z cuts and a sigma cut are mutually exclusive")
		}
		if !(s.ZCutTail < s.ZCutHead) {
			return nil, errors.Wrapf(ErrInvalidArgument, "z cuts must satisfy tail < head, got [%g, %g]", s.ZCutTail, s.ZCutHead)
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s.ZBins = make([]float64, nSlices+1)
	s.ZCenters = make([]float64, nSlices)
	s.ZIndex = make([]int, nSlices+1)
	s.NMacroparticles = make([]int, nSlices)
	for _, stat := range s.statistics() {
		*stat = make([]float64, nSlices)
	}
	if s.Static {
		s.setEvenEdges()
	}
	return s, nil
}

func (s *SliceSet) statistics() []*[]float64 {
	return []*[]float64{
		&s.MeanX, &s.MeanXP, &s.MeanY, &s.MeanYP, &s.MeanZ, &s.MeanDP,
		&s.SigmaX, &s.SigmaXP, &s.SigmaY, &s.SigmaYP, &s.SigmaZ, &s.SigmaDP,
		&s.EpsnX, &s.EpsnY, &s.EpsnZ,
	}
}

func (s *SliceSet) setEvenEdges() {
	copy(s.ZBins, stats.Linspace(s.ZCutTail, s.ZCutHead, s.NSlices))
	copy(s.ZCenters, stats.Midpoints(s.ZBins))
}

// DetermineCutBounds returns the longitudinal window of the live particles
// of a sorted ensemble: either the outermost live z values or
// mean(z) ± NSigmaZ·std(z). With no live particle the window is [0, 0].
func (s *SliceSet) DetermineCutBounds(e *beam.Ensemble) (tail, head float64) {
	z := e.Z[:e.NAlive()]
	if len(z) == 0 {
		return 0, 0
	}
	if s.NSigmaZ == 0 {
		return z[0], z[len(z)-1]
	}
	mean, std := stats.MeanStd(z)
	return mean - s.NSigmaZ*std, mean + s.NSigmaZ*std
}

// Update sorts the ensemble and re-derives the slice boundaries from it.
// Statistics are not recomputed; call ComputeStatistics for that.
func (s *SliceSet) Update(e *beam.Ensemble) error {
	if err := e.Validate(); err != nil {
		return errors.Wrap(err, "updating slices")
	}
	e.SortByLongitudinalPosition()
	z := e.Z[:e.NAlive()]

	if !s.Static {
		s.ZCutTail, s.ZCutHead = s.DetermineCutBounds(e)
	}
	switch s.Mode {
	case EqualSpace:
		s.sliceEqualSpace(z)
	case EqualCharge:
		s.sliceEqualCharge(z)
	}
	for i := range s.NMacroparticles {
		s.NMacroparticles[i] = s.ZIndex[i+1] - s.ZIndex[i]
	}
	s.nAlive = len(z)
	s.updated = true
	return nil
}

func (s *SliceSet) countCuts(z []float64) {
	s.NCutTail = lowerBound(z, s.ZCutTail)
	s.NCutHead = len(z) - upperBound(z, s.ZCutHead)
}

// lowerBound is the first index with z[i] >= v.
func lowerBound(z []float64, v float64) int {
	return sort.SearchFloat64s(z, v)
}

// upperBound is the first index with z[i] > v.
func upperBound(z []float64, v float64) int {
	return sort.Search(len(z), func(i int) bool { return z[i] > v })
}

// SliceRange returns the index range [lo, hi) of slice i in the sorted
// ensemble.
func (s *SliceSet) SliceRange(i int) (lo, hi int) {
	return s.ZIndex[i], s.ZIndex[i+1]
}

// NSliced is the number of particles held by the slices.
func (s *SliceSet) NSliced() int {
	return stats.Sum(s.NMacroparticles)
}

// SliceIndexOf returns, for every particle slot of the ensemble, the index of
// its slice or -1 for cut and lost particles. The ensemble must be in the
// order of the last Update.
func (s *SliceSet) SliceIndexOf(e *beam.Ensemble) ([]int, error) {
	if err := s.checkCurrent(e); err != nil {
		return nil, err
	}
	inSlice := make([]int, e.Len())
	for i := range inSlice {
		inSlice[i] = -1
	}
	for i := 0; i < s.NSlices; i++ {
		lo, hi := s.SliceRange(i)
		for j := lo; j < hi; j++ {
			inSlice[j] = i
		}
	}
	return inSlice, nil
}

// SliceCharge is the physical charge carried by every slice [C].
func (s *SliceSet) SliceCharge(e *beam.Ensemble) []float64 {
	charge := make([]float64, s.NSlices)
	for i, n := range s.NMacroparticles {
		charge[i] = float64(n) * e.Intensity * e.Charge
	}
	return charge
}

// LineDensity is the slice charge divided by the slice width [C m^-1].
// Zero-width slices report zero.
func (s *SliceSet) LineDensity(e *beam.Ensemble) []float64 {
	density := s.SliceCharge(e)
	for i := range density {
		width := s.ZBins[i+1] - s.ZBins[i]
		if width > 0 {
			density[i] /= width
		} else {
			density[i] = 0
		}
	}
	return density
}

func (s *SliceSet) checkCurrent(e *beam.Ensemble) error {
	if !s.updated {
		return errors.Wrap(ErrStale, "slice set was never updated")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.NAlive() != s.nAlive || s.ZIndex[s.NSlices] > e.Len() {
		return errors.Wrapf(ErrStale, "sliced %d live particles, ensemble has %d", s.nAlive, e.NAlive())
	}
	return nil
}
