// Package beam holds the macroparticle ensemble: six index-aligned
// phase-space coordinate arrays, the identity tags used for loss tracking and
// the scalars describing the bunch as a whole.
package beam

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/constants"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLengthMismatch  = errors.New("coordinate arrays length mismatch")
)

// Quality are the bunch-wide scalars.
type Quality struct {
	Charge    float64 // [C]
	Gamma     float64 // reference Lorentz factor
	Intensity float64 // physical particles per macroparticle
	Mass      float64 // [kg]
}

// Matcher transforms the raw distribution of a fresh ensemble into a matched
// one. It is called once, before the restoration snapshot is taken.
type Matcher interface {
	Match(e *Ensemble) error
}

// Source is the random stream used to draw the initial distribution.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

type Ensemble struct {
	X, XP []float64 // [m], [rad]
	Y, YP []float64 // [m], [rad]
	Z, DP []float64 // [m], relative momentum offset

	// ID is 1..n at creation; 0 marks a lost particle
	ID    []int
	NLost int

	Quality

	x0, xp0, y0, yp0, z0, dp0 []float64

	restoreIdentities bool
}

type settings struct {
	source            Source
	matcher           Matcher
	restoreIdentities bool
}

type Option func(*settings)

func WithRandom(src Source) Option {
	return func(s *settings) { s.source = src }
}

func WithMatcher(m Matcher) Option {
	return func(s *settings) { s.matcher = m }
}

// WithIdentityRestore makes Restore reset identities and loss state along
// with the coordinates. Off by default: loss history survives a rewind.
func WithIdentityRestore(restore bool) Option {
	return func(s *settings) { s.restoreIdentities = restore }
}

func New(n int, dist Distribution, q Quality, opts ...Option) (*Ensemble, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "number of macroparticles must be positive, got %d", n)
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.source == nil {
		s.source = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e := &Ensemble{Quality: q, restoreIdentities: s.restoreIdentities}
	if err := e.populate(n, dist, s.source); err != nil {
		return nil, err
	}
	e.ID = make([]int, n)
	e.resetIdentities()

	if s.matcher != nil {
		if err := s.matcher.Match(e); err != nil {
			return nil, errors.Wrap(err, "matching initial distribution")
		}
		if err := e.Validate(); err != nil {
			return nil, errors.Wrap(err, "after matching")
		}
	}
	e.takeSnapshot()
	return e, nil
}

func (q Quality) check() error {
	if q.Gamma < 1 {
		return errors.Wrapf(ErrInvalidArgument, "gamma must be at least 1, got %g", q.Gamma)
	}
	return nil
}

// FromCoordinates builds an ensemble around existing arrays without copying
// them. The arrays become the restoration snapshot as they are now.
func FromCoordinates(x, xp, y, yp, z, dp []float64, q Quality, opts ...Option) (*Ensemble, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	e := &Ensemble{
		X: x, XP: xp, Y: y, YP: yp, Z: z, DP: dp,
		ID:                make([]int, len(x)),
		Quality:           q,
		restoreIdentities: s.restoreIdentities,
	}
	if len(x) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "empty coordinate arrays")
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.resetIdentities()
	e.takeSnapshot()
	return e, nil
}

// FromState rebuilds an ensemble from previously saved coordinates,
// restoration snapshot and identities, e.g. a checkpoint.
func FromState(coords, snapshot [6][]float64, id []int, q Quality, opts ...Option) (*Ensemble, error) {
	e, err := FromCoordinates(coords[0], coords[1], coords[2], coords[3], coords[4], coords[5], q, opts...)
	if err != nil {
		return nil, err
	}
	n := e.Len()
	for i, arr := range snapshot {
		if len(arr) != n {
			return nil, errors.Wrapf(ErrLengthMismatch, "snapshot %d has %d entries, want %d", i, len(arr), n)
		}
	}
	if len(id) != n {
		return nil, errors.Wrapf(ErrLengthMismatch, "id has %d entries, want %d", len(id), n)
	}
	e.x0, e.xp0, e.y0, e.yp0, e.z0, e.dp0 = snapshot[0], snapshot[1], snapshot[2], snapshot[3], snapshot[4], snapshot[5]
	e.ID = id
	e.CountLost()
	return e, nil
}

func (e *Ensemble) resetIdentities() {
	for i := range e.ID {
		e.ID[i] = i + 1
	}
	e.NLost = 0
}

func (e *Ensemble) takeSnapshot() {
	e.x0 = clone(e.X)
	e.xp0 = clone(e.XP)
	e.y0 = clone(e.Y)
	e.yp0 = clone(e.YP)
	e.z0 = clone(e.Z)
	e.dp0 = clone(e.DP)
}

func clone(a []float64) []float64 {
	return append(make([]float64, 0, len(a)), a...)
}

func (e *Ensemble) coordinates() [6][]float64 {
	return [6][]float64{e.X, e.XP, e.Y, e.YP, e.Z, e.DP}
}

func (e *Ensemble) snapshots() [6][]float64 {
	return [6][]float64{e.x0, e.xp0, e.y0, e.yp0, e.z0, e.dp0}
}

// Len is the number of macroparticle slots, lost ones included.
func (e *Ensemble) Len() int { return len(e.X) }

// NAlive is the number of live particles as of the last sort.
func (e *Ensemble) NAlive() int { return e.Len() - e.NLost }

func (e *Ensemble) Beta() float64 {
	return math.Sqrt(1. - 1./(e.Gamma*e.Gamma))
}

// P0 is the reference momentum [kg m s^-1].
func (e *Ensemble) P0() float64 {
	return e.Mass * e.Gamma * e.Beta() * constants.SpeedOfLight
}

// Validate checks that every coordinate array and the identity array share
// one length.
func (e *Ensemble) Validate() error {
	n := len(e.X)
	names := [6]string{"x", "xp", "y", "yp", "z", "dp"}
	for i, arr := range e.coordinates() {
		if len(arr) != n {
			return errors.Wrapf(ErrLengthMismatch, "%s has %d entries, x has %d", names[i], len(arr), n)
		}
	}
	if len(e.ID) != n {
		return errors.Wrapf(ErrLengthMismatch, "id has %d entries, x has %d", len(e.ID), n)
	}
	return nil
}

// MarkLost flags particle i as lost. The slot is kept; the next sort moves
// it behind the live particles.
func (e *Ensemble) MarkLost(i int) {
	e.ID[i] = 0
}

// CountLost recomputes NLost from the identity array.
func (e *Ensemble) CountLost() int {
	lost := 0
	for _, id := range e.ID {
		if id == 0 {
			lost++
		}
	}
	e.NLost = lost
	return lost
}

// Restore copies the construction-time snapshot back into the coordinate
// arrays in place. Identities are reset too only if the ensemble was built
// WithIdentityRestore.
func (e *Ensemble) Restore() {
	snap := e.snapshots()
	for i, arr := range e.coordinates() {
		copy(arr, snap[i])
	}
	if e.restoreIdentities {
		e.resetIdentities()
	}
}

// Snapshot returns the construction-time coordinates in x, xp, y, yp, z, dp
// order. The arrays are shared and must not be modified.
func (e *Ensemble) Snapshot() [6][]float64 {
	return e.snapshots()
}

// RestoresIdentities reports the configured Restore policy.
func (e *Ensemble) RestoresIdentities() bool { return e.restoreIdentities }
