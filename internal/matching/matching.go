// Package matching shapes a raw unit distribution into one matched to the
// machine optics. Matchers run once, when the ensemble is built.
package matching

import (
	"math"

	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
)

var ErrInvalidOptics = errors.New("invalid optics")

// Transverse applies Twiss parameters to (x, xp) and (y, yp).
// EpsnX/EpsnY are normalized rms emittances in [um].
type Transverse struct {
	AlphaX, BetaX, EpsnX float64
	AlphaY, BetaY, EpsnY float64
}

func (m Transverse) Match(e *beam.Ensemble) error {
	if m.BetaX <= 0 || m.BetaY <= 0 {
		return errors.Wrapf(ErrInvalidOptics, "beta functions must be positive, got %g and %g", m.BetaX, m.BetaY)
	}
	if m.EpsnX < 0 || m.EpsnY < 0 {
		return errors.Wrapf(ErrInvalidOptics, "emittances must not be negative, got %g and %g", m.EpsnX, m.EpsnY)
	}
	betaGamma := e.Beta() * e.Gamma
	matchPlane(e.X, e.XP, m.AlphaX, m.BetaX, m.EpsnX*1e-6/betaGamma)
	matchPlane(e.Y, e.YP, m.AlphaY, m.BetaY, m.EpsnY*1e-6/betaGamma)
	return nil
}

func matchPlane(u, up []float64, alpha, beta, epsGeo float64) {
	sigmaU := math.Sqrt(epsGeo * beta)
	sigmaUp := math.Sqrt(epsGeo / beta)
	for i := range u {
		u[i] *= sigmaU
		up[i] = up[i]*sigmaUp - alpha/beta*u[i]
	}
}

// Longitudinal scales (z, dp) to the requested rms sizes.
type Longitudinal struct {
	SigmaZ, SigmaDP float64
}

func (m Longitudinal) Match(e *beam.Ensemble) error {
	if m.SigmaZ < 0 || m.SigmaDP < 0 {
		return errors.Wrapf(ErrInvalidOptics, "longitudinal sizes must not be negative, got %g and %g", m.SigmaZ, m.SigmaDP)
	}
	for i := range e.Z {
		e.Z[i] *= m.SigmaZ
		e.DP[i] *= m.SigmaDP
	}
	return nil
}

// InBucket is a Longitudinal match that is not matched to the RF bucket:
// particles landing outside |z| <= BucketLength/2 are marked lost.
type InBucket struct {
	Longitudinal
	BucketLength float64
}

func (m InBucket) Match(e *beam.Ensemble) error {
	if m.BucketLength <= 0 {
		return errors.Wrapf(ErrInvalidOptics, "bucket length must be positive, got %g", m.BucketLength)
	}
	if err := m.Longitudinal.Match(e); err != nil {
		return err
	}
	half := 0.5 * m.BucketLength
	for i := range e.Z {
		if math.Abs(e.Z[i]) > half {
			e.MarkLost(i)
		}
	}
	e.CountLost()
	return nil
}

// Chain runs matchers in order and stops at the first error.
type Chain []beam.Matcher

func (c Chain) Match(e *beam.Ensemble) error {
	for i, m := range c {
		if err := m.Match(e); err != nil {
			return errors.Wrapf(err, "matcher %d", i)
		}
	}
	return nil
}
