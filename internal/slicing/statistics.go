package slicing

import (
	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/constants"
	"github.com/kiliakis/PyHEADTAIL/internal/stats"
)

// ComputeStatistics fills the per-slice moments from the particle ranges of
// the last Update. Empty slices report zeros. The ensemble must not have been
// reordered or had losses since that Update.
func (s *SliceSet) ComputeStatistics(e *beam.Ensemble) error {
	if err := s.checkCurrent(e); err != nil {
		return err
	}
	betaGamma := e.Beta() * e.Gamma
	p0 := e.P0()

	for i := 0; i < s.NSlices; i++ {
		lo, hi := s.SliceRange(i)
		x, xp := e.X[lo:hi], e.XP[lo:hi]
		y, yp := e.Y[lo:hi], e.YP[lo:hi]
		z, dp := e.Z[lo:hi], e.DP[lo:hi]

		s.MeanX[i], s.SigmaX[i] = stats.MeanStd(x)
		s.MeanXP[i], s.SigmaXP[i] = stats.MeanStd(xp)
		s.MeanY[i], s.SigmaY[i] = stats.MeanStd(y)
		s.MeanYP[i], s.SigmaYP[i] = stats.MeanStd(yp)
		s.MeanZ[i], s.SigmaZ[i] = stats.MeanStd(z)
		s.MeanDP[i], s.SigmaDP[i] = stats.MeanStd(dp)

		s.EpsnX[i] = stats.Emittance(x, xp) * betaGamma * 1e6
		s.EpsnY[i] = stats.Emittance(y, yp) * betaGamma * 1e6
		s.EpsnZ[i] = LongitudinalEmittance(s.SigmaZ[i], s.SigmaDP[i], p0)
	}
	return nil
}

// LongitudinalEmittance is 4π·σz·σdp·p0/e [eV s].
func LongitudinalEmittance(sigmaZ, sigmaDP, p0 float64) float64 {
	return constants.FourPi * sigmaZ * sigmaDP * p0 / constants.ElementaryCharge
}
