package output

import (
	"strconv"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/config"
	"github.com/kiliakis/PyHEADTAIL/internal/slicing"
	"github.com/kiliakis/PyHEADTAIL/internal/stats"
	"github.com/kiliakis/PyHEADTAIL/internal/utils"
)

var summaryColumns = []string{
	"bunch", "macroparticles", "alive", "lost", "cut_tail", "cut_head",
	"epsn_x", "epsn_y", "epsn_z", "sigma_z", "peak_slice", "peak_z",
}

// Summary collects one row per bunch. It is not safe for concurrent use.
type Summary struct {
	rows utils.CSV
}

// Add records the whole-bunch figures of a sliced bunch. Emittances are
// taken over all live particles, cut ones included; lengths are given in
// outputUnits.
func (s *Summary) Add(bunchName string, e *beam.Ensemble, slices *slicing.SliceSet, outputUnits []string) {
	alive := e.NAlive()
	x, xp := e.X[:alive], e.XP[:alive]
	y, yp := e.Y[:alive], e.YP[:alive]
	z, dp := e.Z[:alive], e.DP[:alive]

	betaGamma := e.Beta() * e.Gamma
	_, sigmaZ := stats.MeanStd(z)
	_, sigmaDP := stats.MeanStd(dp)
	epsnZ := slicing.LongitudinalEmittance(sigmaZ, sigmaDP, e.P0())

	peak := stats.Argmax(slices.NMacroparticles)
	s.rows = append(s.rows, []string{
		bunchName,
		strconv.Itoa(e.Len()),
		strconv.Itoa(alive),
		strconv.Itoa(e.NLost),
		strconv.Itoa(slices.NCutTail),
		strconv.Itoa(slices.NCutHead),
		formatFloat(stats.Emittance(x, xp) * betaGamma * 1e6),
		formatFloat(stats.Emittance(y, yp) * betaGamma * 1e6),
		formatFloat(epsnZ),
		formatFloat(config.SI(sigmaZ, zUnit, outputUnits, false)),
		strconv.Itoa(peak),
		formatFloat(config.SI(slices.ZCenters[peak], zUnit, outputUnits, false)),
	})
}

func (s *Summary) Len() int { return len(s.rows) }

// Write stores the rows, naturally sorted by bunch name, in
// <outputPath>/<name>.csv.
func (s *Summary) Write(outputPath, name string) error {
	return utils.WriteAsCSV(s.rows, outputPath, "", name, summaryColumns)
}
