// Package model builds bunches from their parameters, slices them and runs
// many of them on a bounded pool of workers.
package model

import (
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/checkpoint"
	"github.com/kiliakis/PyHEADTAIL/internal/config"
	"github.com/kiliakis/PyHEADTAIL/internal/logging"
	"github.com/kiliakis/PyHEADTAIL/internal/matching"
	"github.com/kiliakis/PyHEADTAIL/internal/slicing"
)

// CheckpointExt is the file extension of saved bunches.
const CheckpointExt = ".ckpt"

// Bunch is owned by one goroutine at a time; its random stream feeds both
// the initial distribution and the equal-charge remainder draw.
type Bunch struct {
	Name       string
	Parameters config.BunchParameters
	Ensemble   *beam.Ensemble
	Slices     *slicing.SliceSet

	rng *rand.Rand
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// NewBunch draws and matches a fresh ensemble.
func NewBunch(name string, parameters config.BunchParameters) (*Bunch, error) {
	b := &Bunch{Name: name, Parameters: parameters, rng: newRand(parameters.Seed)}
	dist, err := beam.ParseDistribution(parameters.Distribution)
	if err != nil {
		return nil, errors.Wrapf(err, "bunch %s", name)
	}
	b.Ensemble, err = beam.New(parameters.NMacroparticles, dist, b.quality(),
		beam.WithRandom(b.rng),
		beam.WithMatcher(b.matcher()),
		beam.WithIdentityRestore(parameters.RestoreIdentities),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "bunch %s", name)
	}
	logging.Printf(logging.Debug, "%s: %d macroparticles, %d outside the bucket", name, b.Ensemble.Len(), b.Ensemble.NLost)
	if err := b.newSlices(); err != nil {
		return nil, err
	}
	return b, nil
}

// ResumeBunch loads the ensemble saved for name in dir instead of drawing
// one. The slicing setup still comes from parameters.
func ResumeBunch(name string, parameters config.BunchParameters, dir string) (*Bunch, error) {
	b := &Bunch{Name: name, Parameters: parameters, rng: newRand(parameters.Seed)}
	var err error
	b.Ensemble, err = checkpoint.LoadFile(CheckpointPath(dir, name),
		beam.WithIdentityRestore(parameters.RestoreIdentities))
	if err != nil {
		return nil, errors.Wrapf(err, "bunch %s", name)
	}
	if b.Ensemble.Len() != parameters.NMacroparticles {
		logging.Printf(logging.Progress, "%s: checkpoint holds %d macroparticles, configured %d",
			name, b.Ensemble.Len(), parameters.NMacroparticles)
	}
	if err := b.newSlices(); err != nil {
		return nil, err
	}
	return b, nil
}

func CheckpointPath(dir, name string) string {
	return filepath.Join(dir, name+CheckpointExt)
}

func (b *Bunch) quality() beam.Quality {
	return beam.Quality{
		Charge:    b.Parameters.Charge,
		Gamma:     b.Parameters.Gamma,
		Intensity: b.Parameters.Intensity(),
		Mass:      b.Parameters.Mass,
	}
}

// matcher maps the configured optics onto matchers. A plane with no
// emittance keeps a unit beta so that it collapses onto the axis.
func (b *Bunch) matcher() beam.Matcher {
	p := b.Parameters
	var chain matching.Chain
	if p.EpsnX > 0 || p.EpsnY > 0 {
		unitIfUnset := func(beta float64) float64 {
			if beta == 0 {
				return 1
			}
			return beta
		}
		chain = append(chain, matching.Transverse{
			AlphaX: p.AlphaX, BetaX: unitIfUnset(p.BetaX), EpsnX: p.EpsnX,
			AlphaY: p.AlphaY, BetaY: unitIfUnset(p.BetaY), EpsnY: p.EpsnY,
		})
	}
	if p.SigmaZ > 0 || p.SigmaDP > 0 {
		longitudinal := matching.Longitudinal{SigmaZ: p.SigmaZ, SigmaDP: p.SigmaDP}
		if p.BucketLength > 0 {
			chain = append(chain, matching.InBucket{Longitudinal: longitudinal, BucketLength: p.BucketLength})
		} else {
			chain = append(chain, longitudinal)
		}
	}
	return chain
}

func (b *Bunch) newSlices() error {
	mode, err := slicing.ParseMode(b.Parameters.SliceMode)
	if err != nil {
		return errors.Wrapf(err, "bunch %s", b.Name)
	}
	opts := []slicing.Option{slicing.WithRandom(b.rng)}
	if len(b.Parameters.ZCuts) == 2 {
		opts = append(opts, slicing.WithZCuts(b.Parameters.ZCuts[0], b.Parameters.ZCuts[1]))
	} else {
		opts = append(opts, slicing.WithNSigmaZ(b.Parameters.NSigmaZ))
	}
	b.Slices, err = slicing.New(b.Parameters.NSlices, mode, opts...)
	return errors.Wrapf(err, "bunch %s", b.Name)
}

// Run slices the bunch and computes the slice statistics.
func (b *Bunch) Run() error {
	if err := b.Slices.Update(b.Ensemble); err != nil {
		return errors.Wrapf(err, "bunch %s", b.Name)
	}
	if err := b.Slices.ComputeStatistics(b.Ensemble); err != nil {
		return errors.Wrapf(err, "bunch %s", b.Name)
	}
	logging.Printf(logging.Debug, "%s: window [%g, %g], %d sliced, %d cut",
		b.Name, b.Slices.ZCutTail, b.Slices.ZCutHead, b.Slices.NSliced(), b.Slices.NCutTail+b.Slices.NCutHead)
	return nil
}

// SaveCheckpoint writes the ensemble to dir, creating it if needed.
func (b *Bunch) SaveCheckpoint(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrapf(err, "bunch %s", b.Name)
	}
	return checkpoint.SaveFile(CheckpointPath(dir, b.Name), b.Ensemble)
}
