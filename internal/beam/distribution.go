package beam

import (
	"github.com/pkg/errors"
)

// Distribution names the raw initial distribution of every coordinate.
type Distribution string

const (
	Empty   Distribution = "empty"   // all zero
	Gauss   Distribution = "gauss"   // independent standard normal
	Uniform Distribution = "uniform" // independent uniform on [-1, 1]
)

func ParseDistribution(name string) (Distribution, error) {
	switch d := Distribution(name); d {
	case Empty, Gauss, Uniform:
		return d, nil
	}
	return "", errors.Wrapf(ErrInvalidArgument, "unknown distribution %q", name)
}

func (e *Ensemble) populate(n int, dist Distribution, src Source) error {
	var draw func() float64
	switch dist {
	case Empty:
		draw = nil
	case Gauss:
		draw = src.NormFloat64
	case Uniform:
		draw = func() float64 { return 2.*src.Float64() - 1. }
	default:
		return errors.Wrapf(ErrInvalidArgument, "unknown distribution %q", dist)
	}

	coords := [6]*[]float64{&e.X, &e.XP, &e.Y, &e.YP, &e.Z, &e.DP}
	for _, c := range coords {
		*c = make([]float64, n)
		if draw == nil {
			continue
		}
		for i := range *c {
			(*c)[i] = draw()
		}
	}
	return nil
}
