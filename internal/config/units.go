package config

import (
	"github.com/kiliakis/PyHEADTAIL/internal/constants"
	"github.com/kiliakis/PyHEADTAIL/internal/utils"
)

var unitToSI = map[string]float64{
	"m":   1,    // [m]
	"cm":  1e-2, // [m]
	"mm":  1e-3, // [m]
	"J":   1,    // [J]
	"eV":  constants.ElementaryCharge,
	"keV": 1e3 * constants.ElementaryCharge,
	"MeV": 1e6 * constants.ElementaryCharge,
	"GeV": 1e9 * constants.ElementaryCharge,
}

type UnitClass int

const (
	Length UnitClass = iota
	Energy
)

var unitsInClass = map[UnitClass][]string{
	Length: {"mm", "cm", "m"},
	Energy: {"eV", "keV", "MeV", "GeV", "J"},
}

var classesOfUnits = map[string]UnitClass{
	"m":   Length,
	"cm":  Length,
	"mm":  Length,
	"J":   Energy,
	"eV":  Energy,
	"keV": Energy,
	"MeV": Energy,
	"GeV": Energy,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

// checkUnits completes units with a default for every class not named and
// reports unknown units and classes named twice.
func checkUnits(units []string) (extended, conflicts []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			conflicts = append(conflicts, unit)
			continue
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
		}
	}
	extended = append([]string(nil), units...)
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v, measured in units, to SI when direct is set and from SI to
// units otherwise. classes gives the dimension of v.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		factor := unitToSI[*unit]
		if (uc.Power > 0) != direct {
			factor = 1 / factor
		}
		for i, n := 0, utils.IntAbs(uc.Power); i < n; i++ {
			v *= factor
		}
	}
	return v
}
