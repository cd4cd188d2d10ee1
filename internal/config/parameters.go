package config

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/constants"
	"github.com/kiliakis/PyHEADTAIL/internal/utils"
)

var ErrConfig = errors.New("invalid configuration")

type Config struct {
	OutputDir string
	MakeDir   bool
	Bunches   map[string]BunchParameters
	BunchParameters
	// Scan names a two-column table of bunch population and rms bunch length;
	// every line becomes one bunch.
	Scan         string
	isDefinedMap map[string]struct{}

	InputUnits  []string
	OutputUnits []string
}

func (c *Config) isDefined(path []string, meta *toml.MetaData) bool {
	if _, sureDefined := c.isDefinedMap[strings.Join(path, "#")]; sureDefined {
		return true
	}
	return meta.IsDefined(path...)
}

// LoadConfig reads <configFileName>.toml.
func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	config.isDefinedMap = map[string]struct{}{}
	meta, err := toml.DecodeFile(configFileName+".toml", &config)
	if err != nil {
		return config, meta, errors.Wrap(err, "decoding config")
	}

	var unitsConflict []string
	config.InputUnits, unitsConflict = checkUnits(config.InputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, errors.Wrapf(ErrConfig, "input unit conflict: %v", unitsConflict)
	}
	if len(config.OutputUnits) == 0 {
		config.OutputUnits = config.InputUnits
	}
	config.OutputUnits, unitsConflict = checkUnits(config.OutputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, errors.Wrapf(ErrConfig, "output unit conflict: %v", unitsConflict)
	}

	if len(config.Scan) > 0 {
		if len(config.Bunches) > 0 {
			return config, meta, errors.Wrap(ErrConfig, "a scan table and explicit bunches are mutually exclusive")
		}
		scan, err := utils.ReadFloatPairs(config.Scan)
		if err != nil {
			return config, meta, errors.Wrap(err, "reading scan table")
		}
		filename := utils.GetFilename(config.Scan)
		config.Bunches = make(map[string]BunchParameters, len(scan))
		for line := range scan {
			bunchName := filename + "_l" + strconv.Itoa(line+1)
			config.Bunches[bunchName] = BunchParameters{
				NParticles: scan[line][0],
				SigmaZ:     scan[line][1],
			}
			config.isDefinedMap[strings.Join([]string{"Bunches", bunchName, "NParticles"}, "#")] = struct{}{}
			config.isDefinedMap[strings.Join([]string{"Bunches", bunchName, "SigmaZ"}, "#")] = struct{}{}
		}
	} else if len(config.Bunches) == 0 {
		return config, meta, errors.Wrap(ErrConfig, "no bunches provided")
	}

	return config, meta, nil
}

type BunchParameters struct {
	NMacroparticles int
	Distribution    string
	Species         string
	Charge          float64 // [C]
	Mass            float64 // [kg]
	Gamma           float64
	Energy          float64 // total energy per particle [GeV]
	NParticles      float64 // physical particles in the bunch

	AlphaX, BetaX, EpsnX float64 // [1], [m], [um]
	AlphaY, BetaY, EpsnY float64 // [1], [m], [um]
	SigmaZ               float64 // [m]
	SigmaDP              float64
	BucketLength         float64 // [m]

	NSlices   int
	SliceMode string
	NSigmaZ   float64
	ZCuts     []float64 // [m]

	Seed              int64 // 0 seeds from the clock
	RestoreIdentities bool

	_outputUnits []string
}

func (p *BunchParameters) OutputUnits() []string {
	return p._outputUnits
}

func (p *BunchParameters) SetOutputUnits(u []string) {
	p._outputUnits = u
}

// Intensity is the number of physical particles one macroparticle stands for.
func (p *BunchParameters) Intensity() float64 {
	return p.NParticles / float64(p.NMacroparticles)
}

var defaultValues = map[string]any{ // in SI
	"NMacroparticles":   10000,
	"Distribution":      "gauss",
	"Species":           "proton",
	"Gamma":             27.7,
	"NParticles":        1.15e11,
	"NSlices":           64,
	"SliceMode":         "const_space",
	"NSigmaZ":           0.,
	"Seed":              int64(0),
	"RestoreIdentities": false,
}

var defaultUnits = []string{"m", "GeV"}

var species = map[string]struct{ mass, charge float64 }{
	"proton":   {constants.ProtonMass, constants.ElementaryCharge},
	"electron": {constants.ElectronMass, -constants.ElementaryCharge},
}

var fieldsXor = map[string][]string{
	"Gamma":   {"Energy"},
	"Energy":  {"Gamma"},
	"NSigmaZ": {"ZCuts"},
	"ZCuts":   {"NSigmaZ"},
	"Species": {"Mass"},
	"Mass":    {"Species"},
}

var fieldsAnd = map[string][]string{
	"EpsnX":        {"BetaX"},
	"EpsnY":        {"BetaY"},
	"BucketLength": {"SigmaZ"},
	"Mass":         {"Charge"},
}

var fieldsDerivable = map[string][]string{
	"Species": {"Mass"},
	"Energy":  {"Gamma"},
}

var valueUnits = map[string][]UnitElement{
	"Energy": {
		{Class: Energy, Power: 1},
	},
	"BetaX": {
		{Class: Length, Power: 1},
	},
	"BetaY": {
		{Class: Length, Power: 1},
	},
	"SigmaZ": {
		{Class: Length, Power: 1},
	},
	"BucketLength": {
		{Class: Length, Power: 1},
	},
	"ZCuts": {
		{Class: Length, Power: 1},
	},
}

// calculableFields derive other fields from the key field. A nil result
// without error means a prerequisite is not available yet.
var calculableFields = map[string]func(*BunchParameters, []string) ([]string, error){
	"Species": func(bp *BunchParameters, definedFields []string) ([]string, error) {
		s, known := species[bp.Species]
		if !known {
			return nil, errors.Wrapf(ErrConfig, "unknown species %q", bp.Species)
		}
		bp.Mass = s.mass
		if slices.Contains(definedFields, "Charge") {
			return []string{"Mass"}, nil
		}
		bp.Charge = s.charge
		return []string{"Mass", "Charge"}, nil
	},
	"Energy": func(bp *BunchParameters, definedFields []string) ([]string, error) {
		if !slices.Contains(definedFields, "Mass") {
			return nil, nil
		}
		restEnergy := bp.Mass * constants.SpeedOfLight * constants.SpeedOfLight
		bp.Gamma = bp.Energy / restEnergy
		return []string{"Gamma"}, nil
	},
}

func (bp *BunchParameters) toSI(parameterNames, units []string) {
	bpReflect := reflect.ValueOf(bp).Elem()
	for _, name := range parameterNames {
		field := bpReflect.FieldByName(name)
		switch {
		case field.CanFloat():
			field.SetFloat(SI(field.Float(), valueUnits[name], units, true))
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Float64:
			// the backing array may be shared with the global section
			converted := make([]float64, field.Len())
			for i := range converted {
				converted[i] = SI(field.Index(i).Float(), valueUnits[name], units, true)
			}
			field.Set(reflect.ValueOf(converted))
		}
	}
}

func (bp *BunchParameters) checkFieldProblems(path []string, meta *toml.MetaData, globalConfig *Config) (ambiguities [][]string) {
	bpReflect := reflect.ValueOf(bp).Elem()
	for field, alternatives := range fieldsXor {
		if !globalConfig.isDefined(append(slices.Clip(path), field), meta) {
			continue
		}
		if bpReflect.FieldByName(field).Kind() == reflect.Bool && !bpReflect.FieldByName(field).Bool() {
			continue
		}
		var foundAlternatives []string
		for _, alternative := range alternatives {
			if globalConfig.isDefined(append(slices.Clip(path), alternative), meta) {
				foundAlternatives = append(foundAlternatives, alternative)
			}
		}
		if len(foundAlternatives) > 0 {
			ambiguities = append(ambiguities, append([]string{field}, foundAlternatives...))
		}
	}
	return
}

/*
field value priority:
1. bunch
2. bunch-calculable
3. global
4. global-calculable
5. default
*/

// CheckAndUnify fills bp, decoded from [Bunches.<bunchName>], with global
// and default values, converts it to SI and derives calculable fields.
func (bp *BunchParameters) CheckAndUnify(bunchName string, config *Config, meta *toml.MetaData) error {
	if ambiguities := config.checkFieldProblems(nil, meta, config); len(ambiguities) > 0 {
		return errors.Wrapf(ErrConfig, "global ambiguities %v", ambiguities)
	}
	path := []string{"Bunches", bunchName}
	if ambiguities := bp.checkFieldProblems(path, meta, config); len(ambiguities) > 0 {
		return errors.Wrapf(ErrConfig, "bunch %s ambiguities %v", bunchName, ambiguities)
	}

	var discoveredParameters []string
	exclude := map[string]struct{}{}
	excludeAlternatives := func(fieldName string) {
		for _, x := range fieldsXor[fieldName] {
			exclude[x] = struct{}{}
		}
		for _, x := range fieldsDerivable[fieldName] {
			exclude[x] = struct{}{}
		}
	}

	bpReflect := reflect.ValueOf(bp).Elem()
	bpType := bpReflect.Type()
	for i, n := 0, bpReflect.NumField(); i < n; i++ {
		field := bpType.Field(i)
		if field.IsExported() && config.isDefined(append(slices.Clip(path), field.Name), meta) {
			discoveredParameters = append(discoveredParameters, field.Name)
			excludeAlternatives(field.Name)
		}
	}

	globalReflect := reflect.ValueOf(&config.BunchParameters).Elem()
	for i, n := 0, globalReflect.NumField(); i < n; i++ {
		field := bpType.Field(i)
		if !field.IsExported() || slices.Contains(discoveredParameters, field.Name) {
			continue
		}
		if _, some := exclude[field.Name]; !some && meta.IsDefined(field.Name) {
			bpReflect.Field(i).Set(globalReflect.Field(i))
			discoveredParameters = append(discoveredParameters, field.Name)
			exclude[field.Name] = struct{}{}
			excludeAlternatives(field.Name)
		}
	}

	bp.toSI(discoveredParameters, config.InputUnits)

	for fieldName, value := range defaultValues {
		if _, x := exclude[fieldName]; !x && !slices.Contains(discoveredParameters, fieldName) {
			bpReflect.FieldByName(fieldName).Set(reflect.ValueOf(value))
			discoveredParameters = append(discoveredParameters, fieldName)
		}
	}

	var enabledParameters []string
	for _, fieldName := range discoveredParameters {
		field := bpReflect.FieldByName(fieldName)
		if field.Kind() != reflect.Bool || field.Bool() {
			enabledParameters = append(enabledParameters, fieldName)
		}
	}

	calculatedAnything := true
	for calculatedAnything {
		calculatedAnything = false
		for initialFieldName, calculate := range calculableFields {
			if !slices.Contains(enabledParameters, initialFieldName) {
				continue
			}
			calculated, err := calculate(bp, enabledParameters)
			if err != nil {
				return errors.Wrapf(err, "bunch %s", bunchName)
			}
			if len(calculated) != 0 {
				calculatedAnything = true
				enabledParameters = append(enabledParameters, calculated...)
				enabledParameters = slices.DeleteFunc(enabledParameters, func(elem string) bool {
					return elem == initialFieldName
				})
			}
		}
	}
	for initialFieldName := range calculableFields {
		if slices.Contains(enabledParameters, initialFieldName) {
			return errors.Wrapf(ErrConfig, "bunch %s: unable to derive fields from %s", bunchName, initialFieldName)
		}
	}

	var problems []string
	for _, fieldName := range enabledParameters {
		for _, requirement := range fieldsAnd[fieldName] {
			if !slices.Contains(enabledParameters, requirement) {
				problems = append(problems, fieldName+" requires "+requirement)
			}
		}
		for _, conflict := range fieldsXor[fieldName] {
			if slices.Contains(enabledParameters, conflict) {
				problems = append(problems, fieldName+" conflicts with "+conflict)
			}
		}
	}
	if len(problems) > 0 {
		return errors.Wrapf(ErrConfig, "bunch %s: %s", bunchName, strings.Join(problems, "; "))
	}
	if err := bp.validate(); err != nil {
		return errors.Wrapf(err, "bunch %s", bunchName)
	}

	units, conflict := checkUnits(config.OutputUnits)
	if len(conflict) > 0 {
		bp._outputUnits = config.InputUnits
	} else {
		bp._outputUnits = units
	}
	return nil
}

func (bp *BunchParameters) validate() error {
	switch {
	case bp.NMacroparticles <= 0:
		return errors.Wrapf(ErrConfig, "NMacroparticles must be positive, got %d", bp.NMacroparticles)
	case bp.NSlices <= 0:
		return errors.Wrapf(ErrConfig, "NSlices must be positive, got %d", bp.NSlices)
	case bp.Gamma < 1:
		return errors.Wrapf(ErrConfig, "Gamma must be at least 1, got %g", bp.Gamma)
	case len(bp.ZCuts) != 0 && len(bp.ZCuts) != 2:
		return errors.Wrapf(ErrConfig, "ZCuts needs a tail and a head, got %v", bp.ZCuts)
	case bp.NParticles < 0:
		return errors.Wrapf(ErrConfig, "NParticles must not be negative, got %g", bp.NParticles)
	}
	return nil
}
