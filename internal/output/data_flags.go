package output

import (
	"flag"

	"github.com/kiliakis/PyHEADTAIL/internal/config"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

// SequentialDataItem is one per-slice series written against the slice
// centers.
type SequentialDataItem struct {
	DataItem
	columnNames []string
	values      func(*Extractor) (args []float64, values [][]float64, labels []string)
	xUnit       []config.UnitElement
	yUnit       []config.UnitElement
}

type DataFlags struct {
	all         *bool
	sequentials map[string]SequentialDataItem
	outputPath  string
}

var zUnit = []config.UnitElement{{Class: config.Length, Power: 1}}

// columns lays out one value per slice for every named statistic.
func columns(ex *Extractor, stats ...[]float64) (args []float64, values [][]float64) {
	args = ex.slices.ZCenters
	values = make([][]float64, len(args))
	for i := range values {
		for _, s := range stats {
			values[i] = append(values[i], s[i])
		}
	}
	return args, values
}

// NewDataFlags registers the output selection flags on fs.
func NewDataFlags(fs *flag.FlagSet) DataFlags {
	return DataFlags{
		all: fs.Bool("all", false, "save every available per-slice series"),
		sequentials: map[string]SequentialDataItem{
			"Macroparticles": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("n", true, "save macroparticles per slice"),
					fileSuffix: "n",
				},
				columnNames: []string{"z", "macroparticles"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					counts := make([]float64, ex.slices.NSlices)
					for i, n := range ex.slices.NMacroparticles {
						counts[i] = float64(n)
					}
					args, values := columns(ex, counts)
					return args, values, []string{"n"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{},
			},
			"Line density": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("ld", false, "save line charge density"),
					fileSuffix: "ld",
				},
				columnNames: []string{"z", "C / length"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					args, values := columns(ex, ex.slices.LineDensity(ex.ensemble))
					return args, values, []string{"lambda"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{{Class: config.Length, Power: -1}},
			},
			"Mean position": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("m", false, "save slice centroids"),
					fileSuffix: "mean",
				},
				columnNames: []string{"z", "length"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					s := ex.slices
					args, values := columns(ex, s.MeanX, s.MeanY, s.MeanZ)
					return args, values, []string{"mean_x", "mean_y", "mean_z"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
			},
			"Mean momentum": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("mp", false, "save slice mean angles and momentum offset"),
					fileSuffix: "meanp",
				},
				columnNames: []string{"z", "rad / 1"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					s := ex.slices
					args, values := columns(ex, s.MeanXP, s.MeanYP, s.MeanDP)
					return args, values, []string{"mean_xp", "mean_yp", "mean_dp"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{},
			},
			"Beam size": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("s", true, "save slice rms sizes"),
					fileSuffix: "sigma",
				},
				columnNames: []string{"z", "length"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					s := ex.slices
					args, values := columns(ex, s.SigmaX, s.SigmaY, s.SigmaZ)
					return args, values, []string{"sigma_x", "sigma_y", "sigma_z"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{{Class: config.Length, Power: 1}},
			},
			"Momentum spread": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("sp", false, "save slice rms angles and momentum spread"),
					fileSuffix: "sigmap",
				},
				columnNames: []string{"z", "rad / 1"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					s := ex.slices
					args, values := columns(ex, s.SigmaXP, s.SigmaYP, s.SigmaDP)
					return args, values, []string{"sigma_xp", "sigma_yp", "sigma_dp"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{},
			},
			"Transverse emittance": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("ex", true, "save slice normalized transverse emittances"),
					fileSuffix: "epsn",
				},
				columnNames: []string{"z", "um"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					s := ex.slices
					args, values := columns(ex, s.EpsnX, s.EpsnY)
					return args, values, []string{"epsn_x", "epsn_y"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{},
			},
			"Longitudinal emittance": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("ez", false, "save slice longitudinal emittance"),
					fileSuffix: "epsnz",
				},
				columnNames: []string{"z", "eV s"},
				values: func(ex *Extractor) ([]float64, [][]float64, []string) {
					args, values := columns(ex, ex.slices.EpsnZ)
					return args, values, []string{"epsn_z"}
				},
				xUnit: zUnit,
				yUnit: []config.UnitElement{},
			},
		},
	}
}

func (df *DataFlags) SetOutputPath(path string) {
	df.outputPath = path
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}
