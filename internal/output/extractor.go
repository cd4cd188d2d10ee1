// Package output writes the per-slice statistics of processed bunches as CSV
// tables and collects a per-bunch summary.
package output

import (
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/config"
	"github.com/kiliakis/PyHEADTAIL/internal/logging"
	"github.com/kiliakis/PyHEADTAIL/internal/slicing"
	"github.com/kiliakis/PyHEADTAIL/internal/utils"
)

type Extractor struct {
	ensemble    *beam.Ensemble
	slices      *slicing.SliceSet
	outputUnits []string
	makeDir     bool
}

// NewExtractor wraps a bunch whose slice statistics are up to date.
func NewExtractor(e *beam.Ensemble, s *slicing.SliceSet, outputUnits []string, makeDir bool) *Extractor {
	return &Extractor{ensemble: e, slices: s, outputUnits: outputUnits, makeDir: makeDir}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Save writes every series selected in df for the named bunch.
func (ex *Extractor) Save(bunchName string, df DataFlags) error {
	names := make([]string, 0, len(df.sequentials))
	for name := range df.sequentials {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		output := df.sequentials[name]
		if !*output.saveFlag && !*df.all {
			continue
		}
		if err := ex.saveSeries(bunchName, df.outputPath, output); err != nil {
			return errors.Wrapf(err, "saving %s of %s", name, bunchName)
		}
		logging.Printf(logging.Debug, "%s: %s saved", bunchName, name)
	}
	return nil
}

func (ex *Extractor) saveSeries(bunchName, outputPath string, output SequentialDataItem) error {
	file, err := utils.OpenFile(ex.makeDir, outputPath, output.fileSuffix, bunchName, "csv")
	if err != nil {
		return err
	}
	defer file.Close()

	rows := [][]string{output.columnNames}
	xColumnValue, yColumnValues, yLabels := output.values(ex)
	rows = append(rows, append([]string{""}, yLabels...))
	for x := range xColumnValue {
		row := []string{formatFloat(config.SI(xColumnValue[x], output.xUnit, ex.outputUnits, false))}
		for i := range yColumnValues[x] {
			row = append(row, formatFloat(config.SI(yColumnValues[x][i], output.yUnit, ex.outputUnits, false)))
		}
		rows = append(rows, row)
	}
	w := csv.NewWriter(file)
	if err = w.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}
