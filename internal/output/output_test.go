package output

import (
	"encoding/csv"
	"flag"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliakis/PyHEADTAIL/internal/beam"
	"github.com/kiliakis/PyHEADTAIL/internal/constants"
	"github.com/kiliakis/PyHEADTAIL/internal/slicing"
)

func slicedRamp(t *testing.T, lost ...int) (*beam.Ensemble, *slicing.SliceSet) {
	t.Helper()
	z := []float64{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4}
	n := len(z)
	q := beam.Quality{Charge: constants.ElementaryCharge, Gamma: 27.7, Intensity: 1e9, Mass: constants.ProtonMass}
	e, err := beam.FromCoordinates(make([]float64, n), make([]float64, n), make([]float64, n),
		make([]float64, n), z, make([]float64, n), q)
	require.NoError(t, err)
	for _, i := range lost {
		e.MarkLost(i)
	}
	s, err := slicing.New(2, slicing.EqualSpace)
	require.NoError(t, err)
	require.NoError(t, s.Update(e))
	require.NoError(t, s.ComputeStatistics(e))
	return e, s
}

func readCSV(t *testing.T, name string) [][]string {
	t.Helper()
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSaveDefaultSeries(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := NewDataFlags(fs)
	require.NoError(t, fs.Parse(nil))
	dir := t.TempDir()
	df.SetOutputPath(dir)
	assert.Equal(t, dir, df.GetOutputPath())

	e, s := slicedRamp(t)
	require.NoError(t, NewExtractor(e, s, []string{"mm", "GeV"}, true).Save("b1", df))

	rows := readCSV(t, filepath.Join(dir, "n", "b1.csv"))
	assert.Equal(t, [][]string{
		{"z", "macroparticles"},
		{"", "n"},
		{"-2750", "5"},
		{"1750", "5"},
	}, rows)

	sigma := readCSV(t, filepath.Join(dir, "sigma", "b1.csv"))
	require.Len(t, sigma, 4)
	assert.Equal(t, []string{"", "sigma_x", "sigma_y", "sigma_z"}, sigma[1])
	assert.Equal(t, "1414.213562373095", sigma[2][3][:17])

	assert.FileExists(t, filepath.Join(dir, "epsn", "b1.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "ld", "b1.csv"))
}

func TestSaveAllFlat(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := NewDataFlags(fs)
	require.NoError(t, fs.Parse([]string{"-all", "-n=false"}))
	dir := t.TempDir()
	df.SetOutputPath(dir)

	e, s := slicedRamp(t)
	require.NoError(t, NewExtractor(e, s, []string{"m"}, false).Save("b1", df))

	for _, suffix := range []string{"n", "ld", "mean", "meanp", "sigma", "sigmap", "epsn", "epsnz"} {
		assert.FileExists(t, filepath.Join(dir, "b1_"+suffix+".csv"))
	}
	density := readCSV(t, filepath.Join(dir, "b1_ld.csv"))
	lambda, err := strconv.ParseFloat(density[2][1], 64)
	require.NoError(t, err)
	assert.InEpsilon(t, 5*1e9*constants.ElementaryCharge/4.5, lambda, 1e-12)
}

func TestSummary(t *testing.T) {
	var summary Summary
	e, s := slicedRamp(t, 9)
	summary.Add("bunch_10", e, s, []string{"mm", "GeV"})
	e, s = slicedRamp(t)
	summary.Add("bunch_9", e, s, []string{"m", "GeV"})
	assert.Equal(t, 2, summary.Len())

	dir := t.TempDir()
	require.NoError(t, summary.Write(dir, "summary"))
	rows := readCSV(t, filepath.Join(dir, "summary.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, summaryColumns, rows[0])

	assert.Equal(t, []string{"bunch_9", "10", "10", "0", "0", "0"}, rows[1][:6])
	assert.Equal(t, []string{"bunch_10", "10", "9", "1", "0", "0"}, rows[2][:6])
	// zero transverse coordinates have zero emittance
	assert.Equal(t, "0", rows[1][6])
	// slices of the lossy bunch hold 4 and 5 particles
	assert.Equal(t, "1", rows[2][10])
	// lengths follow the output units of each bunch
	assert.Equal(t, formatFloat(1000), rows[2][11])
	sigmaZ, err := strconv.ParseFloat(rows[1][9], 64)
	require.NoError(t, err)
	assert.InEpsilon(t, math.Sqrt(8.25), sigmaZ, 1e-12)
	sigmaZ, err = strconv.ParseFloat(rows[2][9], 64)
	require.NoError(t, err)
	assert.InEpsilon(t, 1000*math.Sqrt(6.666666666666667), sigmaZ, 1e-12)
}
