package utils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVNaturalOrder(t *testing.T) {
	data := CSV{{"bunch_10", "a"}, {"bunch_2", "b"}, {"bunch_1", "c"}}
	sort.Sort(data)
	assert.Equal(t, []string{"bunch_1", "bunch_2", "bunch_10"}, []string{data[0][0], data[1][0], data[2][0]})
}

func TestWriteAsCSV(t *testing.T) {
	dir := t.TempDir()
	data := CSV{{"b10", "1"}, {"b9", "2"}}
	require.NoError(t, WriteAsCSV(data, dir, "summary", "run.toml", []string{"bunch", "n"}))

	content, err := os.ReadFile(filepath.Join(dir, "summary", "run.csv"))
	require.NoError(t, err)
	assert.Equal(t, "bunch,n\nb9,2\nb10,1\n", string(content))
}

func TestReadFloatPairs(t *testing.T) {
	name := filepath.Join(t.TempDir(), "scan.txt")
	require.NoError(t, os.WriteFile(name, []byte("# intensity sigma_z\n1e11 0.2\n\n2.5e11\t0.25\n"), 0600))
	pairs, err := ReadFloatPairs(name)
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{1e11, 0.2}, {2.5e11, 0.25}}, pairs)

	require.NoError(t, os.WriteFile(name, []byte("1 2 3\n"), 0600))
	_, err = ReadFloatPairs(name)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(name, []byte("1 x\n"), 0600))
	_, err = ReadFloatPairs(name)
	assert.Error(t, err)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "scan", GetFilename("/data/scan.txt"))

	dir := t.TempDir()
	f, err := OpenFile(false, dir, "n", "bunch", "csv")
	require.NoError(t, err)
	f.Close()
	assert.FileExists(t, filepath.Join(dir, "bunch_n.csv"))

	f, err = OpenFile(true, dir, "n", "bunch", "csv")
	require.NoError(t, err)
	f.Close()
	assert.FileExists(t, filepath.Join(dir, "n", "bunch.csv"))
}

func TestIntersect(t *testing.T) {
	got := Intersect([]string{"mm", "cm", "m"}, []string{"GeV", "cm"})
	require.NotNil(t, got)
	assert.Equal(t, "cm", *got)
	assert.Nil(t, Intersect([]string{"mm"}, []string{"m"}))
	assert.Equal(t, 3, IntAbs(-3))
}
