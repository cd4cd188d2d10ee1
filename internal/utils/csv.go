package utils

import (
	"encoding/csv"
	"sort"

	"github.com/facette/natsort"
	"github.com/pkg/errors"
)

// CSV rows sort by their first column in natural order, so bunch_10 comes
// after bunch_9.
type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}

func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// WriteAsCSV sorts data and writes it below a header row to
// <path>/<subpath>/<filename>.csv.
func WriteAsCSV(data CSV, path, subpath, filename string, columns []string) error {
	f, err := OpenFile(true, path, subpath, GetFilename(filename), "csv")
	if err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err = w.Write(columns); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	sort.Sort(data)
	if err = w.WriteAll(data); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	return f.Close()
}
