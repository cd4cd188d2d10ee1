package utils

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadFloatPairs reads a whitespace separated two-column table of numbers.
// Blank lines and lines starting with '#' are skipped.
func ReadFloatPairs(filename string) ([][2]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening table")
	}
	defer file.Close()

	var result [][2]float64

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.Fields(line)

		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid format in line %q: expected 2 numbers, got %d", line, len(parts))
		}

		var pair [2]float64
		for i := range pair {
			if pair[i], err = strconv.ParseFloat(parts[i], 64); err != nil {
				return nil, errors.Wrapf(err, "parsing line %q", line)
			}
		}
		result = append(result, pair)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading table")
	}

	return result, nil
}

// GetFilename strips the directory and the extension from a path.
func GetFilename(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OpenFile creates <outputPath>/<fileSuffix>/<name>.<ext> when makeDir is set,
// and <outputPath>/<name>_<fileSuffix>.<ext> otherwise.
func OpenFile(makeDir bool, outputPath, fileSuffix, name, ext string) (*os.File, error) {
	if makeDir && fileSuffix != "" && fileSuffix != "." {
		dir := filepath.Join(outputPath, fileSuffix)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating %s", dir)
		}
		return os.Create(filepath.Join(dir, name+"."+ext))
	}
	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating %s", outputPath)
		}
	}
	if fileSuffix == "" {
		return os.Create(filepath.Join(outputPath, name+"."+ext))
	}
	return os.Create(filepath.Join(outputPath, name+"_"+fileSuffix+"."+ext))
}
