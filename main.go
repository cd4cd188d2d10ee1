package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kiliakis/PyHEADTAIL/internal/config"
	"github.com/kiliakis/PyHEADTAIL/internal/logging"
	"github.com/kiliakis/PyHEADTAIL/internal/model"
	"github.com/kiliakis/PyHEADTAIL/internal/output"
	"github.com/kiliakis/PyHEADTAIL/internal/utils"
)

func main() {
	df := output.NewDataFlags(flag.CommandLine)
	var configFileNamePointer = flag.String("input", "bunches", "bunch configuration in toml format")
	var verbose = flag.Bool("v", false, "print progress")
	var debug = flag.Bool("vv", false, "print per-bunch diagnostics")
	var threads = flag.Int("threads", runtime.NumCPU(), "number of bunches processed concurrently")
	var saveCheckpoints = flag.Bool("checkpoint", false, "save every bunch after slicing")
	var resumeDir = flag.String("resume", "", "load bunches from the checkpoints in this directory instead of drawing them")
	flag.Parse()

	switch {
	case *debug:
		logging.Mode = logging.Debug
	case *verbose:
		logging.Mode = logging.Progress
	}

	startTime := time.Now()
	logging.Printf(logging.Progress, "Current time: %s", startTime.UTC().Format(time.UnixDate))

	configFileName := strings.TrimSuffix(*configFileNamePointer, ".toml")
	cfg, meta, err := config.LoadConfig(configFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	outputPath := ""
	if cfg.OutputDir != "" && cfg.OutputDir != "." {
		outputPath = cfg.OutputDir
	}
	df.SetOutputPath(outputPath)
	checkpointDir := filepath.Join(outputPath, "checkpoints")

	failed := 0
	jobs := map[string]model.Job{}
	for bunchName, parameters := range cfg.Bunches {
		if err := parameters.CheckAndUnify(bunchName, &cfg, &meta); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
			continue
		}
		if *resumeDir != "" {
			jobs[bunchName] = func() (*model.Bunch, error) {
				return model.ResumeBunch(bunchName, parameters, *resumeDir)
			}
		} else {
			jobs[bunchName] = func() (*model.Bunch, error) {
				return model.NewBunch(bunchName, parameters)
			}
		}
	}

	var summary output.Summary
	counter := 0
	for result := range model.Process(jobs, *threads) {
		counter++
		logging.Printf(logging.Progress, "Done:[%d/%d] %s", counter, len(jobs), result.Name)
		if result.Err != nil {
			fmt.Fprintln(os.Stderr, result.Err)
			failed++
			continue
		}
		b := result.Bunch
		extractor := output.NewExtractor(b.Ensemble, b.Slices, b.Parameters.OutputUnits(), cfg.MakeDir)
		if err := extractor.Save(b.Name, df); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
		if *saveCheckpoints {
			if err := b.SaveCheckpoint(checkpointDir); err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed++
			}
		}
		summary.Add(b.Name, b.Ensemble, b.Slices, b.Parameters.OutputUnits())
	}

	if summary.Len() > 0 {
		if err := summary.Write(outputPath, utils.GetFilename(configFileName)+"_summary"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed++
		}
	}
	logging.Printf(logging.Progress, "Elapsed time: %v; %s", time.Since(startTime), logging.MemString())
	if failed > 0 {
		os.Exit(1)
	}
}
