package model

import (
	"sort"
	"sync"

	"github.com/kiliakis/PyHEADTAIL/internal/logging"
)

// Job builds one bunch; it runs on a worker goroutine.
type Job func() (*Bunch, error)

type Result struct {
	Name  string
	Bunch *Bunch
	Err   error
}

// Process builds and runs every job on at most threads workers. Results
// arrive in completion order; the channel is closed after the last one.
func Process(jobs map[string]Job, threads int) <-chan Result {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	computeflow := make(chan string, len(names))
	for _, name := range names {
		computeflow <- name
	}
	close(computeflow)

	dataflow := make(chan Result)
	var computeWg sync.WaitGroup
	for range max(threads, 1) {
		computeWg.Add(1)
		go func() {
			defer computeWg.Done()
			for name := range computeflow {
				logging.Printf(logging.Debug, "%s: started", name)
				b, err := jobs[name]()
				if err == nil {
					err = b.Run()
				}
				if err != nil {
					b = nil
				}
				dataflow <- Result{Name: name, Bunch: b, Err: err}
			}
		}()
	}

	// chan killer
	go func() {
		computeWg.Wait()
		close(dataflow)
	}()
	return dataflow
}
