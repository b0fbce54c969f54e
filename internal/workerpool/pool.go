// Package workerpool implements the process-wide worker pool that
// chunk-parallel readers and writers dispatch onto, sized by the
// LASPP_NUM_THREADS environment variable.
package workerpool

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// EnvThreads is the environment variable controlling pool size. A value of
// 0 or 1 disables parallelism; unset or invalid falls back to
// runtime.NumCPU().
const EnvThreads = "LASPP_NUM_THREADS"

var (
	mu      sync.Mutex
	workers int
	seenEnv string
)

func threadsFromEnv() int {
	v, ok := os.LookupEnv(EnvThreads)
	if !ok {
		return runtime.NumCPU()
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return runtime.NumCPU()
	}
	if n == 0 {
		return 1
	}
	return n
}

// Workers returns the current pool size, re-reading LASPP_NUM_THREADS if
// it has changed since the last call. Guarded by a mutex since readers and
// writers on different goroutines may call this concurrently.
func Workers() int {
	mu.Lock()
	defer mu.Unlock()
	cur, _ := os.LookupEnv(EnvThreads)
	if workers == 0 || cur != seenEnv {
		workers = threadsFromEnv()
		seenEnv = cur
	}
	return workers
}

// Job is one unit of dispatched work: decode or encode a single chunk.
type Job func() (any, error)

// Run executes jobs across Workers() goroutines and returns their results
// in the same order the jobs were given, regardless of completion order —
// callers rely on that ordering to reassemble chunks into a point stream.
func Run(jobs []Job) ([]any, []error) {
	n := len(jobs)
	if n == 0 {
		return nil, nil
	}

	workers := Workers()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		results := make([]any, n)
		errs := make([]error, n)
		for i, j := range jobs {
			results[i], errs[i] = j()
		}
		return results, errs
	}

	type indexed struct {
		index int
		val   any
		err   error
	}

	indices := make(chan int, n)
	out := make(chan indexed, n)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				val, err := jobs[i]()
				out <- indexed{index: i, val: val, err: err}
			}
		}()
	}

	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]any, n)
	errs := make([]error, n)
	for r := range out {
		results[r.index] = r.val
		errs[r.index] = r.err
	}
	return results, errs
}
