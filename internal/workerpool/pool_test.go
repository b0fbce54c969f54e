package workerpool

import (
	"errors"
	"testing"
)

func TestRunPreservesOrder(t *testing.T) {
	jobs := make([]Job, 20)
	for i := 0; i < 20; i++ {
		i := i
		jobs[i] = func() (any, error) { return i * i, nil }
	}
	results, errs := Run(jobs)
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("job %d: unexpected error %v", i, errs[i])
		}
		if r.(int) != i*i {
			t.Fatalf("job %d: got %v, want %d", i, r, i*i)
		}
	}
}

func TestRunCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job{
		func() (any, error) { return 1, nil },
		func() (any, error) { return nil, boom },
	}
	_, errs := Run(jobs)
	if errs[0] != nil || errs[1] != boom {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestWorkersRespectsEnv(t *testing.T) {
	t.Setenv(EnvThreads, "3")
	workers = 0
	if got := Workers(); got != 3 {
		t.Fatalf("Workers() = %d, want 3", got)
	}
}
