package queueing

import (
	"errors"
	"math"
	"testing"
)

func TestSimulateSample(t *testing.T) {
	cs, err := Simulate(SampleArrivals, SampleServices)
	if err != nil {
		t.Fatal(err)
	}

	starts := []float64{1, 3.22, 4.98, 7.11, 7.25, 8.01, 8.71, 9.18, 9.4, 10.0, 12.41, 12.82, 13.28, 14.65, 15.0}
	exits := []float64{3.22, 4.98, 7.11, 7.25, 8.01, 8.71, 9.18, 9.4, 9.58, 12.41, 12.82, 13.28, 14.65, 14.92, 15.27}
	waits := []float64{0, 1.22, 1.98, 3.11, 2.25, 2.01, 1.71, 1.18, 0.4, 0, 1.41, 0.82, 0.28, 0.65, 0}
	inQueue := []int{0, 0, 1, 1, 1, 2, 3, 2, 1, 0, 0, 1, 0, 0, 0}
	inSystem := []int{0, 1, 2, 2, 2, 3, 4, 3, 2, 0, 1, 2, 1, 1, 0}

	for i, c := range cs {
		if math.Abs(c.Start-starts[i]) > 1e-9 || math.Abs(c.Exit-exits[i]) > 1e-9 || math.Abs(c.Wait-waits[i]) > 1e-9 {
			t.Errorf("customer %d: got start=%v exit=%v wait=%v", i+1, c.Start, c.Exit, c.Wait)
		}
		if c.InQueue != inQueue[i] || c.InSystem != inSystem[i] {
			t.Errorf("customer %d: got queue=%d system=%d, want %d %d", i+1, c.InQueue, c.InSystem, inQueue[i], inSystem[i])
		}
	}
}

func TestSummarize(t *testing.T) {
	cs, err := Simulate(SampleArrivals, SampleServices)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Summarize(cs)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(s.LqArrival-0.8) > 1e-12 {
		t.Errorf("LqArrival = %v, want 0.8", s.LqArrival)
	}
	if math.Abs(s.TotalWait-17.02) > 1e-9 {
		t.Errorf("TotalWait = %v, want 17.02", s.TotalWait)
	}
	if Round4(s.Lq) != 1.1146 {
		t.Errorf("Lq = %v, want 1.1146", Round4(s.Lq))
	}
	if math.Abs(s.Makespan-15.27) > 1e-9 {
		t.Errorf("Makespan = %v", s.Makespan)
	}

	if _, err := Summarize(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name     string
		arrivals []float64
		services []float64
		want     error
	}{
		{"length", []float64{1, 2}, []float64{1}, ErrLengthMismatch},
		{"unsorted", []float64{2, 1}, []float64{1, 1}, ErrUnsorted},
		{"negative", []float64{1, 2}, []float64{1, -1}, ErrNegativeTime},
		{"empty", nil, nil, ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Simulate(tt.arrivals, tt.services); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMM1Scaling(t *testing.T) {
	ks := []int{1, 2, 5, 10}
	rows, err := MM1Scaling(10, 20, ks)
	if err != nil {
		t.Fatal(err)
	}

	for i, r := range rows {
		k := float64(ks[i])
		if r.Utilization != 0.5 || r.MeanInSystem != 1 {
			t.Errorf("k=%d: utilization %v, E[N] %v", r.K, r.Utilization, r.MeanInSystem)
		}
		if r.Throughput != 10*k {
			t.Errorf("k=%d: throughput %v", r.K, r.Throughput)
		}
		if math.Abs(r.MeanTimeSystem-1/(10*k)) > 1e-15 {
			t.Errorf("k=%d: E[T] %v", r.K, r.MeanTimeSystem)
		}
	}

	if _, err := MM1Scaling(20, 20, ks); !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
	if _, err := MM1Scaling(10, 20, []int{0}); err == nil {
		t.Error("expected error for k=0")
	}
}
