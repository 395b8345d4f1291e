// Package queueing simulates a single-server FIFO queue from observed
// arrivals and evaluates M/M/1 scaling formulas.
package queueing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrLengthMismatch = errors.New("queueing: arrivals and services differ in length")
	ErrUnsorted       = errors.New("queueing: arrivals must be non-decreasing")
	ErrNegativeTime   = errors.New("queueing: service durations must be non-negative")
	ErrUnstable       = errors.New("queueing: utilization must be below 1")
	ErrEmpty          = errors.New("queueing: no customers")
)

// Customer is one row of the simulation table.
type Customer struct {
	Arrival float64 `json:"arrival"`
	Service float64 `json:"service"`
	Start   float64 `json:"start"`
	Exit    float64 `json:"exit"`
	Wait    float64 `json:"wait"`
	// InQueue and InSystem count earlier customers waiting, or present at
	// all, at the moment this one arrives.
	InQueue  int `json:"in_queue"`
	InSystem int `json:"in_system"`
}

// Simulate serves customers in arrival order on one server.
func Simulate(arrivals, services []float64) ([]Customer, error) {
	if len(arrivals) != len(services) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(arrivals), len(services))
	}
	if len(arrivals) == 0 {
		return nil, ErrEmpty
	}

	out := make([]Customer, len(arrivals))
	for i, a := range arrivals {
		if i > 0 && a < arrivals[i-1] {
			return nil, fmt.Errorf("%w at index %d", ErrUnsorted, i)
		}
		if services[i] < 0 {
			return nil, fmt.Errorf("%w at index %d", ErrNegativeTime, i)
		}

		start := a
		if i > 0 {
			start = math.Max(a, out[i-1].Exit)
		}
		c := Customer{Arrival: a, Service: services[i], Start: start, Exit: start + services[i], Wait: start - a}

		for j := 0; j < i; j++ {
			if out[j].Start > a {
				c.InQueue++
			}
			if out[j].Exit > a {
				c.InSystem++
			}
		}
		out[i] = c
	}
	return out, nil
}

// Summary aggregates a simulation.
type Summary struct {
	// LqArrival is the mean queue length seen by arriving customers.
	LqArrival float64 `json:"lq_arrival"`
	// Lq is total waiting time over the makespan, the time-average queue length.
	Lq        float64 `json:"lq"`
	TotalWait float64 `json:"total_wait"`
	MeanWait  float64 `json:"mean_wait"`
	Makespan  float64 `json:"makespan"`
	// Utilization is busy time over the makespan measured from time zero.
	Utilization float64 `json:"utilization"`
}

func Summarize(cs []Customer) (Summary, error) {
	if len(cs) == 0 {
		return Summary{}, ErrEmpty
	}

	queue := make([]float64, len(cs))
	waits := make([]float64, len(cs))
	busy := make([]float64, len(cs))
	for i, c := range cs {
		queue[i] = float64(c.InQueue)
		waits[i] = c.Wait
		busy[i] = c.Service
	}

	s := Summary{
		LqArrival: stat.Mean(queue, nil),
		TotalWait: floats.Sum(waits),
		MeanWait:  stat.Mean(waits, nil),
		Makespan:  cs[len(cs)-1].Exit,
	}
	if s.Makespan > 0 {
		s.Lq = s.TotalWait / s.Makespan
		s.Utilization = floats.Sum(busy) / s.Makespan
	}
	return s, nil
}

// Round4 rounds to four decimal places for reporting.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Scaling is the M/M/1 metrics when both rates are multiplied by K.
type Scaling struct {
	K              int     `json:"k"`
	Utilization    float64 `json:"utilization"`
	Throughput     float64 `json:"throughput"`
	MeanInSystem   float64 `json:"mean_in_system"`
	MeanTimeSystem float64 `json:"mean_time_in_system"`
}

// MM1Scaling evaluates the M/M/1 queue with arrival rate k*lambda and
// service rate k*mu for each k.
func MM1Scaling(lambda, mu float64, ks []int) ([]Scaling, error) {
	if lambda <= 0 || mu <= 0 {
		return nil, fmt.Errorf("queueing: rates must be positive (lambda=%v, mu=%v)", lambda, mu)
	}
	rho := lambda / mu
	if rho >= 1 {
		return nil, fmt.Errorf("%w: rho=%v", ErrUnstable, rho)
	}

	out := make([]Scaling, 0, len(ks))
	for _, k := range ks {
		if k <= 0 {
			return nil, fmt.Errorf("queueing: scale factor must be positive, got %d", k)
		}
		kf := float64(k)
		out = append(out, Scaling{
			K:              k,
			Utilization:    rho,
			Throughput:     kf * lambda,
			MeanInSystem:   rho / (1 - rho),
			MeanTimeSystem: 1 / (kf * (mu - lambda)),
		})
	}
	return out, nil
}

// Sample data from a fifteen-customer observation.
var (
	SampleArrivals = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	SampleServices = []float64{2.22, 1.76, 2.13, 0.14, 0.76, 0.70, 0.47, 0.22, 0.18, 2.41, 0.41, 0.46, 1.37, 0.27, 0.27}
)
