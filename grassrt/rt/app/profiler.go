package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Profiler collects CPU scope timings and per-frame counters for the
// grass pipeline. Timings are smoothed across frames.
type Profiler struct {
	Scopes     map[string]time.Duration
	Smoothed   map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
	Frames     int

	// Weight of the newest sample in Smoothed, in (0, 1].
	Smoothing float64
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		Smoothed:   make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
		Smoothing:  0.1,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.StartTimes[name]
	if !ok {
		return
	}
	d := time.Since(start)
	p.Scopes[name] = d

	prev, seen := p.Smoothed[name]
	if !seen || p.Smoothing >= 1 || p.Smoothing <= 0 {
		p.Smoothed[name] = d
		return
	}
	p.Smoothed[name] = prev + time.Duration(p.Smoothing*float64(d-prev))
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// Reset ends a frame: last-frame timings are cleared, smoothed ones kept.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
	p.Frames++
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU, smoothed):\n")
	for _, name := range p.Order {
		ms := float64(p.Smoothed[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.3f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
