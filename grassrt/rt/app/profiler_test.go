package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerScopesKeepOrder(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("Grid Rebuild")
	p.EndScope("Grid Rebuild")
	p.BeginScope("Cell Culling")
	p.EndScope("Cell Culling")
	p.BeginScope("Grid Rebuild")
	p.EndScope("Grid Rebuild")

	assert.Equal(t, []string{"Grid Rebuild", "Cell Culling"}, p.Order)
	assert.Contains(t, p.Smoothed, "Cell Culling")
}

func TestProfilerEndWithoutBegin(t *testing.T) {
	p := NewProfiler()
	p.EndScope("missing")
	assert.Empty(t, p.Scopes)
}

func TestProfilerSmoothing(t *testing.T) {
	p := NewProfiler()
	p.Smoothing = 0.5
	p.Smoothed["x"] = 10 * time.Millisecond
	p.StartTimes["x"] = time.Now()
	p.EndScope("x")

	// Halfway between 10ms and a near-zero sample.
	assert.InDelta(t, float64(5*time.Millisecond), float64(p.Smoothed["x"]), float64(time.Millisecond))
}

func TestProfilerStatsString(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("Batching")
	p.EndScope("Batching")
	p.SetCount("dispatches", 10)
	p.SetCount("cells.visible", 50)
	p.Reset()

	s := p.GetStatsString()
	assert.Contains(t, s, "Batching")
	assert.Contains(t, s, "dispatches     : 10")
	assert.Less(t, strings.Index(s, "cells.visible"), strings.Index(s, "dispatches"))
	assert.Equal(t, 1, p.Frames)
	assert.Zero(t, p.Scopes["Batching"])
}
