package core

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridWithCounts builds a single-row grid directly from per-cell counts.
func gridWithCounts(counts ...int) *Grid {
	g := &Grid{CountX: len(counts), CountZ: 1, Cells: make([]Cell, len(counts))}
	offset := 0
	for i, c := range counts {
		g.Cells[i] = Cell{Offset: offset, Count: c}
		offset += c
	}
	return g
}

func TestBatchDispatchesMergesRuns(t *testing.T) {
	g := gridWithCounts(5, 5, 5, 5, 5, 5, 5, 5, 5)

	ranges := BatchDispatches([]int{2, 3, 4, 7, 8}, g, nil)

	assert.Equal(t, []DispatchRange{
		{StartOffset: 10, JobLength: 15},
		{StartOffset: 35, JobLength: 10},
	}, ranges)
}

func TestBatchDispatchesCases(t *testing.T) {
	g := gridWithCounts(3, 0, 7, 1, 0, 0, 4, 2)

	tests := []struct {
		name     string
		visible  []int
		expected []DispatchRange
	}{
		{"none", nil, []DispatchRange{}},
		{"single", []int{2}, []DispatchRange{{3, 7}}},
		{"all", []int{0, 1, 2, 3, 4, 5, 6, 7}, []DispatchRange{{0, 17}}},
		{"gap", []int{0, 2}, []DispatchRange{{0, 3}, {3, 7}}},
		{"run through empty cell", []int{0, 1, 2}, []DispatchRange{{0, 10}}},
		{"empty run dropped", []int{4, 5}, []DispatchRange{}},
		{"last cell", []int{7}, []DispatchRange{{15, 2}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BatchDispatches(tc.visible, g, nil)
			if len(tc.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestBatchDispatchesProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	counts := make([]int, 200)
	for i := range counts {
		counts[i] = rng.Intn(20)
	}
	g := gridWithCounts(counts...)

	var out []DispatchRange
	for iter := 0; iter < 100; iter++ {
		var visible []int
		for i := range counts {
			if rng.Intn(3) == 0 {
				visible = append(visible, i)
			}
		}

		out = BatchDispatches(visible, g, out)

		want := 0
		for _, idx := range visible {
			want += g.Cells[idx].Count
		}
		total := 0
		for _, r := range out {
			require.Positive(t, r.JobLength)
			total += r.JobLength
		}
		assert.Equal(t, want, total, "element count")

		sorted := append([]DispatchRange(nil), out...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartOffset < sorted[j].StartOffset })
		for i := 1; i < len(sorted); i++ {
			assert.LessOrEqual(t, sorted[i-1].End(), sorted[i].StartOffset, "ranges overlap")
		}

		// Never more ranges than runs of consecutive indices.
		runs := 0
		for i, idx := range visible {
			if i == 0 || idx != visible[i-1]+1 {
				runs++
			}
		}
		assert.LessOrEqual(t, len(out), runs)
		assert.LessOrEqual(t, len(out), len(SplitDispatches(visible, g, nil)))
	}
}

func TestSplitDispatches(t *testing.T) {
	g := gridWithCounts(5, 0, 5, 5)
	assert.Equal(t, []DispatchRange{{0, 5}, {5, 5}, {10, 5}}, SplitDispatches([]int{0, 1, 2, 3}, g, nil))
}

func TestDispatchRangeWorkgroups(t *testing.T) {
	assert.Equal(t, uint32(0), DispatchRange{JobLength: 0}.Workgroups(CullWorkgroupSize))
	assert.Equal(t, uint32(1), DispatchRange{JobLength: 1}.Workgroups(CullWorkgroupSize))
	assert.Equal(t, uint32(1), DispatchRange{JobLength: 64}.Workgroups(CullWorkgroupSize))
	assert.Equal(t, uint32(2), DispatchRange{JobLength: 65}.Workgroups(CullWorkgroupSize))
	assert.Equal(t, 30, DispatchRange{StartOffset: 10, JobLength: 20}.End())
}
