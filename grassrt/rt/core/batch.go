package core

// CullWorkgroupSize must match @workgroup_size in cull.wgsl.
const CullWorkgroupSize = 64

// DispatchRange is a contiguous slice of Grid.Sorted culled by one dispatch.
type DispatchRange struct {
	StartOffset int
	JobLength   int
}

// Workgroups returns the number of workgroups needed to cover the range.
func (r DispatchRange) Workgroups(size int) uint32 {
	if r.JobLength <= 0 || size <= 0 {
		return 0
	}
	return uint32((r.JobLength + size - 1) / size)
}

// End is one past the last instance index of the range.
func (r DispatchRange) End() int {
	return r.StartOffset + r.JobLength
}

// BatchDispatches converts ascending visible cell indices into dispatch
// ranges, folding each run of consecutive indices into one range. Because
// cells are laid out in index order in memory, such a run is one
// contiguous slice. Empty runs produce no range.
func BatchDispatches(visible []int, g *Grid, out []DispatchRange) []DispatchRange {
	out = out[:0]
	for i := 0; i < len(visible); i++ {
		cell := g.Cells[visible[i]]
		r := DispatchRange{StartOffset: cell.Offset, JobLength: cell.Count}

		for i+1 < len(visible) && visible[i+1] == visible[i]+1 {
			r.JobLength += g.Cells[visible[i+1]].Count
			i++
		}

		if r.JobLength > 0 {
			out = append(out, r)
		}
	}
	return out
}

// SplitDispatches emits one range per visible non-empty cell.
func SplitDispatches(visible []int, g *Grid, out []DispatchRange) []DispatchRange {
	out = out[:0]
	for _, idx := range visible {
		cell := g.Cells[idx]
		if cell.Count > 0 {
			out = append(out, DispatchRange{StartOffset: cell.Offset, JobLength: cell.Count})
		}
	}
	return out
}
