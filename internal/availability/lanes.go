package availability

import (
	"fmt"
	"sort"

	"github.com/example/lecture-room-booking/internal/interval"
)

// Window is the visible time-of-day span of a grid, in minutes after midnight.
type Window struct {
	Start int
	End   int
}

// DefaultWindow covers 06:00 to 20:00.
func DefaultWindow() Window {
	return Window{Start: 6 * 60, End: 20 * 60}
}

// ParseWindow builds a window from strict "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	r, err := interval.ParseRange(start, end)
	if err != nil {
		return Window{}, err
	}
	if !r.Ordered() {
		return Window{}, fmt.Errorf("availability: window start %s must be before end %s", start, end)
	}
	return Window{Start: r.Start, End: r.End}, nil
}

// Minutes returns the window length.
func (w Window) Minutes() int {
	return w.End - w.Start
}

// clip maps [start, end) into window offsets. ok is false when nothing of
// the range is visible.
func (w Window) clip(start, end int) (offset, duration int, ok bool) {
	s := max(start, w.Start)
	e := min(end, w.End)
	if e <= s {
		return 0, 0, false
	}
	return s - w.Start, e - s, true
}

// AssignLanes stacks overlapping blocks into lanes. Blocks are ordered by
// start offset, ties keeping input order, and each goes into the first lane
// whose last block ends at or before its start. The sorted blocks and the
// lane count are returned; the input slice is not modified.
func AssignLanes(blocks []Block) ([]Block, int) {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinute < out[j].StartMinute
	})

	var laneEnds []int
	for i := range out {
		start := out[i].StartMinute
		end := start + out[i].DurationMinutes
		placed := false
		for lane, last := range laneEnds {
			if last <= start {
				laneEnds[lane] = end
				out[i].Lane = lane
				placed = true
				break
			}
		}
		if !placed {
			out[i].Lane = len(laneEnds)
			laneEnds = append(laneEnds, end)
		}
	}
	return out, len(laneEnds)
}
