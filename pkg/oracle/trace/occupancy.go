package trace

// OccupancyStats is the time-integrated queue occupancy of a run: the sum
// of the in-flight counter sampled after every SUBMIT/COMPLETE event, and
// the number of samples taken.
type OccupancyStats struct {
	Area  int
	Steps int
}

// Mean returns Area/Steps, or 0 when no occupancy events occurred.
func (o OccupancyStats) Mean() float64 {
	if o.Steps == 0 {
		return 0
	}
	return float64(o.Area) / float64(o.Steps)
}

// Occupancy runs the second, independent scan over the raw lines with a
// plain in-flight counter. Fence-type SUBMITs are excluded so "pending"
// reflects in-flight I/O commands; COMPLETEs decrement unless the id is
// known to be a fence command (ids never submitted decrement too, matching
// the reference tooling), flooring at zero. The completed state supplies
// the cmd-type map; nothing else from it is reused.
func Occupancy(lines []string, s *RunState) OccupancyStats {
	var st OccupancyStats
	pending := 0
	for _, line := range lines {
		ev := DecodeLine(line)
		switch ev.Kind {
		case KindSubmit:
			if ev.CmdType == CmdTypeFence {
				continue
			}
			pending++
		case KindComplete:
			if s.CmdType[ev.CmdID] == CmdTypeFence {
				continue
			}
			if pending > 0 {
				pending--
			}
		default:
			continue
		}
		st.Area += pending
		st.Steps++
	}
	return st
}
