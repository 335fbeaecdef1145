package sorter

// Stats describes one run. Counters are reset when a run starts.
type Stats struct {
	LinesRead    uint64 `json:"lines_read"`
	LinesWritten uint64 `json:"lines_written"`
	Chunks       int    `json:"chunks"`
	BytesWritten int64  `json:"bytes_written"`
}

// LinesDeleted is the number of input lines that did not reach the output.
func (s Stats) LinesDeleted() uint64 {
	if s.LinesWritten > s.LinesRead {
		return 0
	}
	return s.LinesRead - s.LinesWritten
}
