package fetch

import "sync/atomic"

type SegmentState int32

const (
	SegmentPending SegmentState = iota
	SegmentInFlight
	SegmentDone
	SegmentFailed
)

// Segment is one contiguous byte range of a stream, owned exclusively by the
// worker assigned to it. The fetched counter is read concurrently by the
// progress reporter, hence atomic.
type Segment struct {
	Index int
	Start int64
	End   int64 // inclusive

	fetched atomic.Int64
	state   atomic.Int32
}

func (s *Segment) Length() int64  { return s.End - s.Start + 1 }
func (s *Segment) Fetched() int64 { return s.fetched.Load() }

func (s *Segment) addFetched(n int64) { s.fetched.Add(n) }

func (s *Segment) State() SegmentState     { return SegmentState(s.state.Load()) }
func (s *Segment) setState(v SegmentState) { s.state.Store(int32(v)) }

// SplitSegments partitions [0, totalBytes) into min(threads, totalBytes)
// contiguous non-overlapping ranges. Division is as even as possible; the
// last segment absorbs the remainder so the lengths sum to totalBytes
// exactly. Never produces a zero-length segment.
func SplitSegments(totalBytes int64, threads int) []*Segment {
	if totalBytes <= 0 || threads < 1 {
		return nil
	}
	count := threads
	if totalBytes < int64(count) {
		count = int(totalBytes)
	}
	segmentSize := totalBytes / int64(count)
	segments := make([]*Segment, 0, count)
	var currentPosition int64 = 0
	for i := 0; i < count; i++ {
		startByte := currentPosition
		endByte := startByte + segmentSize - 1
		if i == count-1 {
			endByte = totalBytes - 1
		}
		segments = append(segments, &Segment{
			Index: i,
			Start: startByte,
			End:   endByte,
		})
		currentPosition = endByte + 1
	}
	return segments
}

func totalFetched(segments []*Segment) int64 {
	var total int64
	for _, seg := range segments {
		total += seg.Fetched()
	}
	return total
}
