package fetch

import "fmt"

// ProbeError is fatal for the stream: the URL could not be probed for a
// usable length. Range-unsupported servers are not a probe failure.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed for %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FetchError marks a segment whose retry budget is exhausted. It escalates
// through the stream downloader to the coordinator; there is no
// partial-success delivery of a stream.
type FetchError struct {
	Segment int
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("segment %d failed permanently: %v", e.Segment, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
