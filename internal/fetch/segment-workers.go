package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/muxfetch/muxfetch/internal/utils"
)

const maxSegmentRetries = 5

// retryBaseDelay scales the linear backoff between attempts.
var retryBaseDelay = 500 * time.Millisecond

// fetchSegment drives one segment to Done or Failed. Each retry resumes the
// unfetched remainder; writes land at disjoint offsets via WriteAt so
// re-attempts are idempotent.
func (d *StreamDownloader) fetchSegment(ctx context.Context, destFile *os.File, seg *Segment) error {
	log := utils.GetLogger("fetch").With().Str("jobId", d.Job.ID).Int("segment", seg.Index).Logger()
	seg.setState(SegmentInFlight)
	var lastErr error
	for retry := 0; retry < maxSegmentRetries; retry++ {
		if retry > 0 {
			log.Debug().Int("attempt", retry+1).Int("maxRetries", maxSegmentRetries).Msg("Retrying segment")
			select {
			case <-time.After(time.Duration(retry) * retryBaseDelay): // Backoff
			case <-ctx.Done():
				seg.setState(SegmentFailed)
				return ctx.Err()
			}
		}
		err := d.fetchRange(ctx, destFile, seg)
		if err == nil {
			seg.setState(SegmentDone)
			log.Debug().Int64("bytes", seg.Fetched()).Msg("Segment completed")
			return nil
		}
		if ctx.Err() != nil {
			seg.setState(SegmentFailed)
			return ctx.Err()
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", retry+1).Msg("Error fetching segment")
	}
	seg.setState(SegmentFailed)
	return &FetchError{Segment: seg.Index, Err: lastErr}
}

// fetchRange performs one attempt: a ranged GET for the segment's unfetched
// remainder, streamed into the pre-sized destination file at the segment
// offset. Without server range support the full body is re-read and the
// already-fetched prefix discarded, keeping the counter monotonic.
func (d *StreamDownloader) fetchRange(ctx context.Context, destFile *os.File, seg *Segment) error {
	fetched := seg.Fetched()
	if fetched >= seg.Length() {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", d.Job.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Connection", "keep-alive")
	var discard int64
	if d.Job.SupportsRanges {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", seg.Start+fetched, seg.End))
	} else {
		discard = fetched
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if d.Job.SupportsRanges {
		if resp.StatusCode != http.StatusPartialContent {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	} else if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	offset := seg.Start + fetched
	buffer := make([]byte, utils.DefaultBufferSize)
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			data := buffer[:bytesRead]
			if discard > 0 {
				skip := min(discard, int64(len(data)))
				data = data[skip:]
				discard -= skip
			}
			if len(data) > 0 {
				if d.limiter != nil {
					if err := d.limiter.WaitN(ctx, len(data)); err != nil {
						return err
					}
				}
				if _, writeErr := destFile.WriteAt(data, offset); writeErr != nil {
					return writeErr
				}
				offset += int64(len(data))
				seg.addFetched(int64(len(data)))
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return readErr
		}
	}
	if got := seg.Fetched(); got != seg.Length() {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", seg.Length(), got)
	}
	return nil
}
