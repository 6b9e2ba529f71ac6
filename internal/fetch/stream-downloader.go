package fetch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/muxfetch/muxfetch/internal/utils"
)

const DefaultProgressInterval = 300 * time.Millisecond

// StreamDownloader owns the full lifecycle of one stream: probe, preallocate,
// segment, dispatch workers, report progress. ProgressFunc receives one
// snapshot per reporting tick plus a single final 100% snapshot; it is called
// from the downloader's goroutines and must be safe for concurrent use when
// two downloaders share it.
type StreamDownloader struct {
	Job          *utils.StreamJob
	Interval     time.Duration
	ProgressFunc func(utils.ProgressSnapshot)

	client  *utils.MuxHTTPClient
	limiter *rate.Limiter
}

func NewStreamDownloader(job *utils.StreamJob) *StreamDownloader {
	job.HTTPClientConfig.HighThreadMode = job.Threads > 5
	d := &StreamDownloader{
		Job:      job,
		Interval: DefaultProgressInterval,
		client:   utils.NewMuxHTTPClient(job.HTTPClientConfig),
	}
	if job.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(job.RateLimit), utils.DefaultBufferSize)
	}
	return d
}

// Run returns nil only if every segment reached Done; otherwise it surfaces
// the first failure. A permanent segment failure cancels the sibling workers.
func (d *StreamDownloader) Run(ctx context.Context) error {
	log := utils.GetLogger("stream").With().Str("jobId", d.Job.ID).Str("kind", string(d.Job.Kind)).Logger()
	startTime := time.Now()

	totalBytes, supportsRanges, err := Probe(ctx, d.Job.URL, d.client)
	if err != nil {
		return err
	}
	d.Job.TotalBytes = totalBytes
	d.Job.SupportsRanges = supportsRanges

	threads := d.Job.Threads
	if !supportsRanges {
		// Multi-threading is an optimization, not a correctness requirement.
		threads = 1
		log.Debug().Msg("Range requests unsupported, falling back to sequential fetch")
	}
	segments := SplitSegments(totalBytes, threads)
	log.Debug().Int64("totalBytes", totalBytes).Int("segments", len(segments)).Msg("Starting download")

	destFile, err := os.OpenFile(d.Job.OutputPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer destFile.Close()
	// Pre-size the file so workers write at disjoint offsets with no size
	// bookkeeping between them.
	if err := destFile.Truncate(totalBytes); err != nil {
		return fmt.Errorf("error pre-allocating output file: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(segments))
	var wg sync.WaitGroup
	for _, seg := range segments {
		wg.Add(1)
		go func(seg *Segment) {
			defer wg.Done()
			if err := d.fetchSegment(ctx, destFile, seg); err != nil {
				errCh <- err
				cancel() // stop sibling workers, no partial delivery
			}
		}(seg)
	}

	stop := make(chan struct{})
	var reporterWG sync.WaitGroup
	reporterWG.Add(1)
	go func() {
		defer reporterWG.Done()
		d.reportLoop(segments, stop)
	}()

	wg.Wait()
	close(stop)
	reporterWG.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("error syncing output file: %w", err)
	}

	// All segments Done: emit the final 100% snapshot exactly once, with the
	// run-average speed.
	elapsed := time.Since(startTime).Seconds()
	var avgSpeed float64
	if elapsed > 0 {
		avgSpeed = float64(totalBytes) / elapsed
	}
	d.emit(utils.ProgressSnapshot{
		Kind:           d.Job.Kind,
		Percent:        100.0,
		BytesPerSecond: avgSpeed,
		ETA:            utils.FormatETA(0),
	})
	log.Info().Int64("totalBytes", totalBytes).Str("file", d.Job.OutputPath).Msg("Stream download completed")
	return nil
}

// reportLoop recomputes a snapshot from the segment counters on a fixed
// cadence. Speed is the delta of fetched bytes over the delta of wall-clock
// time between consecutive ticks, so it reflects current throughput.
func (d *StreamDownloader) reportLoop(segments []*Segment, stop <-chan struct{}) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastBytes int64
	var lastTime time.Time
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			fetched := totalFetched(segments)
			if fetched >= d.Job.TotalBytes {
				// 100% is reported by the final snapshot, after every
				// segment has actually reached Done.
				continue
			}
			var speed float64
			if !lastTime.IsZero() {
				if dt := now.Sub(lastTime).Seconds(); dt > 0 {
					speed = float64(fetched-lastBytes) / dt
				}
			}
			lastTime = now
			lastBytes = fetched

			eta := "Calculating..."
			if speed > 0 {
				eta = utils.FormatETA(float64(d.Job.TotalBytes-fetched) / speed)
			}
			percent := float64(fetched) / float64(d.Job.TotalBytes) * 100
			if percent > 99.99 {
				// Keep ticks below 100 even after display rounding; the
				// final snapshot is the only 100% report.
				percent = 99.99
			}
			d.emit(utils.ProgressSnapshot{
				Kind:           d.Job.Kind,
				Percent:        percent,
				BytesPerSecond: speed,
				ETA:            eta,
			})
		}
	}
}

func (d *StreamDownloader) emit(snapshot utils.ProgressSnapshot) {
	if d.ProgressFunc != nil {
		d.ProgressFunc(snapshot)
	}
}
