package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muxfetch/muxfetch/internal/fetch"
	"github.com/muxfetch/muxfetch/internal/merge"
	"github.com/muxfetch/muxfetch/internal/utils"
)

// PipelineConfig carries the full invocation contract: two stream URLs, two
// output paths, and the per-stream worker count. It replaces any notion of
// config files or source patching; the parent passes values directly.
type PipelineConfig struct {
	VideoURL    string
	AudioURL    string
	VideoOutput string
	AudioOutput string
	Threads     int
	RateLimit   int64

	HTTPClientConfig utils.HTTPClientConfig
	ProgressInterval time.Duration
	SkipMerge        bool
	Out              io.Writer // progress sink, defaults to stdout
}

// Coordinator runs the video and audio stream downloads concurrently with
// independent worker pools, multiplexes their progress onto one sink, and on
// joint success remuxes the two files. A failure on either stream abandons
// the sibling's in-flight work; no merge is attempted after any failure.
type Coordinator struct {
	cfg      PipelineConfig
	reporter *progressReporter
}

func NewCoordinator(cfg PipelineConfig) *Coordinator {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Threads < 1 {
		cfg.Threads = 32
	}
	return &Coordinator{
		cfg:      cfg,
		reporter: newProgressReporter(cfg.Out),
	}
}

func (c *Coordinator) Run(ctx context.Context) (utils.MergeResult, error) {
	log := utils.GetLogger("coordinator")
	jobs := []*utils.StreamJob{
		{
			ID:               uuid.New().String(),
			Kind:             utils.StreamVideo,
			URL:              c.cfg.VideoURL,
			OutputPath:       c.cfg.VideoOutput,
			Threads:          c.cfg.Threads,
			RateLimit:        c.cfg.RateLimit,
			HTTPClientConfig: c.cfg.HTTPClientConfig,
		},
		{
			ID:               uuid.New().String(),
			Kind:             utils.StreamAudio,
			URL:              c.cfg.AudioURL,
			OutputPath:       c.cfg.AudioOutput,
			Threads:          c.cfg.Threads,
			RateLimit:        c.cfg.RateLimit,
			HTTPClientConfig: c.cfg.HTTPClientConfig,
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		downloader := fetch.NewStreamDownloader(job)
		downloader.ProgressFunc = c.reporter.Report
		if c.cfg.ProgressInterval > 0 {
			downloader.Interval = c.cfg.ProgressInterval
		}
		wg.Add(1)
		go func(i int, downloader *fetch.StreamDownloader) {
			defer wg.Done()
			if err := downloader.Run(ctx); err != nil {
				errs[i] = err
				cancel() // abandon the sibling stream, a half-finished merge is useless
			}
		}(i, downloader)
	}
	wg.Wait()

	// The sibling of a failed stream reports context.Canceled; surface the
	// root cause, not the cancellation it triggered.
	failedIdx := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if failedIdx == -1 || (errors.Is(errs[failedIdx], context.Canceled) && !errors.Is(err, context.Canceled)) {
			failedIdx = i
		}
	}
	if failedIdx != -1 {
		return utils.MergeResult{}, fmt.Errorf("%s stream failed: %w", jobs[failedIdx].Kind, errs[failedIdx])
	}
	log.Info().Str("video", c.cfg.VideoOutput).Str("audio", c.cfg.AudioOutput).Msg("Both streams fetched")

	if c.cfg.SkipMerge {
		return utils.MergeResult{}, nil
	}
	return merge.Mux(c.cfg.VideoOutput, c.cfg.AudioOutput)
}
