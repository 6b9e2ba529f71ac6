package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxfetch/muxfetch/internal/fetch"
	"github.com/muxfetch/muxfetch/internal/merge"
)

var progressLinePattern = regexp.MustCompile(`^(Video|Audio): \[[=> ]+\] (\d+\.\d{2})% at .+/s ETA: .+$`)

func testBlob(n int, seed byte) []byte {
	blob := make([]byte, n)
	for i := range blob {
		blob[i] = byte(i)*7 + seed
	}
	return blob
}

func blobServer(t *testing.T, blob []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "stream.bin", time.Time{}, bytes.NewReader(blob))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCoordinatorFetchesBothStreams(t *testing.T) {
	videoBlob := testBlob(512<<10, 3)
	audioBlob := testBlob(128<<10, 11)
	videoSrv := blobServer(t, videoBlob)
	audioSrv := blobServer(t, audioBlob)

	dir := t.TempDir()
	videoOutput := filepath.Join(dir, "clip.mp4")
	audioOutput := filepath.Join(dir, "clip.m4a")

	var sink bytes.Buffer
	coordinator := NewCoordinator(PipelineConfig{
		VideoURL:         videoSrv.URL,
		AudioURL:         audioSrv.URL,
		VideoOutput:      videoOutput,
		AudioOutput:      audioOutput,
		Threads:          4,
		ProgressInterval: 10 * time.Millisecond,
		SkipMerge:        true,
		Out:              &sink,
	})
	_, err := coordinator.Run(context.Background())
	require.NoError(t, err)

	written, err := os.ReadFile(videoOutput)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(videoBlob, written))
	written, err = os.ReadFile(audioOutput)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(audioBlob, written))

	lastPercent := map[string]float64{}
	completions := map[string]int{}
	lines := strings.Split(strings.TrimRight(sink.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		match := progressLinePattern.FindStringSubmatch(line)
		require.NotNil(t, match, "unexpected progress line: %q", line)
		stream := match[1]
		percent, err := strconv.ParseFloat(match[2], 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, percent, lastPercent[stream], "percent must never decrease")
		lastPercent[stream] = percent
		if percent == 100.0 {
			completions[stream]++
		}
	}
	for _, stream := range []string{"Video", "Audio"} {
		assert.Equal(t, 100.0, lastPercent[stream], "%s must finish at 100.00", stream)
		assert.Equal(t, 1, completions[stream], "%s must report completion exactly once", stream)
	}
}

func TestCoordinatorAudioFailureSkipsMerge(t *testing.T) {
	videoBlob := testBlob(1<<10, 5)
	videoSrv := blobServer(t, videoBlob)

	// Probes clean, then refuses every ranged GET; the video stream finishes
	// long before the audio retries are exhausted.
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", fmt.Sprintf("%d", 64<<10))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer audioSrv.Close()

	dir := t.TempDir()
	videoOutput := filepath.Join(dir, "clip.mp4")
	audioOutput := filepath.Join(dir, "clip.m4a")

	var sink bytes.Buffer
	coordinator := NewCoordinator(PipelineConfig{
		VideoURL:         videoSrv.URL,
		AudioURL:         audioSrv.URL,
		VideoOutput:      videoOutput,
		AudioOutput:      audioOutput,
		Threads:          2,
		ProgressInterval: 10 * time.Millisecond,
		Out:              &sink,
	})
	_, err := coordinator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Audio stream failed")

	// The completed video file survives; no merged file is ever produced.
	written, readErr := os.ReadFile(videoOutput)
	require.NoError(t, readErr)
	assert.True(t, bytes.Equal(videoBlob, written))
	_, statErr := os.Stat(merge.MergedPath(videoOutput))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCoordinatorReportsRootCauseWhenSiblingCancelled(t *testing.T) {
	// Video probes fine but its ranged GETs stall until cancelled, so its
	// workers are still in flight when the audio probe fails. The run must
	// name the audio failure, not the cancellation it caused on the video.
	videoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", fmt.Sprintf("%d", 64<<10))
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	}))
	defer videoSrv.Close()

	audioSrv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer audioSrv.Close()

	dir := t.TempDir()
	var sink bytes.Buffer
	coordinator := NewCoordinator(PipelineConfig{
		VideoURL:         videoSrv.URL,
		AudioURL:         audioSrv.URL,
		VideoOutput:      filepath.Join(dir, "clip.mp4"),
		AudioOutput:      filepath.Join(dir, "clip.m4a"),
		Threads:          2,
		ProgressInterval: 10 * time.Millisecond,
		Out:              &sink,
	})
	_, err := coordinator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Audio stream failed")
	var probeErr *fetch.ProbeError
	assert.True(t, errors.As(err, &probeErr))
}

func TestCoordinatorDefaultsThreads(t *testing.T) {
	coordinator := NewCoordinator(PipelineConfig{Threads: 0})
	assert.Equal(t, 32, coordinator.cfg.Threads)
}
