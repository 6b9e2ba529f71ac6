package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		bytes    uint64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1 << 20, "1.00 MB"},
		{5 << 30, "5.00 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, FormatBytes(tc.bytes))
	}
}

func TestFormatETA(t *testing.T) {
	cases := []struct {
		seconds  float64
		expected string
	}{
		{0, "0s"},
		{45, "45s"},
		{200, "3m 20s"},
		{3900, "1h 5m"},
		{-1, "Calculating..."},
		{math.NaN(), "Calculating..."},
		{math.Inf(1), "Calculating..."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, FormatETA(tc.seconds))
	}
}

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs([]string{
		"Authorization: Basic dXNlcjpwYXNz",
		"X-Custom:value",
		"malformed-header",
	})
	assert.Equal(t, map[string]string{
		"Authorization": "Basic dXNlcjpwYXNz",
		"X-Custom":      "value",
	}, headers)
}

func TestReadJobFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
video:
  link: https://example.com/video.mp4
  op: clip.mp4
audio:
  link: https://example.com/audio.m4a
  op: clip.m4a
threads: 8
`), 0644))

	jobFile, err := ReadJobFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/video.mp4", jobFile.Video.URL)
	assert.Equal(t, "clip.mp4", jobFile.Video.OutputPath)
	assert.Equal(t, "https://example.com/audio.m4a", jobFile.Audio.URL)
	assert.Equal(t, "clip.m4a", jobFile.Audio.OutputPath)
	assert.Equal(t, 8, jobFile.Threads)
}

func TestReadJobFileRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
video:
  link: https://example.com/video.mp4
`), 0644))

	_, err := ReadJobFile(path)
	assert.Error(t, err)
}

func TestReadJobFileMissing(t *testing.T) {
	_, err := ReadJobFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
