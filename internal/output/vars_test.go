package output

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	require.NoError(t, w.Close())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestPrintHelpers(t *testing.T) {
	cases := []struct {
		print func(string)
		text  string
	}{
		{PrintSuccess, "all done"},
		{PrintError, "something broke"},
		{PrintWarning, "heads up"},
		{PrintInfo, "for your information"},
		{PrintDetail, "the fine print"},
	}
	for _, tc := range cases {
		line := captureStdout(t, func() { tc.print(tc.text) })
		assert.Contains(t, line, tc.text)
	}
}
