package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/muxfetch/muxfetch/internal/utils"
)

// Probe asks the server for the resource's total size and whether it honors
// byte-range requests. It tries HEAD first; servers that reject HEAD or omit
// a length get a one-byte ranged GET, whose Content-Range carries the total.
func Probe(ctx context.Context, link string, client *utils.MuxHTTPClient) (int64, bool, error) {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return 0, false, &ProbeError{URL: link, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return 0, false, &ProbeError{URL: link, Err: fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)}
	}

	size, supportsRanges, headErr := probeHead(ctx, link, client)
	if headErr == nil && size > 0 {
		return size, supportsRanges, nil
	}

	size, supportsRanges, rangeErr := probeRange(ctx, link, client)
	if rangeErr == nil && size > 0 {
		return size, supportsRanges, nil
	}
	if headErr != nil {
		return 0, false, &ProbeError{URL: link, Err: headErr}
	}
	return 0, false, &ProbeError{URL: link, Err: rangeErr}
}

func probeHead(ctx context.Context, link string, client *utils.MuxHTTPClient) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "HEAD", link, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, false, fmt.Errorf("server returned error: %d", resp.StatusCode)
	}
	supportsRanges := resp.Header.Get("Accept-Ranges") == "bytes"
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return 0, supportsRanges, errors.New("server didn't provide Content-Length header")
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return 0, supportsRanges, err
	}
	if size <= 0 {
		return 0, supportsRanges, errors.New("invalid file size reported by server")
	}
	return size, supportsRanges, nil
}

func probeRange(ctx context.Context, link string, client *utils.MuxHTTPClient) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Content-Range: bytes 0-0/<total>
		parts := strings.Split(resp.Header.Get("Content-Range"), "/")
		if len(parts) != 2 {
			return 0, false, errors.New("missing or malformed Content-Range header")
		}
		size, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || size <= 0 {
			return 0, false, errors.New("unusable total size in Content-Range header")
		}
		return size, true, nil
	case http.StatusOK:
		if resp.ContentLength > 0 {
			return resp.ContentLength, false, nil
		}
		return 0, false, errors.New("server didn't provide a usable length")
	default:
		return 0, false, fmt.Errorf("server returned error: %d", resp.StatusCode)
	}
}
