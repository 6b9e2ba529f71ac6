package cmd

import (
	"context"
	"errors"
	"fmt"
	u "net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muxfetch/muxfetch/internal"
	"github.com/muxfetch/muxfetch/internal/fetch"
	"github.com/muxfetch/muxfetch/internal/merge"
	"github.com/muxfetch/muxfetch/internal/output"
	"github.com/muxfetch/muxfetch/internal/utils"
)

var (
	videoURL      string
	audioURL      string
	videoOutput   string
	audioOutput   string
	jobFilePath   string
	threads       int
	rateLimit     int64
	noMerge       bool
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	debug         bool
)

var MuxfetchVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "muxfetch",
	Short:   "Muxfetch concurrently fetches a video and an audio stream and remuxes them into one file",
	Version: MuxfetchVersion,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		if jobFilePath != "" {
			jobFile, err := utils.ReadJobFile(jobFilePath)
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to read job file: %v", err))
				os.Exit(1)
			}
			if videoURL == "" {
				videoURL = jobFile.Video.URL
			}
			if audioURL == "" {
				audioURL = jobFile.Audio.URL
			}
			if videoOutput == "" {
				videoOutput = jobFile.Video.OutputPath
			}
			if audioOutput == "" {
				audioOutput = jobFile.Audio.OutputPath
			}
			if !cmd.Flags().Changed("threads") && jobFile.Threads > 0 {
				threads = jobFile.Threads
			}
		}
		for flag, value := range map[string]string{
			"video-url":    videoURL,
			"audio-url":    audioURL,
			"video-output": videoOutput,
			"audio-output": audioOutput,
		} {
			if value == "" {
				output.PrintError(fmt.Sprintf("Missing required value: --%s", flag))
				os.Exit(1)
			}
		}
		for _, link := range []string{videoURL, audioURL} {
			if _, err := u.Parse(link); err != nil {
				output.PrintError("Invalid URL format")
				os.Exit(1)
			}
		}
		if threads < 1 {
			output.PrintError("Thread count must be a positive integer")
			os.Exit(1)
		}
		if userAgent == "randomize" {
			userAgent = utils.GetRandomUserAgent()
		}
		// Check if proxy URL contains auth
		parsedProxy, err := u.Parse(proxyURL)
		if err == nil && parsedProxy.User != nil && proxyUsername == "" {
			proxyUsername = parsedProxy.User.Username()
			if password, set := parsedProxy.User.Password(); set {
				proxyPassword = password
			}
			parsedProxy.User = nil
			proxyURL = parsedProxy.String()
		}

		output.PrintInfo(fmt.Sprintf("Fetching video and audio streams with %d connections each", threads))

		coordinator := internal.NewCoordinator(internal.PipelineConfig{
			VideoURL:    videoURL,
			AudioURL:    audioURL,
			VideoOutput: videoOutput,
			AudioOutput: audioOutput,
			Threads:     threads,
			RateLimit:   rateLimit,
			SkipMerge:   noMerge,
			HTTPClientConfig: utils.HTTPClientConfig{
				Timeout:       timeout,
				KATimeout:     kaTimeout,
				ProxyURL:      proxyURL,
				ProxyUsername: proxyUsername,
				ProxyPassword: proxyPassword,
				UserAgent:     userAgent,
				Headers:       utils.ParseHeaderArgs(headers),
			},
		})
		result, err := coordinator.Run(context.Background())
		if err != nil {
			output.PrintError(failureLine(err))
			os.Exit(1)
		}
		if noMerge {
			output.PrintWarning("Merge skipped (--no-merge); stream files left in place")
			return
		}
		output.PrintSuccess(fmt.Sprintf("Download complete: %s", result.OutputPath))
		output.PrintDetail(fmt.Sprintf("Stream files kept: %s, %s", videoOutput, audioOutput))
	},
}

// failureLine is the final non-progress line describing the failure kind.
func failureLine(err error) string {
	var probeErr *fetch.ProbeError
	var fetchErr *fetch.FetchError
	var mergeErr *merge.MergeError
	switch {
	case errors.As(err, &probeErr):
		return fmt.Sprintf("Probe failed: %v", err)
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Fetch failed: %v", err)
	case errors.As(err, &mergeErr):
		return fmt.Sprintf("Merge failed: %v", err)
	default:
		return fmt.Sprintf("Download failed: %v", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&videoURL, "video-url", "", "Direct URL of the video-only stream")
	rootCmd.Flags().StringVar(&audioURL, "audio-url", "", "Direct URL of the audio-only stream")
	rootCmd.Flags().StringVar(&videoOutput, "video-output", "", "Output path for the video stream (merged file name derives from it)")
	rootCmd.Flags().StringVar(&audioOutput, "audio-output", "", "Output path for the audio stream")
	rootCmd.Flags().StringVarP(&jobFilePath, "job-file", "j", "", "Path to YAML file carrying the URLs and output paths")
	rootCmd.Flags().IntVarP(&threads, "threads", "n", 32, "Number of connections per stream (above 5 enables high-thread-mode)")
	rootCmd.Flags().Int64Var(&rateLimit, "limit", 0, "Per-stream rate limit in bytes/sec (0 = unlimited)")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	rootCmd.Flags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent ('randomize' picks a browser UA)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.Flags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.Flags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")

	// flags without shorthand
	rootCmd.Flags().BoolVar(&noMerge, "no-merge", false, "Fetch both streams but skip the remux step")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
