package merge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/muxfetch/muxfetch/internal/utils"
)

// MergeError is fatal for the run. The two source files are left on disk for
// the caller to inspect or discard.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string { return fmt.Sprintf("merge failed: %v", e.Err) }
func (e *MergeError) Unwrap() error { return e.Err }

// MergedPath derives the remux output name from the video output's base name:
// clip.mp4 -> clip_video.mp4.
func MergedPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_video" + ext
}

// Mux remuxes the completed video and audio files into one container without
// re-encoding. Inputs are never deleted; cleanup is the caller's business.
func Mux(videoPath, audioPath string) (utils.MergeResult, error) {
	log := utils.GetLogger("merge")
	for _, input := range []string{videoPath, audioPath} {
		info, err := os.Stat(input)
		if err != nil {
			return utils.MergeResult{}, &MergeError{Err: fmt.Errorf("input file missing: %s", input)}
		}
		if info.Size() == 0 {
			return utils.MergeResult{}, &MergeError{Err: fmt.Errorf("input file is empty: %s", input)}
		}
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return utils.MergeResult{}, &MergeError{Err: fmt.Errorf("ffmpeg not found in PATH: %w", err)}
	}

	outputPath := MergedPath(videoPath)
	cmd := exec.Command(
		ffmpegPath,
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	)
	log.Debug().Msgf("Executing ffmpeg command: %s", cmd.String())
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Msgf("FFmpeg output:\n%s", string(output))
		return utils.MergeResult{}, &MergeError{Err: fmt.Errorf("ffmpeg error: %v", err)}
	}
	log.Info().Str("file", outputPath).Msg("Remux completed")
	return utils.MergeResult{OutputPath: outputPath, Success: true}, nil
}
