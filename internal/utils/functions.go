package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatETA renders a remaining-time estimate the way the progress protocol
// expects: "45s", "3m 20s", "1h 5m". Negative or non-finite input falls back
// to the literal the parent treats as unknown.
func FormatETA(seconds float64) string {
	if seconds < 0 || seconds != seconds || seconds > float64(1<<40) {
		return "Calculating..."
	}
	etaSeconds := int64(seconds)
	if etaSeconds < 60 {
		return fmt.Sprintf("%ds", etaSeconds)
	}
	if etaSeconds < 3600 {
		return fmt.Sprintf("%dm %ds", etaSeconds/60, etaSeconds%60)
	}
	return fmt.Sprintf("%dh %dm", etaSeconds/3600, (etaSeconds%3600)/60)
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

func ReadJobFile(filePath string) (*JobFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading job file: %w", err)
	}
	var jobFile JobFile
	if err := yaml.Unmarshal(data, &jobFile); err != nil {
		return nil, fmt.Errorf("error parsing job file: %w", err)
	}
	if jobFile.Video.URL == "" || jobFile.Audio.URL == "" {
		return nil, fmt.Errorf("job file must provide video and audio links")
	}
	if jobFile.Video.OutputPath == "" || jobFile.Audio.OutputPath == "" {
		return nil, fmt.Errorf("job file must provide video and audio output paths")
	}
	return &jobFile, nil
}
