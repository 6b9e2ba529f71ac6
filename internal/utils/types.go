package utils

// StreamKind names one of the two media tracks a run fetches. The value is
// also the prefix of that stream's progress lines.
type StreamKind string

const (
	StreamVideo StreamKind = "Video"
	StreamAudio StreamKind = "Audio"
)

// StreamJob describes one URL -> file download. TotalBytes and SupportsRanges
// are unknown until the probe fills them in; after segmentation the job is
// treated as immutable.
type StreamJob struct {
	ID               string
	Kind             StreamKind
	URL              string
	OutputPath       string
	Threads          int
	TotalBytes       int64
	SupportsRanges   bool
	RateLimit        int64 // bytes/sec, 0 means unlimited
	HTTPClientConfig HTTPClientConfig
}

// ProgressSnapshot is a derived view of one stream's progress at a reporting
// tick. It is never stored; each tick recomputes it from the segment counters.
type ProgressSnapshot struct {
	Kind           StreamKind
	Percent        float64
	BytesPerSecond float64
	ETA            string
}

type MergeResult struct {
	OutputPath string
	Success    bool
}

type JobFileEntry struct {
	URL        string `yaml:"link"`
	OutputPath string `yaml:"op"`
}

// JobFile is the optional YAML manifest accepted via --job-file as an
// alternative to passing four flags.
type JobFile struct {
	Video   JobFileEntry `yaml:"video"`
	Audio   JobFileEntry `yaml:"audio"`
	Threads int          `yaml:"threads"`
}
