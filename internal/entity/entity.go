// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the lifecycle of a single download item.
type ItemStatus string

const (
	// ItemStatusPending indicates that the item has not been started.
	ItemStatusPending ItemStatus = "pending"
	// ItemStatusDownloading indicates that the item download is in progress.
	ItemStatusDownloading ItemStatus = "downloading"
	// ItemStatusCompleted indicates that the item finished successfully.
	ItemStatusCompleted ItemStatus = "completed"
	// ItemStatusFailed indicates that the item failed and may be retried on
	// a later run.
	ItemStatusFailed ItemStatus = "failed"
)

// Checkpoint is the persisted state of a run. Decision fields are written
// once, when the user makes the choice, and never overwritten afterwards.
type Checkpoint struct {
	RunID          string                `json:"runId"`
	SearchQuery    string                `json:"searchQuery,omitempty"`
	TitleIndex     *int                  `json:"titleIndex,omitempty"`
	Language       string                `json:"language,omitempty"`
	SeasonIndex    *int                  `json:"seasonIndex,omitempty"`
	EpisodeIndices []int                 `json:"episodeIndices,omitempty"`
	Items          map[string]ItemStatus `json:"items"`
	RunCompleted   bool                  `json:"runCompleted"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// NewCheckpoint returns an empty checkpoint ready to record decisions.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		RunID: uuid.NewString(),
		Items: make(map[string]ItemStatus),
	}
}

// ItemStatus returns the recorded status for key, or ItemStatusPending when
// the item has never been seen.
func (c *Checkpoint) ItemStatus(key string) ItemStatus {
	if c.Items == nil {
		return ItemStatusPending
	}

	status, ok := c.Items[key]
	if !ok {
		return ItemStatusPending
	}

	return status
}

// SetItemStatus records the status for key.
func (c *Checkpoint) SetItemStatus(key string, status ItemStatus) {
	if c.Items == nil {
		c.Items = make(map[string]ItemStatus)
	}

	c.Items[key] = status
	c.UpdatedAt = time.Now()
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (c *Checkpoint) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", c.RunID),
		slog.String("search_query", c.SearchQuery),
		slog.String("language", c.Language),
		slog.Int("items", len(c.Items)),
		slog.Bool("run_completed", c.RunCompleted),
	}

	if c.TitleIndex != nil {
		attrs = append(attrs, slog.Int("title_index", *c.TitleIndex))
	}

	if c.SeasonIndex != nil {
		attrs = append(attrs, slog.Int("season_index", *c.SeasonIndex))
	}

	return slog.GroupValue(attrs...)
}

// CapturedStream is one network request observed during playback, in
// observation order.
type CapturedStream struct {
	URL string
	Seq int
}

// StreamPair is the classified outcome of a capture window. Audio may be
// empty when the site serves muxed streams.
type StreamPair struct {
	Video string
	Audio string
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (p StreamPair) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("video", p.Video),
		slog.String("audio", p.Audio),
	)
}

// Season is one entry in the site's season selector.
type Season struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Episode is one entry in a season's episode list.
type Episode struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	ID     string `json:"id"`
}

// ArtifactRole classifies an intermediate file tracked for cleanup.
type ArtifactRole string

const (
	// RoleVideo marks a video-only intermediate file.
	RoleVideo ArtifactRole = "video"
	// RoleAudio marks an audio-only intermediate file.
	RoleAudio ArtifactRole = "audio"
)
