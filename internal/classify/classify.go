// Package classify sorts captured network URLs into audio and video stream
// candidates and selects the pair worth downloading. All functions are pure;
// the same input and config always yield the same pair.
package classify

import (
	"strings"

	"vodgrab/internal/entity"
	"vodgrab/pkg/urls"
)

// Config carries the classification rules. See config.Stream for defaults.
type Config struct {
	// AudioMarker must appear in a URL and Extension must end it for the
	// audio class.
	AudioMarker string
	Extension   string
	// VideoToken identifies video streams regardless of extension.
	VideoToken string
	// QualityOrder ranks video candidates, best first, lowercased.
	QualityOrder []string
	// PreferredHost breaks ties between equally ranked candidates.
	PreferredHost string
}

// Categorize splits captured URLs into video and audio candidates. Matching
// is case-insensitive on a lowercased copy; returned URLs keep their original
// form. Duplicates are dropped, first occurrence wins, order is preserved.
func Categorize(captured []string, cfg Config) (video, audio []string) {
	seen := make(map[string]struct{}, len(captured))

	for _, u := range captured {
		if _, ok := seen[u]; ok {
			continue
		}

		seen[u] = struct{}{}

		lower := strings.ToLower(u)
		onAudioPath := cfg.AudioMarker != "" && strings.Contains(lower, strings.ToLower(cfg.AudioMarker))

		switch {
		case onAudioPath && strings.HasSuffix(lower, strings.ToLower(cfg.Extension)):
			audio = append(audio, u)
		case onAudioPath:
			// Audio-path URL without the stream extension; never video.
		case cfg.VideoToken != "" && strings.Contains(lower, strings.ToLower(cfg.VideoToken)):
			video = append(video, u)
		}
	}

	return video, audio
}

// SelectVideo picks the best video candidate: for each quality in preference
// order, the first candidate carrying that token wins outright. Host
// preference applies only when no quality token matched anywhere. Returns ""
// for an empty slate.
func SelectVideo(candidates []string, cfg Config) string {
	if len(candidates) == 0 {
		return ""
	}

	for _, quality := range cfg.QualityOrder {
		for _, u := range candidates {
			if strings.Contains(strings.ToLower(u), quality) {
				return u
			}
		}
	}

	if u := firstOnHost(candidates, cfg.PreferredHost); u != "" {
		return u
	}

	return candidates[0]
}

// Pair classifies captured URLs and returns the selected stream pair. Audio
// is the first audio candidate observed; an empty audio URL means the video
// stream is expected to be muxed.
func Pair(captured []string, cfg Config) entity.StreamPair {
	video, audio := Categorize(captured, cfg)

	pair := entity.StreamPair{
		Video: SelectVideo(video, cfg),
	}

	if len(audio) > 0 {
		pair.Audio = audio[0]
	}

	return pair
}

func firstOnHost(candidates []string, host string) string {
	if host == "" {
		return ""
	}

	host = strings.ToLower(host)

	for _, u := range candidates {
		// Match on the host component so a path segment that happens to
		// contain the preferred host does not win.
		if strings.Contains(urls.Host(u), host) {
			return u
		}
	}

	return ""
}
