package classify_test

import (
	"slices"
	"testing"

	"vodgrab/internal/classify"
	"vodgrab/internal/entity"
)

func testConfig() classify.Config {
	return classify.Config{
		AudioMarker:   "/a/",
		Extension:     ".m3u8",
		VideoToken:    "::kp",
		QualityOrder:  []string{"1080p", "720p", "480p", "360p"},
		PreferredHost: "net51.cc",
	}
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		urls      []string
		wantVideo []string
		wantAudio []string
	}{
		{
			name: "splits audio and video",
			urls: []string{
				"https://net51.cc/v/720p/master.m3u8::kp",
				"https://net51.cc/a/eng/index.m3u8",
				"https://tracker.example.com/ping.gif",
			},
			wantVideo: []string{"https://net51.cc/v/720p/master.m3u8::kp"},
			wantAudio: []string{"https://net51.cc/a/eng/index.m3u8"},
		},
		{
			name: "duplicates dropped keeping first occurrence",
			urls: []string{
				"https://net51.cc/v/720p/a.m3u8::kp",
				"https://net51.cc/v/720p/a.m3u8::kp",
				"https://net51.cc/v/480p/b.m3u8::kp",
			},
			wantVideo: []string{
				"https://net51.cc/v/720p/a.m3u8::kp",
				"https://net51.cc/v/480p/b.m3u8::kp",
			},
		},
		{
			name: "matching is case-insensitive but output keeps original form",
			urls: []string{
				"https://NET51.cc/A/eng/INDEX.M3U8",
				"https://net51.cc/v/1080p/x::KP",
			},
			wantVideo: []string{"https://net51.cc/v/1080p/x::KP"},
			wantAudio: []string{"https://NET51.cc/A/eng/INDEX.M3U8"},
		},
		{
			name: "audio marker without extension is not audio",
			urls: []string{
				"https://net51.cc/a/eng/track.mp4",
			},
		},
		{
			name: "extension must end the url",
			urls: []string{
				"https://net51.cc/a/eng/index.m3u8?token=abc",
			},
		},
		{
			name: "audio-path url never counts as video",
			urls: []string{
				"https://net51.cc/a/stream-::kp.mp4",
			},
		},
		{
			name: "empty input",
			urls: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			video, audio := classify.Categorize(tt.urls, testConfig())

			if !slices.Equal(video, tt.wantVideo) {
				t.Errorf("video = %v, want %v", video, tt.wantVideo)
			}

			if !slices.Equal(audio, tt.wantAudio) {
				t.Errorf("audio = %v, want %v", audio, tt.wantAudio)
			}
		})
	}
}

func TestSelectVideo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{
			name: "highest quality wins",
			candidates: []string{
				"https://cdn.example.com/v/480p/x::kp",
				"https://cdn.example.com/v/1080p/y::kp",
				"https://cdn.example.com/v/720p/z::kp",
			},
			want: "https://cdn.example.com/v/1080p/y::kp",
		},
		{
			name: "first quality hit wins regardless of host",
			candidates: []string{
				"https://cdn.example.com/v/720p/x::kp",
				"https://net51.cc/v/720p/y::kp",
			},
			want: "https://cdn.example.com/v/720p/x::kp",
		},
		{
			name: "lower quality on preferred host loses to higher elsewhere",
			candidates: []string{
				"https://net51.cc/v/480p/x::kp",
				"https://cdn.example.com/v/1080p/y::kp",
			},
			want: "https://cdn.example.com/v/1080p/y::kp",
		},
		{
			name: "no quality token falls back to preferred host",
			candidates: []string{
				"https://cdn.example.com/v/master::kp",
				"https://net51.cc/v/master::kp",
			},
			want: "https://net51.cc/v/master::kp",
		},
		{
			name: "no quality and no preferred host falls back to first",
			candidates: []string{
				"https://cdn1.example.com/v/master::kp",
				"https://cdn2.example.com/v/master::kp",
			},
			want: "https://cdn1.example.com/v/master::kp",
		},
		{
			name:       "empty slate",
			candidates: nil,
			want:       "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classify.SelectVideo(tt.candidates, testConfig()); got != tt.want {
				t.Errorf("SelectVideo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPairIsDeterministic(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://cdn.example.com/v/480p/x::kp",
		"https://net51.cc/a/eng/index.m3u8",
		"https://net51.cc/v/1080p/y::kp",
		"https://net51.cc/a/ger/index.m3u8",
	}

	want := entity.StreamPair{
		Video: "https://net51.cc/v/1080p/y::kp",
		Audio: "https://net51.cc/a/eng/index.m3u8",
	}

	for i := 0; i < 5; i++ {
		if got := classify.Pair(urls, testConfig()); got != want {
			t.Fatalf("Pair() = %+v, want %+v", got, want)
		}
	}
}

func TestPairNoAudio(t *testing.T) {
	t.Parallel()

	got := classify.Pair([]string{"https://net51.cc/v/720p/x::kp"}, testConfig())

	if got.Video == "" {
		t.Error("expected a video URL")
	}

	if got.Audio != "" {
		t.Errorf("expected empty audio, got %q", got.Audio)
	}
}
