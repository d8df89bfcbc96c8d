package downloader

import "testing"

func TestParseProgressLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want ProgressUpdate
		ok   bool
	}{
		{
			name: "full progress line",
			line: "[download]  42.3% of ~512.00MiB at 3.21MiB/s ETA 01:23",
			want: ProgressUpdate{Percent: 42.3, Rate: "3.21MiB/s", ETA: "01:23"},
			ok:   true,
		},
		{
			name: "integer percent",
			line: "[download] 100% of 512.00MiB in 00:02:10 at 3.93MiB/s",
			want: ProgressUpdate{Percent: 100, Rate: "3.93MiB/s"},
			ok:   true,
		},
		{
			name: "no rate or eta",
			line: "[download]   0.0% of ~512.00MiB",
			want: ProgressUpdate{Percent: 0},
			ok:   true,
		},
		{
			name: "destination line is not progress",
			line: "[download] Destination: /downloads/ep1.v.mp4",
			ok:   false,
		},
		{
			name: "unrelated line",
			line: "[hlsnative] Downloading m3u8 manifest",
			ok:   false,
		},
		{
			name: "empty line",
			line: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseProgressLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}

			if ok && got != tt.want {
				t.Errorf("ParseProgressLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
