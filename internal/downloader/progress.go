package downloader

import (
	"regexp"
	"strconv"
)

var (
	rePercent = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%`)
	reRate    = regexp.MustCompile(`at\s+([\d.]+\w+/s)`)
	reETA     = regexp.MustCompile(`ETA\s+([\d:]+)`)
)

// ParseProgressLine extracts a progress update from one yt-dlp output line.
// Returns false for lines that are not progress reports.
func ParseProgressLine(line string) (ProgressUpdate, bool) {
	m := rePercent.FindStringSubmatch(line)
	if m == nil {
		return ProgressUpdate{}, false
	}

	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return ProgressUpdate{}, false
	}

	update := ProgressUpdate{Percent: pct}

	if m := reRate.FindStringSubmatch(line); m != nil {
		update.Rate = m[1]
	}

	if m := reETA.FindStringSubmatch(line); m != nil {
		update.ETA = m[1]
	}

	return update, true
}
