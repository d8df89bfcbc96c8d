// Package browser drives the target site through an automated browser. The
// Session interface is what the pipeline talks to; the rod-backed
// implementation lives in rod.go and a scripted fake in mock.go.
package browser

import (
	"context"

	"vodgrab/internal/entity"
)

// Session is one authenticated visit to the site. All navigation methods
// honor ctx cancellation. Start must succeed before anything else is called.
type Session interface {
	// Start launches the browser and navigates to the site's home page.
	Start(ctx context.Context) error
	// Authenticate installs cookies and confirms the session is past any
	// verification interstitial.
	Authenticate(ctx context.Context) error
	// ObserveRequests registers fn to receive every request URL the browser
	// issues. Must be called before Start; fn runs on the event goroutine.
	ObserveRequests(fn func(url string))
	// CurrentURL returns the page's current location.
	CurrentURL() string

	// Search types query into the site's search box.
	Search(ctx context.Context, query string) error
	// SearchResults returns the titles currently shown in search results.
	SearchResults(ctx context.Context) ([]string, error)
	// SelectTitle clicks the i-th search result.
	SelectTitle(ctx context.Context, i int) error

	// Languages lists the available audio languages for the open title.
	Languages(ctx context.Context) ([]string, error)
	// SelectLanguage picks an audio language by its visible name.
	SelectLanguage(ctx context.Context, lang string) error

	// Seasons lists the entries of the season selector. An empty list means
	// the title is a movie.
	Seasons(ctx context.Context) ([]entity.Season, error)
	// SelectSeason switches the episode list to the i-th season.
	SelectSeason(ctx context.Context, i int) error
	// Episodes lists the episodes of the selected season.
	Episodes(ctx context.Context) ([]entity.Episode, error)

	// OpenEpisode clicks the i-th episode to start playback.
	OpenEpisode(ctx context.Context, i int) error
	// Play starts playback of an open movie title.
	Play(ctx context.Context) error
	// Back returns from the player to the episode list.
	Back(ctx context.Context) error

	// Close shuts the browser down.
	Close()
}
