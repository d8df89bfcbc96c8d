package browser

import (
	"context"
	"fmt"

	"vodgrab/internal/entity"
)

// Scripted is a Session fake for tests. Fill in the fields for the flow
// under test; opening an episode or pressing play emits the scripted URLs
// through the registered observer, the way a real page's network would.
type Scripted struct {
	Titles       []string
	Langs        []string
	SeasonsList  []entity.Season
	EpisodesList []entity.Episode
	// URLsPerOpen maps episode index to the URLs emitted when it opens.
	URLsPerOpen map[int][]string
	// PlayURLs are emitted when Play is called (movie flow).
	PlayURLs []string

	StartErr error
	AuthErr  error

	// Calls records method invocations in order, for assertions.
	Calls []string

	URL      string
	observer func(url string)
	started  bool
}

var _ Session = (*Scripted)(nil)

func (s *Scripted) record(call string) {
	s.Calls = append(s.Calls, call)
}

func (s *Scripted) ObserveRequests(fn func(url string)) {
	s.observer = fn
}

func (s *Scripted) CurrentURL() string { return s.URL }

func (s *Scripted) Start(ctx context.Context) error {
	s.record("start")

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.StartErr != nil {
		return s.StartErr
	}

	s.started = true

	return nil
}

func (s *Scripted) Authenticate(ctx context.Context) error {
	s.record("authenticate")

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.AuthErr
}

func (s *Scripted) Search(ctx context.Context, query string) error {
	s.record("search:" + query)

	return ctx.Err()
}

func (s *Scripted) SearchResults(ctx context.Context) ([]string, error) {
	s.record("searchResults")

	return s.Titles, ctx.Err()
}

func (s *Scripted) SelectTitle(ctx context.Context, i int) error {
	s.record(fmt.Sprintf("selectTitle:%d", i))

	return ctx.Err()
}

func (s *Scripted) Languages(ctx context.Context) ([]string, error) {
	s.record("languages")

	return s.Langs, ctx.Err()
}

func (s *Scripted) SelectLanguage(ctx context.Context, lang string) error {
	s.record("selectLanguage:" + lang)

	return ctx.Err()
}

func (s *Scripted) Seasons(ctx context.Context) ([]entity.Season, error) {
	s.record("seasons")

	return s.SeasonsList, ctx.Err()
}

func (s *Scripted) SelectSeason(ctx context.Context, i int) error {
	s.record(fmt.Sprintf("selectSeason:%d", i))

	return ctx.Err()
}

func (s *Scripted) Episodes(ctx context.Context) ([]entity.Episode, error) {
	s.record("episodes")

	return s.EpisodesList, ctx.Err()
}

func (s *Scripted) OpenEpisode(ctx context.Context, i int) error {
	s.record(fmt.Sprintf("openEpisode:%d", i))

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.observer != nil {
		for _, u := range s.URLsPerOpen[i] {
			s.observer(u)
		}
	}

	return nil
}

func (s *Scripted) Play(ctx context.Context) error {
	s.record("play")

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.observer != nil {
		for _, u := range s.PlayURLs {
			s.observer(u)
		}
	}

	return nil
}

func (s *Scripted) Back(ctx context.Context) error {
	s.record("back")

	return ctx.Err()
}

func (s *Scripted) Close() {
	s.record("close")
}
