package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"vodgrab/internal/config"
	"vodgrab/internal/entity"
	"vodgrab/internal/errs"
)

// Selectors maps the site's DOM. Defaults match the current site layout and
// can be overridden for tests or after a site redesign.
type Selectors struct {
	SearchButton     string
	SearchInput      string
	SearchResult     string
	SearchResultName string
	PlayButton       string
	BackButton       string
	SeasonSelect     string
	SeasonOption     string
	EpisodeContainer string
	EpisodeItem      string
	EpisodeIndex     string
	EpisodeTitle     string
	LanguageList     string
	LanguageOption   string
}

// DefaultSelectors returns the selector set for the current site layout.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchButton:     "button.searchTab",
		SearchInput:      "input#searchInput",
		SearchResult:     "div.search-post",
		SearchResultName: "p.fallback-text",
		PlayButton:       "a.playLink.modal-main-play",
		BackButton:       "div.btn-payer-back",
		SeasonSelect:     "select.season-box",
		SeasonOption:     "select.season-box option",
		EpisodeContainer: "div.episodeSelector-container",
		EpisodeItem:      "div.episode-item",
		EpisodeIndex:     ".titleCard-title_index",
		EpisodeTitle:     ".titleCard-title_text",
		LanguageList:     "div.audio_lang_list",
		LanguageOption:   "div.audio_lang_list a",
	}
}

// RodSession drives a Chromium instance over CDP.
type RodSession struct {
	log       *slog.Logger
	cfg       config.Browser
	site      config.Site
	cookieSrc string
	selectors Selectors

	browser  *rod.Browser
	page     *rod.Page
	observer func(url string)
}

// NewRod creates a rod-backed session. cookieFile may be empty.
func NewRod(log *slog.Logger, cfg config.Browser, site config.Site, cookieFile string) *RodSession {
	return &RodSession{
		log:       log.With(slog.String("package", "browser")),
		cfg:       cfg,
		site:      site,
		cookieSrc: cookieFile,
		selectors: DefaultSelectors(),
	}
}

// SetSelectors overrides the default selector set.
func (s *RodSession) SetSelectors(sel Selectors) {
	s.selectors = sel
}

// ObserveRequests registers the network observer. Must precede Start.
func (s *RodSession) ObserveRequests(fn func(url string)) {
	s.observer = fn
}

// Start launches the browser, opens a page wired to the request observer,
// and navigates to the site's home page.
func (s *RodSession) Start(ctx context.Context) error {
	launch := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		launch = launch.Bin(s.cfg.Bin)
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}

	s.page = page

	if s.cfg.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent})
		if err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	if s.observer != nil {
		wait := page.Context(ctx).EachEvent(func(ev *proto.NetworkRequestWillBeSent) {
			s.observer(ev.Request.URL)
		})
		go wait()
	}

	if err := s.navigate(ctx, s.site.HomeURL); err != nil {
		return fmt.Errorf("navigate home: %w", err)
	}

	s.log.Info("browser started", "home", s.site.HomeURL, "headless", s.cfg.Headless)

	return nil
}

// Authenticate installs cookies from the cookie file, reloads the home page
// and verifies the session is not stuck on the verification interstitial.
func (s *RodSession) Authenticate(ctx context.Context) error {
	if s.cookieSrc != "" {
		if err := s.loadCookies(); err != nil {
			s.log.Warn("failed to load cookies, continuing without", "error", err)
		} else if err := s.navigate(ctx, s.site.HomeURL); err != nil {
			return fmt.Errorf("reload after cookies: %w", err)
		}
	}

	if err := s.humanPause(ctx); err != nil {
		return err
	}

	current := s.CurrentURL()
	if s.site.VerifyKeyword != "" && strings.Contains(strings.ToLower(current), s.site.VerifyKeyword) {
		return &errs.AuthError{Reason: "stuck on verification page: " + current}
	}

	return nil
}

func (s *RodSession) loadCookies() error {
	data, err := os.ReadFile(s.cookieSrc)
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("parse cookie file: %w", err)
	}

	if err := s.browser.SetCookies(cookies); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}

	s.log.Info("cookies installed", "count", len(cookies))

	return nil
}

// CurrentURL returns the page's current location, or "" when unavailable.
func (s *RodSession) CurrentURL() string {
	if s.page == nil {
		return ""
	}

	info, err := s.page.Info()
	if err != nil {
		return ""
	}

	return info.URL
}

// Search opens the search tab and types query into the search box.
func (s *RodSession) Search(ctx context.Context, query string) error {
	if err := s.click(ctx, s.selectors.SearchButton); err != nil {
		return fmt.Errorf("open search: %w", err)
	}

	if err := s.humanPause(ctx); err != nil {
		return err
	}

	input, err := s.element(ctx, s.selectors.SearchInput)
	if err != nil {
		return fmt.Errorf("find search input: %w", err)
	}

	if err := input.Input(query); err != nil {
		return fmt.Errorf("type query: %w", err)
	}

	return s.humanPause(ctx)
}

// SearchResults reads the visible result titles.
func (s *RodSession) SearchResults(ctx context.Context) ([]string, error) {
	if _, err := s.element(ctx, s.selectors.SearchResult); err != nil {
		return nil, errs.ErrNoSearchResults
	}

	results, err := s.page.Context(ctx).Elements(s.selectors.SearchResult)
	if err != nil {
		return nil, fmt.Errorf("list search results: %w", err)
	}

	titles := make([]string, 0, len(results))

	for _, res := range results {
		name, err := res.Element(s.selectors.SearchResultName)
		if err != nil {
			continue
		}

		text, err := name.Text()
		if err != nil {
			continue
		}

		titles = append(titles, strings.TrimSpace(text))
	}

	if len(titles) == 0 {
		return nil, errs.ErrNoSearchResults
	}

	return titles, nil
}

// SelectTitle clicks the i-th search result.
func (s *RodSession) SelectTitle(ctx context.Context, i int) error {
	results, err := s.page.Context(ctx).Elements(s.selectors.SearchResult)
	if err != nil {
		return fmt.Errorf("list search results: %w", err)
	}

	if i < 0 || i >= len(results) {
		return fmt.Errorf("title index %d out of range (%d results)", i, len(results))
	}

	if err := results[i].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click title: %w", err)
	}

	return s.humanPause(ctx)
}

// Languages lists the audio languages offered for the open title.
func (s *RodSession) Languages(ctx context.Context) ([]string, error) {
	if _, err := s.element(ctx, s.selectors.LanguageList); err != nil {
		// No language list means the title has a single audio track.
		return nil, nil
	}

	options, err := s.page.Context(ctx).Elements(s.selectors.LanguageOption)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	langs := make([]string, 0, len(options))

	for _, opt := range options {
		text, err := opt.Text()
		if err != nil {
			continue
		}

		if text = strings.TrimSpace(text); text != "" {
			langs = append(langs, text)
		}
	}

	return langs, nil
}

// SelectLanguage clicks the language link whose text matches lang.
func (s *RodSession) SelectLanguage(ctx context.Context, lang string) error {
	options, err := s.page.Context(ctx).Elements(s.selectors.LanguageOption)
	if err != nil {
		return fmt.Errorf("list languages: %w", err)
	}

	for _, opt := range options {
		text, err := opt.Text()
		if err != nil {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(text), lang) {
			if err := opt.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return fmt.Errorf("click language: %w", err)
			}

			return s.humanPause(ctx)
		}
	}

	return fmt.Errorf("language %q not offered", lang)
}

// Seasons reads the season selector. An empty result means movie.
func (s *RodSession) Seasons(ctx context.Context) ([]entity.Season, error) {
	if _, err := s.element(ctx, s.selectors.SeasonSelect); err != nil {
		return nil, nil
	}

	options, err := s.page.Context(ctx).Elements(s.selectors.SeasonOption)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}

	seasons := make([]entity.Season, 0, len(options))

	for _, opt := range options {
		text, err := opt.Text()
		if err != nil {
			continue
		}

		value, err := opt.Attribute("value")
		if err != nil || value == nil {
			continue
		}

		seasons = append(seasons, entity.Season{
			Text:  strings.TrimSpace(text),
			Value: *value,
		})
	}

	return seasons, nil
}

// SelectSeason switches the season selector to option i and fires the
// change event the site listens for.
func (s *RodSession) SelectSeason(ctx context.Context, i int) error {
	seasons, err := s.Seasons(ctx)
	if err != nil {
		return err
	}

	if i < 0 || i >= len(seasons) {
		return fmt.Errorf("season index %d out of range (%d seasons)", i, len(seasons))
	}

	_, err = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `(sel, value) => {
			const el = document.querySelector(sel);
			el.value = value;
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}`,
		JSArgs:  []interface{}{s.selectors.SeasonSelect, seasons[i].Value},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("select season: %w", err)
	}

	return s.humanPause(ctx)
}

// Episodes lists the episodes of the currently selected season.
func (s *RodSession) Episodes(ctx context.Context) ([]entity.Episode, error) {
	if _, err := s.element(ctx, s.selectors.EpisodeContainer); err != nil {
		return nil, fmt.Errorf("find episode list: %w", err)
	}

	items, err := s.page.Context(ctx).Elements(s.selectors.EpisodeItem)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	episodes := make([]entity.Episode, 0, len(items))

	for n, item := range items {
		ep := entity.Episode{Number: n + 1}

		if idx, err := item.Element(s.selectors.EpisodeIndex); err == nil {
			if text, err := idx.Text(); err == nil {
				ep.ID = strings.TrimSpace(text)
			}
		}

		if title, err := item.Element(s.selectors.EpisodeTitle); err == nil {
			if text, err := title.Text(); err == nil {
				ep.Title = strings.TrimSpace(text)
			}
		}

		if ep.Title == "" {
			ep.Title = fmt.Sprintf("Episode %d", ep.Number)
		}

		episodes = append(episodes, ep)
	}

	return episodes, nil
}

// OpenEpisode clicks the i-th episode to start playback.
func (s *RodSession) OpenEpisode(ctx context.Context, i int) error {
	items, err := s.page.Context(ctx).Elements(s.selectors.EpisodeItem)
	if err != nil {
		return fmt.Errorf("list episodes: %w", err)
	}

	if i < 0 || i >= len(items) {
		return fmt.Errorf("episode index %d out of range (%d episodes)", i, len(items))
	}

	if err := items[i].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click episode: %w", err)
	}

	return s.humanPause(ctx)
}

// Play starts playback of an open movie title.
func (s *RodSession) Play(ctx context.Context) error {
	if err := s.click(ctx, s.selectors.PlayButton); err != nil {
		return fmt.Errorf("click play: %w", err)
	}

	return s.humanPause(ctx)
}

// Back returns from the player to the episode list.
func (s *RodSession) Back(ctx context.Context) error {
	if err := s.click(ctx, s.selectors.BackButton); err != nil {
		return fmt.Errorf("click back: %w", err)
	}

	return s.humanPause(ctx)
}

// Close shuts the browser down.
func (s *RodSession) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Warn("failed to close browser", "error", err)
		}
	}
}

func (s *RodSession) navigate(ctx context.Context, url string) error {
	return s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout).Navigate(url)
}

func (s *RodSession) element(ctx context.Context, sel string) (*rod.Element, error) {
	return s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout).Element(sel)
}

func (s *RodSession) click(ctx context.Context, sel string) error {
	el, err := s.element(ctx, sel)
	if err != nil {
		return err
	}

	return el.Click(proto.InputMouseButtonLeft, 1)
}

// humanPause sleeps a short randomized interval so interaction timing does
// not look scripted.
func (s *RodSession) humanPause(ctx context.Context) error {
	delay := 500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second))) //nolint:gosec

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
