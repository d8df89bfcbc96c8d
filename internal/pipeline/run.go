package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"vodgrab/internal/classify"
	"vodgrab/internal/consts"
	"vodgrab/internal/entity"
	"vodgrab/internal/errs"
	"vodgrab/pkg/calc"
	"vodgrab/pkg/gen"
	"vodgrab/pkg/ptr"
	"vodgrab/pkg/sanitize"
)

// showAllLanguages is the shortlist entry that expands to the full list.
const showAllLanguages = "Show all languages"

func (p *Pipeline) runOnce(ctx context.Context) error {
	cp := p.store.Load()

	p.capture.Attach(p.session)

	if err := p.session.Start(ctx); err != nil {
		return &errs.InfrastructureError{Op: "browser start", Err: err}
	}
	defer p.session.Close()

	if err := p.session.Authenticate(ctx); err != nil {
		var authErr *errs.AuthError
		if errors.As(err, &authErr) || errors.Is(err, context.Canceled) {
			return err
		}

		return &errs.AuthError{Reason: "session setup", Err: err}
	}

	query, err := p.decideQuery(ctx, cp)
	if err != nil {
		return err
	}

	if err := p.session.Search(ctx, query); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	titles, err := p.session.SearchResults(ctx)
	if err != nil {
		return fmt.Errorf("search results: %w", err)
	}

	titleIdx, err := p.decideTitle(ctx, cp, titles)
	if err != nil {
		return err
	}

	if titleIdx >= len(titles) {
		return fmt.Errorf("saved title index %d out of range (%d results)", titleIdx, len(titles))
	}

	title := titles[titleIdx]

	if err := p.session.SelectTitle(ctx, titleIdx); err != nil {
		return fmt.Errorf("select title: %w", err)
	}

	if err := p.decideAndSelectLanguage(ctx, cp); err != nil {
		return err
	}

	seasons, err := p.session.Seasons(ctx)
	if err != nil {
		return fmt.Errorf("seasons: %w", err)
	}

	titleDir := filepath.Join(p.cfg.Dir.Downloads, sanitize.Filename(title))

	var allDone bool

	if len(seasons) == 0 {
		allDone, err = p.runMovie(ctx, cp, title, titleDir)
	} else {
		allDone, err = p.runSeries(ctx, cp, seasons, titleDir)
	}

	if err != nil {
		return err
	}

	if allDone {
		cp.RunCompleted = true
		p.store.Save(cp)
		p.log.Info("run completed", "title", title)
	} else {
		// Failed items stay recorded; the next run retries them.
		p.log.Warn("run finished with failed items", "checkpoint", cp)
	}

	return nil
}

func (p *Pipeline) decideQuery(ctx context.Context, cp *entity.Checkpoint) (string, error) {
	if cp.SearchQuery != "" {
		p.log.Info("reusing saved search query", "query", cp.SearchQuery)

		return cp.SearchQuery, nil
	}

	query, err := p.chooser.ChooseText(ctx, "Search for a title", "title name")
	if err != nil {
		return "", err
	}

	if query == "" {
		return "", errs.ErrPromptAborted
	}

	cp.SearchQuery = query
	p.store.Save(cp)

	return query, nil
}

func (p *Pipeline) decideTitle(ctx context.Context, cp *entity.Checkpoint, titles []string) (int, error) {
	if cp.TitleIndex != nil {
		p.log.Info("reusing saved title selection", "index", *cp.TitleIndex)

		return *cp.TitleIndex, nil
	}

	idx, err := p.chooser.ChooseOne(ctx, "Select a title", titles)
	if err != nil {
		return 0, err
	}

	cp.TitleIndex = ptr.Of(idx)
	p.store.Save(cp)

	return idx, nil
}

func (p *Pipeline) decideAndSelectLanguage(ctx context.Context, cp *entity.Checkpoint) error {
	langs, err := p.session.Languages(ctx)
	if err != nil {
		return fmt.Errorf("languages: %w", err)
	}

	if len(langs) == 0 {
		return nil
	}

	if cp.Language == "" {
		lang, err := p.chooseLanguage(ctx, langs)
		if err != nil {
			return err
		}

		cp.Language = lang
		p.store.Save(cp)
	} else {
		p.log.Info("reusing saved language", "language", cp.Language)
	}

	if err := p.session.SelectLanguage(ctx, cp.Language); err != nil {
		return fmt.Errorf("select language: %w", err)
	}

	return nil
}

// chooseLanguage offers the configured shortlist first, with an escape hatch
// to the full list.
func (p *Pipeline) chooseLanguage(ctx context.Context, langs []string) (string, error) {
	shortlist := intersect(p.cfg.Prompt.PreferredLanguages, langs)

	if len(shortlist) == 0 && slices.Contains(langs, p.cfg.Prompt.DefaultLanguage) {
		shortlist = []string{p.cfg.Prompt.DefaultLanguage}
	}

	if len(shortlist) > 0 && len(shortlist) < len(langs) {
		items := append(slices.Clone(shortlist), showAllLanguages)

		idx, err := p.chooser.ChooseOne(ctx, "Select audio language", items)
		if err != nil {
			return "", err
		}

		if idx < len(shortlist) {
			return shortlist[idx], nil
		}
	}

	idx, err := p.chooser.ChooseOne(ctx, "Select audio language", langs)
	if err != nil {
		return "", err
	}

	return langs[idx], nil
}

func (p *Pipeline) runMovie(ctx context.Context, cp *entity.Checkpoint, title, titleDir string) (bool, error) {
	fileBase := sanitize.Filename(title)

	err := p.processItem(ctx, cp, gen.Key(fileBase), fileBase, titleDir, p.session.Play)
	if err != nil {
		if runScoped(ctx, err) {
			return false, err
		}

		p.log.Error("movie failed", "title", title, "error", err)

		return false, nil
	}

	return true, nil
}

func (p *Pipeline) runSeries(ctx context.Context, cp *entity.Checkpoint, seasons []entity.Season, titleDir string) (bool, error) {
	seasonIdx, err := p.decideSeason(ctx, cp, seasons)
	if err != nil {
		return false, err
	}

	if seasonIdx >= len(seasons) {
		return false, fmt.Errorf("saved season index %d out of range (%d seasons)", seasonIdx, len(seasons))
	}

	if err := p.session.SelectSeason(ctx, seasonIdx); err != nil {
		return false, fmt.Errorf("select season: %w", err)
	}

	episodes, err := p.session.Episodes(ctx)
	if err != nil {
		return false, fmt.Errorf("episodes: %w", err)
	}

	picked, err := p.decideEpisodes(ctx, cp, episodes)
	if err != nil {
		return false, err
	}

	seasonName := sanitize.Filename(seasons[seasonIdx].Text)
	seasonDir := filepath.Join(titleDir, seasonName)
	allDone := true

	for i, epIdx := range picked {
		if epIdx < 0 || epIdx >= len(episodes) {
			p.log.Warn("saved episode index out of range, skipping", "index", epIdx, "episodes", len(episodes))

			allDone = false

			continue
		}

		episode := episodes[epIdx]
		fileBase := sanitize.Filename(episode.Title)
		// Keys carry the season so the same episode title in another
		// season is a distinct item.
		key := gen.Key(seasonName, fileBase)

		open := func(ctx context.Context) error {
			return p.session.OpenEpisode(ctx, epIdx)
		}

		if err := p.processItem(ctx, cp, key, fileBase, seasonDir, open); err != nil {
			if runScoped(ctx, err) {
				return false, err
			}

			// One bad episode must not sink the rest.
			p.log.Error("episode failed", "episode", episode.Title, "error", err)

			allDone = false
		}

		if err := p.session.Back(ctx); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			p.log.Warn("failed to navigate back", "error", err)
		}

		p.log.Info("season progress", "done", i+1, "total", len(picked),
			"percent", calc.Progress(i+1, len(picked)))
	}

	return allDone, nil
}

func (p *Pipeline) decideSeason(ctx context.Context, cp *entity.Checkpoint, seasons []entity.Season) (int, error) {
	if cp.SeasonIndex != nil {
		p.log.Info("reusing saved season selection", "index", *cp.SeasonIndex)

		return *cp.SeasonIndex, nil
	}

	texts := make([]string, 0, len(seasons))
	for _, s := range seasons {
		texts = append(texts, s.Text)
	}

	idx, err := p.chooser.ChooseOne(ctx, "Select a season", texts)
	if err != nil {
		return 0, err
	}

	cp.SeasonIndex = ptr.Of(idx)
	p.store.Save(cp)

	return idx, nil
}

func (p *Pipeline) decideEpisodes(ctx context.Context, cp *entity.Checkpoint, episodes []entity.Episode) ([]int, error) {
	if len(cp.EpisodeIndices) > 0 {
		p.log.Info("reusing saved episode selection", "indices", cp.EpisodeIndices)

		return cp.EpisodeIndices, nil
	}

	titles := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		titles = append(titles, fmt.Sprintf("%d. %s", ep.Number, ep.Title))
	}

	picked, err := p.chooser.ChooseMany(ctx, "Select episodes", titles)
	if err != nil {
		return nil, err
	}

	cp.EpisodeIndices = picked
	p.store.Save(cp)

	return picked, nil
}

// processItem captures, downloads and merges one item. Item failures are
// recorded in the checkpoint before returning.
func (p *Pipeline) processItem(ctx context.Context, cp *entity.Checkpoint, key, fileBase, dir string, open func(ctx context.Context) error) error {
	if cp.ItemStatus(key) == entity.ItemStatusCompleted {
		p.log.Info("item already downloaded, skipping", "item", key)

		if p.metrics != nil {
			p.metrics.ItemsSkipped.Inc()
		}

		return nil
	}

	if p.metrics != nil {
		p.metrics.ItemsStarted.Inc()
	}

	mark := p.capture.Mark()

	if err := open(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return p.failItem(cp, key, &errs.CaptureError{Item: key, Err: err})
	}

	// Let playback settle so the player has requested its manifests.
	if err := p.sleep(ctx, p.cfg.Capture.SettleWindow); err != nil {
		return err
	}

	urls := p.capture.Since(mark)

	pair := classify.Pair(urls, classify.Config{
		AudioMarker:   p.cfg.Stream.AudioMarker,
		Extension:     p.cfg.Stream.Extension,
		VideoToken:    p.cfg.Stream.VideoToken,
		QualityOrder:  p.cfg.Stream.QualityOrder,
		PreferredHost: p.cfg.Stream.PreferredHost,
	})

	if pair.Video == "" {
		return p.failItem(cp, key, &errs.CaptureError{Item: key, Err: errs.ErrNoStreamCaptured})
	}

	p.log.Info("streams classified", "item", key, "pair", pair, "captured", len(urls))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return p.failItem(cp, key, fmt.Errorf("create output dir: %w", err))
	}

	output := filepath.Join(dir, fileBase+consts.SuffixOutput)
	tempVideo := filepath.Join(dir, fileBase+consts.SuffixVideoTemp)
	tempAudio := filepath.Join(dir, fileBase+consts.SuffixAudioTemp)

	cp.SetItemStatus(key, entity.ItemStatusDownloading)
	p.store.Save(cp)

	p.artifacts.Register(tempVideo, entity.RoleVideo)

	if err := p.fetcher.Fetch(ctx, pair.Video, tempVideo); err != nil {
		if ctx.Err() != nil {
			return err
		}

		return p.failItem(cp, key, err)
	}

	audioPath := ""

	if pair.Audio != "" {
		p.artifacts.Register(tempAudio, entity.RoleAudio)

		if err := p.fetcher.Fetch(ctx, pair.Audio, tempAudio); err != nil {
			if ctx.Err() != nil {
				return err
			}

			// Audio is best-effort; the video stream usually carries sound.
			p.log.Warn("audio download failed, proceeding with video only", "item", key, "error", err)
			os.Remove(tempAudio)
			p.artifacts.Deregister(tempAudio)
		} else {
			audioPath = tempAudio
		}
	}

	if err := p.muxer.Merge(ctx, tempVideo, audioPath, output); err != nil {
		if ctx.Err() != nil {
			return err
		}

		return p.failItem(cp, key, err)
	}

	cp.SetItemStatus(key, entity.ItemStatusCompleted)
	p.store.Save(cp)

	if p.metrics != nil {
		p.metrics.ItemsCompleted.Inc()
	}

	p.log.Info("item completed", "item", key, "output", output)

	return nil
}

func (p *Pipeline) failItem(cp *entity.Checkpoint, key string, err error) error {
	cp.SetItemStatus(key, entity.ItemStatusFailed)
	p.store.Save(cp)

	if p.metrics != nil {
		p.metrics.ItemsFailed.Inc()
	}

	return err
}

// runScoped reports whether err must abort the whole run rather than the
// current item.
func runScoped(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var authErr *errs.AuthError
	if errors.As(err, &authErr) {
		return true
	}

	return errors.Is(err, errs.ErrPromptAborted)
}

func intersect(preferred, available []string) []string {
	var out []string

	for _, p := range preferred {
		if slices.Contains(available, p) {
			out = append(out, p)
		}
	}

	return out
}
