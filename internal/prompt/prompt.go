// Package prompt collects the user's run decisions: what to search for,
// which title, language, season and episodes. The TUI implementation lives
// in tui.go; tests script answers through the Scripted fake.
package prompt

import (
	"context"
	"fmt"

	"vodgrab/internal/errs"
)

// Chooser asks the user to make run decisions. Implementations return
// errs.ErrPromptAborted when the user dismisses a prompt.
type Chooser interface {
	// ChooseOne picks a single item from items, returning its index.
	ChooseOne(ctx context.Context, title string, items []string) (int, error)
	// ChooseMany picks any number of items, returning their indices in order.
	ChooseMany(ctx context.Context, title string, items []string) ([]int, error)
	// ChooseText asks for free-form input.
	ChooseText(ctx context.Context, title, placeholder string) (string, error)
}

// Scripted is a Chooser fake that replays queued answers. An empty queue
// fails the test path with an unexpected-prompt error.
type Scripted struct {
	// OneAnswers, ManyAnswers and TextAnswers are consumed front to back.
	OneAnswers  []int
	ManyAnswers [][]int
	TextAnswers []string

	// Abort makes every prompt return errs.ErrPromptAborted.
	Abort bool

	// Prompts records the titles asked, in order.
	Prompts []string
}

var _ Chooser = (*Scripted)(nil)

func (s *Scripted) ChooseOne(ctx context.Context, title string, items []string) (int, error) {
	s.Prompts = append(s.Prompts, title)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if s.Abort {
		return 0, errs.ErrPromptAborted
	}

	if len(s.OneAnswers) == 0 {
		return 0, fmt.Errorf("unexpected prompt %q (%d items)", title, len(items))
	}

	answer := s.OneAnswers[0]
	s.OneAnswers = s.OneAnswers[1:]

	return answer, nil
}

func (s *Scripted) ChooseMany(ctx context.Context, title string, items []string) ([]int, error) {
	s.Prompts = append(s.Prompts, title)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.Abort {
		return nil, errs.ErrPromptAborted
	}

	if len(s.ManyAnswers) == 0 {
		return nil, fmt.Errorf("unexpected prompt %q (%d items)", title, len(items))
	}

	answer := s.ManyAnswers[0]
	s.ManyAnswers = s.ManyAnswers[1:]

	return answer, nil
}

func (s *Scripted) ChooseText(ctx context.Context, title, placeholder string) (string, error) {
	s.Prompts = append(s.Prompts, title)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.Abort {
		return "", errs.ErrPromptAborted
	}

	if len(s.TextAnswers) == 0 {
		return "", fmt.Errorf("unexpected prompt %q", title)
	}

	answer := s.TextAnswers[0]
	s.TextAnswers = s.TextAnswers[1:]

	return answer, nil
}
