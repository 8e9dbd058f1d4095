package wordlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// Common errors for forbidden word and quick phrase operations.
var (
	ErrEmptyWord      = errors.New("word must not be empty")
	ErrWordExists     = errors.New("word already exists")
	ErrWordNotFound   = errors.New("forbidden word not found")
	ErrEmptyPhrase    = errors.New("title and content must not be empty")
	ErrPhraseNotFound = errors.New("quick phrase not found")
)

// Store is the persistence the service needs.
type Store interface {
	store.ForbiddenWordStore
	store.QuickPhraseStore
}

// Invalidator is notified after every change to the forbidden word list.
type Invalidator interface {
	Invalidate()
}

// Service manages forbidden words and quick phrases.
type Service struct {
	store Store
	cache Invalidator
}

// New creates a new service. cache may be nil.
func New(st Store, cache Invalidator) *Service {
	return &Service{store: st, cache: cache}
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// ListWords returns every forbidden word.
func (s *Service) ListWords(ctx context.Context) ([]*store.ForbiddenWord, error) {
	words, err := s.store.ListForbiddenWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list forbidden words: %w", err)
	}
	return words, nil
}

// CreateWord adds a word to the list.
func (s *Service) CreateWord(ctx context.Context, word string) (*store.ForbiddenWord, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	w, err := s.store.CreateForbiddenWord(ctx, word)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrWordExists
		}
		return nil, fmt.Errorf("create forbidden word: %w", err)
	}
	s.invalidate()
	return w, nil
}

// UpdateWord replaces the text of a word.
func (s *Service) UpdateWord(ctx context.Context, id int64, word string) (*store.ForbiddenWord, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, ErrEmptyWord
	}
	w, err := s.store.UpdateForbiddenWord(ctx, id, word)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrWordNotFound
		case errors.Is(err, store.ErrConflict):
			return nil, ErrWordExists
		}
		return nil, fmt.Errorf("update forbidden word: %w", err)
	}
	s.invalidate()
	return w, nil
}

// DeleteWord removes a word from the list.
func (s *Service) DeleteWord(ctx context.Context, id int64) error {
	if err := s.store.DeleteForbiddenWord(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWordNotFound
		}
		return fmt.Errorf("delete forbidden word: %w", err)
	}
	s.invalidate()
	return nil
}

// ListPhrases returns every quick phrase.
func (s *Service) ListPhrases(ctx context.Context) ([]*store.QuickPhrase, error) {
	phrases, err := s.store.ListQuickPhrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quick phrases: %w", err)
	}
	return phrases, nil
}

// CreatePhrase adds a quick phrase.
func (s *Service) CreatePhrase(ctx context.Context, title, content string) (*store.QuickPhrase, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, ErrEmptyPhrase
	}
	p, err := s.store.CreateQuickPhrase(ctx, title, content)
	if err != nil {
		return nil, fmt.Errorf("create quick phrase: %w", err)
	}
	return p, nil
}

// UpdatePhrase changes title and/or content of a quick phrase.
func (s *Service) UpdatePhrase(ctx context.Context, id int64, title, content *string) (*store.QuickPhrase, error) {
	for _, f := range []*string{title, content} {
		if f != nil {
			*f = strings.TrimSpace(*f)
			if *f == "" {
				return nil, ErrEmptyPhrase
			}
		}
	}
	p, err := s.store.UpdateQuickPhrase(ctx, id, title, content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPhraseNotFound
		}
		return nil, fmt.Errorf("update quick phrase: %w", err)
	}
	return p, nil
}

// DeletePhrase removes a quick phrase.
func (s *Service) DeletePhrase(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuickPhrase(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPhraseNotFound
		}
		return fmt.Errorf("delete quick phrase: %w", err)
	}
	return nil
}
