package moderation

import (
	"context"
	"fmt"
	"sync"
)

// WordSource loads the current forbidden word list.
type WordSource interface {
	ListForbiddenWordTexts(ctx context.Context) ([]string, error)
}

// List serves the forbidden word list to the message pipeline. The compiled
// matcher is cached until Invalidate is called; every write to the word list
// must call Invalidate so that a new word blocks all subsequent messages.
type List struct {
	source WordSource

	mu      sync.Mutex
	matcher *Matcher
}

// NewList creates a list backed by source.
func NewList(source WordSource) *List {
	return &List{source: source}
}

// Current returns the matcher for the current word list, loading it if needed.
func (l *List) Current(ctx context.Context) (*Matcher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.matcher != nil {
		return l.matcher, nil
	}
	words, err := l.source.ListForbiddenWordTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load forbidden words: %w", err)
	}
	l.matcher = NewMatcher(words)
	return l.matcher, nil
}

// Invalidate drops the cached matcher. It waits for an in-flight load, so a
// load that read the list before a write never survives the invalidation.
func (l *List) Invalidate() {
	l.mu.Lock()
	l.matcher = nil
	l.mu.Unlock()
}

// FindForbidden reports every forbidden word contained in content.
func (l *List) FindForbidden(ctx context.Context, content string) ([]string, error) {
	m, err := l.Current(ctx)
	if err != nil {
		return nil, err
	}
	return m.Match(content), nil
}
