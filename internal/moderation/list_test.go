package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticSource struct {
	mu    sync.Mutex
	words []string
	loads int
	err   error
}

func (s *staticSource) ListForbiddenWordTexts(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.words...), nil
}

func (s *staticSource) set(words ...string) {
	s.mu.Lock()
	s.words = words
	s.mu.Unlock()
}

func TestList_CachesUntilInvalidated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	src := &staticSource{words: []string{"spamword"}}
	list := NewList(src)

	words, err := list.FindForbidden(ctx, "a spamword here")
	req.NoError(err)
	req.Equal([]string{"spamword"}, words)

	_, err = list.FindForbidden(ctx, "again")
	req.NoError(err)
	req.Equal(1, src.loads)

	// A new word only blocks messages checked after the write.
	src.set("spamword", "newword")
	words, err = list.FindForbidden(ctx, "newword")
	req.NoError(err)
	req.Empty(words)

	list.Invalidate()
	words, err = list.FindForbidden(ctx, "newword")
	req.NoError(err)
	req.Equal([]string{"newword"}, words)
	req.Equal(2, src.loads)
}

func TestList_LoadError(t *testing.T) {
	src := &staticSource{err: errors.New("no such table: forbidden_words")}
	list := NewList(src)

	_, err := list.FindForbidden(context.Background(), "hello")
	require.Error(t, err)

	// Failed loads are not cached.
	src.err = nil
	src.set("hello")
	words, err := list.FindForbidden(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, words)
}
