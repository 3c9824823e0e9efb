package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cookieranger/transis/mapper"
	"github.com/cookieranger/transis/model"
)

// gatedQuerier records every call and optionally blocks each one on a gate
// channel so tests can hold a query in flight.
type gatedQuerier struct {
	mu      sync.Mutex
	calls   []mapper.Options
	started chan struct{}
	gate    chan struct{}
	respond func(opts mapper.Options) ([]mapper.Payload, error)
}

func (g *gatedQuerier) Query(ctx context.Context, opts mapper.Options) ([]mapper.Payload, error) {
	g.mu.Lock()
	g.calls = append(g.calls, opts)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
	return g.respond(opts)
}

func (g *gatedQuerier) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *gatedQuerier) call(i int) mapper.Options {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[i]
}

// getOnlyMapper implements Get and nothing else
type getOnlyMapper struct{}

func (getOnlyMapper) Get(ctx context.Context, id interface{}, opts mapper.Options) (mapper.Payload, error) {
	return nil, mapper.ErrNotFound
}

func setupSongClass(t *testing.T) *model.Class {
	t.Helper()
	s := model.NewSpace()
	song := s.MustRegister("Song")
	require.NoError(t, song.Attr("title", "string"))
	return song
}

func titlesPayload(titles ...string) []mapper.Payload {
	out := make([]mapper.Payload, len(titles))
	for i, title := range titles {
		out[i] = mapper.Payload{"id": i + 1, "title": title}
	}
	return out
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("a fulfilled query replaces the contents", func(t *testing.T) {
		song := setupSongClass(t)
		gq := &gatedQuerier{respond: func(mapper.Options) ([]mapper.Payload, error) {
			return titlesPayload("one", "two"), nil
		}}
		song.UseMapper(gq)

		col := New(song)
		require.NoError(t, col.Query(ctx, nil))
		require.NoError(t, col.Wait(ctx))

		assert.Equal(t, 2, col.Len())
		assert.Equal(t, "one", col.At(0).Get("title"))
		assert.Equal(t, "two", col.At(1).Get("title"))
		assert.False(t, col.IsBusy())
		assert.Nil(t, col.At(2))
	})

	t.Run("calls made while busy coalesce to the latest one", func(t *testing.T) {
		song := setupSongClass(t)
		gq := &gatedQuerier{
			started: make(chan struct{}, 4),
			gate:    make(chan struct{}),
			respond: func(opts mapper.Options) ([]mapper.Payload, error) {
				q, _ := opts["q"].(string)
				return titlesPayload(q), nil
			},
		}
		song.UseMapper(gq)

		col := New(song)
		require.NoError(t, col.Query(ctx, mapper.Options{"q": "first"}))
		<-gq.started
		assert.True(t, col.IsBusy())

		// Both land while the first is in flight; only the last survives.
		require.NoError(t, col.Query(ctx, mapper.Options{"q": "second"}))
		require.NoError(t, col.Query(ctx, mapper.Options{"q": "third"}))

		close(gq.gate)
		require.NoError(t, col.Wait(ctx))

		assert.Equal(t, 2, gq.callCount())
		assert.Equal(t, "first", gq.call(0)["q"])
		assert.Equal(t, "third", gq.call(1)["q"])
		require.Equal(t, 1, col.Len())
		assert.Equal(t, "third", col.At(0).Get("title"))
	})

	t.Run("a rebound mapper serves the queued call", func(t *testing.T) {
		song := setupSongClass(t)
		old := &gatedQuerier{
			started: make(chan struct{}, 1),
			gate:    make(chan struct{}),
			respond: func(mapper.Options) ([]mapper.Payload, error) {
				return titlesPayload("old"), nil
			},
		}
		song.UseMapper(old)

		col := New(song)
		require.NoError(t, col.Query(ctx, nil))
		<-old.started

		replacement := &gatedQuerier{respond: func(mapper.Options) ([]mapper.Payload, error) {
			return titlesPayload("new"), nil
		}}
		song.UseMapper(replacement)
		require.NoError(t, col.Query(ctx, nil))

		close(old.gate)
		require.NoError(t, col.Wait(ctx))

		assert.Equal(t, 1, old.callCount())
		assert.Equal(t, 1, replacement.callCount())
		require.Equal(t, 1, col.Len())
		assert.Equal(t, "new", col.At(0).Get("title"))
	})

	t.Run("a rejection is stored and a later fulfillment clears it", func(t *testing.T) {
		song := setupSongClass(t)
		boom := errors.New("backend down")
		fail := true
		gq := &gatedQuerier{respond: func(mapper.Options) ([]mapper.Payload, error) {
			if fail {
				return nil, boom
			}
			return titlesPayload("back"), nil
		}}
		song.UseMapper(gq)

		col := New(song)
		require.NoError(t, col.Query(ctx, nil))
		require.ErrorIs(t, col.Wait(ctx), boom)
		assert.ErrorIs(t, col.Err(), boom)
		assert.Equal(t, 0, col.Len())

		fail = false
		require.NoError(t, col.Query(ctx, nil))
		require.NoError(t, col.Wait(ctx))
		assert.NoError(t, col.Err())
		assert.Equal(t, 1, col.Len())
	})

	t.Run("loaded records are canonical instances", func(t *testing.T) {
		song := setupSongClass(t)
		gq := &gatedQuerier{respond: func(mapper.Options) ([]mapper.Payload, error) {
			return titlesPayload("hit"), nil
		}}
		song.UseMapper(gq)

		col := New(song)
		require.NoError(t, col.Query(ctx, nil))
		require.NoError(t, col.Wait(ctx))

		local, err := song.Local(1)
		require.NoError(t, err)
		assert.Same(t, local, col.At(0))
	})

	t.Run("missing mapper fails synchronously", func(t *testing.T) {
		song := setupSongClass(t)
		col := New(song)
		err := col.Query(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, mapper.ErrNoMapper)
	})

	t.Run("mapper without Query fails synchronously", func(t *testing.T) {
		song := setupSongClass(t)
		song.UseMapper(getOnlyMapper{})
		col := New(song)
		err := col.Query(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, mapper.ErrNotSupported)
	})
}

func TestWait(t *testing.T) {
	t.Run("returns immediately when never queried", func(t *testing.T) {
		song := setupSongClass(t)
		col := New(song)
		assert.NoError(t, col.Wait(context.Background()))
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		song := setupSongClass(t)
		gq := &gatedQuerier{
			started: make(chan struct{}, 1),
			gate:    make(chan struct{}),
			respond: func(mapper.Options) ([]mapper.Payload, error) {
				return nil, nil
			},
		}
		song.UseMapper(gq)

		col := New(song)
		require.NoError(t, col.Query(context.Background(), nil))
		<-gq.started

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := col.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(gq.gate)
		assert.NoError(t, col.Wait(context.Background()))
	})
}
