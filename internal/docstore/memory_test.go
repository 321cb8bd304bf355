package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := s.Create(ctx, "rooms", "4821", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	_, err = s.Create(ctx, "rooms", "4821", []byte(`{}`))
	assert.ErrorIs(t, err, ErrExists)

	got, err := s.Get(ctx, "rooms", "4821")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got.Data)

	_, err = s.Get(ctx, "rooms", "9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
	require.NoError(t, err)

	doc, err := s.Update(ctx, "rooms", "1", 1, []byte(`v2`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Version)

	// A second write still based on version 1 must be rejected, not
	// silently applied over v2.
	_, err = s.Update(ctx, "rooms", "1", 1, []byte(`v2-conflict`))
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := s.Get(ctx, "rooms", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`v2`), got.Data)
	assert.Equal(t, int64(2), got.Version)

	_, err = s.Update(ctx, "rooms", "missing", 1, []byte(`x`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreWatchDeliversEveryCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
	require.NoError(t, err)

	feed, release, err := s.Watch(ctx, "rooms", "1")
	require.NoError(t, err)
	defer release()

	_, err = s.Update(ctx, "rooms", "1", 1, []byte(`v2`))
	require.NoError(t, err)

	select {
	case d := <-feed:
		assert.Equal(t, []byte(`v2`), d.Data)
		assert.Equal(t, int64(2), d.Version)
	case <-time.After(time.Second):
		t.Fatal("no feed delivery after update")
	}
}

func TestMemoryStoreWatchCoalescesWhenSlow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
	require.NoError(t, err)

	feed, release, err := s.Watch(ctx, "rooms", "1")
	require.NoError(t, err)
	defer release()

	// Push far more writes than the subscriber buffer holds without
	// reading any of them.
	for v := int64(1); v <= 100; v++ {
		_, err := s.Update(ctx, "rooms", "1", v, []byte{byte(v)})
		require.NoError(t, err)
	}

	// Intermediate snapshots may be dropped but the newest one must be
	// present.
	var last Document
	for {
		select {
		case d := <-feed:
			last = d
			continue
		default:
		}
		break
	}
	assert.Equal(t, int64(101), last.Version)
}

func TestMemoryStoreWatchRelease(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
	require.NoError(t, err)

	feed, release, err := s.Watch(ctx, "rooms", "1")
	require.NoError(t, err)

	release()
	release() // releasing twice is fine

	_, ok := <-feed
	assert.False(t, ok, "feed channel should be closed after release")

	// Writes after release must not block on the dead subscriber.
	_, err = s.Update(ctx, "rooms", "1", 1, []byte(`v2`))
	require.NoError(t, err)
}

// Writes racing a subscription teardown must never hit a closed channel;
// a send-on-closed-channel here takes down the whole process.
func TestMemoryStoreReleaseDuringWrites(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		s := NewMemoryStore()
		_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
		require.NoError(t, err)

		_, release, err := s.Watch(ctx, "rooms", "1")
		require.NoError(t, err)

		// Fill the subscriber buffer so further deliveries coalesce.
		version := int64(1)
		for ; version <= 8; version++ {
			_, err := s.Update(ctx, "rooms", "1", version, []byte(`fill`))
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := version; v < version+10; v++ {
				if _, err := s.Update(ctx, "rooms", "1", v, []byte(`race`)); err != nil {
					return
				}
			}
		}()

		release()
		wg.Wait()
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1111", []byte(`a`))
	require.NoError(t, err)
	_, err = s.Create(ctx, "rooms", "2222", []byte(`b`))
	require.NoError(t, err)
	_, err = s.Create(ctx, "other", "3333", []byte(`c`))
	require.NoError(t, err)

	ids, err := s.List(ctx, "rooms")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1111", "2222"}, ids)

	require.NoError(t, s.Delete(ctx, "rooms", "1111"))
	ids, err = s.List(ctx, "rooms")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2222"}, ids)
}

func TestMemoryStoreDeleteClosesFeeds(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, "rooms", "1", []byte(`v1`))
	require.NoError(t, err)

	feed, release, err := s.Watch(ctx, "rooms", "1")
	require.NoError(t, err)
	defer release()

	require.NoError(t, s.Delete(ctx, "rooms", "1"))

	select {
	case _, ok := <-feed:
		assert.False(t, ok, "feed channel should be closed after delete")
	case <-time.After(time.Second):
		t.Fatal("feed not closed after delete")
	}

	_, err = s.Get(ctx, "rooms", "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreWatchMissingDoc(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.Watch(context.Background(), "rooms", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
