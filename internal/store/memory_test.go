package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gys/internal/domain"
	"gys/internal/models"
)

func TestMemoryStoreGelinler(t *testing.T) {
	ctx := context.Background()

	t.Run("SetThenGet", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("ev-1", map[string]interface{}{
			"id": "ev-1", "ad": "Ayşe", "tarih": "2026-06-12", "saat": "10:30",
			"anlasilanUcret": 15000, "bilgiGonderildi": true,
		})
		require.NoError(t, b.Commit(ctx))

		g, err := s.Get(ctx, "ev-1")
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, "Ayşe", g.Ad)
		assert.Equal(t, 15000, g.AnlasilanUcret)
		assert.True(t, g.BilgiGonderildi)
	})

	t.Run("GetMissingReturnsNil", func(t *testing.T) {
		s := NewMemory()
		g, err := s.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("MergeKeepsUntouchedFields", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("ev-1", map[string]interface{}{
			"id": "ev-1", "ad": "Ayşe", "tarih": "2026-06-12", "saat": "10:30",
			"anlasilanUcret": 15000, "gelinNotu": "topuz",
		})
		require.NoError(t, b.Commit(ctx))

		b = s.Batch()
		b.SetMerge("ev-1", map[string]interface{}{"saat": "11:00", "kapora": 5000})
		require.NoError(t, b.Commit(ctx))

		g, err := s.Get(ctx, "ev-1")
		require.NoError(t, err)
		assert.Equal(t, "11:00", g.Saat)
		assert.Equal(t, 5000, g.Kapora)
		assert.Equal(t, 15000, g.AnlasilanUcret)
		assert.Equal(t, "topuz", g.GelinNotu)
	})

	t.Run("MergeOnMissingCreates", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.SetMerge("ev-1", map[string]interface{}{"id": "ev-1", "ad": "Elif", "tarih": "2026-07-01", "saat": "09:00"})
		require.NoError(t, b.Commit(ctx))

		g, err := s.Get(ctx, "ev-1")
		require.NoError(t, err)
		require.NotNil(t, g)
		assert.Equal(t, "Elif", g.Ad)
	})

	t.Run("UnknownFieldErrors", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("ev-1", map[string]interface{}{"id": "ev-1", "bogus": 1})
		assert.Error(t, b.Commit(ctx))
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("ev-1", map[string]interface{}{"id": "ev-1", "ad": "Ayşe"})
		require.NoError(t, b.Commit(ctx))

		b = s.Batch()
		b.Delete("ev-1")
		require.NoError(t, b.Commit(ctx))

		g, err := s.Get(ctx, "ev-1")
		require.NoError(t, err)
		assert.Nil(t, g)
	})

	t.Run("ListFiltersByDateRange", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("ev-1", map[string]interface{}{"id": "ev-1", "tarih": "2026-05-01"})
		b.Set("ev-2", map[string]interface{}{"id": "ev-2", "tarih": "2026-06-15"})
		b.Set("ev-3", map[string]interface{}{"id": "ev-3", "tarih": "2026-08-20"})
		require.NoError(t, b.Commit(ctx))

		out, err := s.List(ctx, "2026-06-01", "2026-07-01")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "ev-2", out[0].ID)

		all, err := s.List(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "ev-1", all[0].ID)
		assert.Equal(t, "ev-3", all[2].ID)
	})

	t.Run("ListIDsSorted", func(t *testing.T) {
		s := NewMemory()
		b := s.Batch()
		b.Set("b", map[string]interface{}{"id": "b"})
		b.Set("a", map[string]interface{}{"id": "a"})
		require.NoError(t, b.Commit(ctx))

		ids, err := s.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
	})
}

func TestMemoryStoreCursor(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	cur, err := s.GetCursor(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	require.NoError(t, s.SaveCursor(ctx, &models.SyncCursor{Token: "tok-1"}))

	cur, err = s.GetCursor(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "tok-1", cur.Token)

	require.NoError(t, s.SaveCursor(ctx, &models.SyncCursor{FullResyncNeeded: true}))
	cur, err = s.GetCursor(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur.Token)
	assert.True(t, cur.FullResyncNeeded)
}

func TestMemoryStoreChannels(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"chan-1", "chan-2", "chan-3", "chan-4"} {
		require.NoError(t, s.SaveChannel(ctx, &models.WebhookChannel{
			ChannelID: id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	t.Run("NewestFirstLimited", func(t *testing.T) {
		chans, err := s.RecentChannels(ctx, 3)
		require.NoError(t, err)
		require.Len(t, chans, 3)
		assert.Equal(t, "chan-4", chans[0].ChannelID)
		assert.Equal(t, "chan-3", chans[1].ChannelID)
		assert.Equal(t, "chan-2", chans[2].ChannelID)
	})

	t.Run("AdvanceSequence", func(t *testing.T) {
		require.NoError(t, s.AdvanceSequence(ctx, "chan-4", 7))
		chans, err := s.RecentChannels(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(7), chans[0].LastSequence)

		// The advance is conditional: equal or lower values lose.
		assert.ErrorIs(t, s.AdvanceSequence(ctx, "chan-4", 7), domain.ErrStaleSequence)
		assert.ErrorIs(t, s.AdvanceSequence(ctx, "chan-4", 3), domain.ErrStaleSequence)
		require.NoError(t, s.AdvanceSequence(ctx, "chan-4", 8))

		assert.Error(t, s.AdvanceSequence(ctx, "chan-missing", 1))
	})

	t.Run("DeleteChannel", func(t *testing.T) {
		require.NoError(t, s.DeleteChannel(ctx, "chan-1"))
		chans, err := s.RecentChannels(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, chans, 3)
	})
}
