package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloquacious/tickmate/internal/models"
	"github.com/maloquacious/tickmate/internal/store"
)

func TestStoreTick_CountAndOrder(t *testing.T) {
	s, _ := newTestStore(t)

	inSession(t, s, func(ctx context.Context) {
		tr := models.NewTrack("Water", "")
		tr.MultipleEntriesEnabled = true
		require.NoError(t, s.StoreTrack(ctx, tr))

		n, err := s.GetTickCount(ctx, tr.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		late := models.NewTick(tr.ID, time.Date(2024, time.May, 2, 18, 45, 10, 0, time.Local))
		early := models.NewTick(tr.ID, time.Date(2024, time.May, 2, 8, 5, 0, 0, time.Local))
		day := models.NewDayTick(tr.ID, 2024, time.April, 30)
		for _, tick := range []*models.Tick{late, early, day} {
			require.NoError(t, s.StoreTick(ctx, tick))
			assert.NotZero(t, tick.ID)
		}

		n, err = s.GetTickCount(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		ticks, err := s.GetTicks(ctx, tr.ID)
		require.NoError(t, err)
		require.Len(t, ticks, 3)
		assert.Equal(t, []int64{day.ID, early.ID, late.ID}, []int64{ticks[0].ID, ticks[1].ID, ticks[2].ID})

		assert.True(t, ticks[2].Time.Equal(late.Time))
		assert.True(t, ticks[2].HasTimeInfo)
		assert.False(t, ticks[0].HasTimeInfo)
		assert.True(t, ticks[0].Time.Equal(day.Time))
	})
}

func TestStoreTick_UnknownTrack(t *testing.T) {
	s, _ := newTestStore(t)

	inSession(t, s, func(ctx context.Context) {
		err := s.StoreTick(ctx, models.NewTick(7, time.Now()))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDeleteTick(t *testing.T) {
	s, _ := newTestStore(t)

	inSession(t, s, func(ctx context.Context) {
		tr := models.NewTrack("Run", "")
		require.NoError(t, s.StoreTrack(ctx, tr))
		tick := models.NewDayTick(tr.ID, 2024, time.June, 1)
		require.NoError(t, s.StoreTick(ctx, tick))

		require.NoError(t, s.DeleteTick(ctx, tick.ID))
		assert.ErrorIs(t, s.DeleteTick(ctx, tick.ID), store.ErrNotFound)

		n, err := s.GetTickCount(ctx, tr.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestGetTicks_LegacyRowsWithoutTime(t *testing.T) {
	s, m := newTestStore(t)
	stageLegacySnapshot(t, m, "legacy.db", smileyV10)
	require.NoError(t, m.ImportDatabase(context.Background(), "legacy.db"))

	inSession(t, s, func(ctx context.Context) {
		ticks, err := s.GetTicks(ctx, 2)
		require.NoError(t, err)
		require.Len(t, ticks, 2)
		for _, tick := range ticks {
			assert.False(t, tick.HasTimeInfo)
			assert.Equal(t, 2015, tick.Time.Year())
		}
	})
}
