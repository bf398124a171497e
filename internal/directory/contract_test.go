package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// runContract exercises behaviour every Directory backend shares.
func runContract(t *testing.T, open func(t *testing.T, c *clock) Directory) {
	ctx := context.Background()

	t.Run("upsert keeps joined and refreshes activity", func(t *testing.T) {
		c := &clock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
		d := open(t, c)

		first, err := d.Upsert(ctx, Identity{ID: 42, Username: "jane", FirstName: "Jane"})
		require.NoError(t, err)
		assert.True(t, first.JoinedAt.Equal(c.Now()))
		assert.True(t, first.LastActiveAt.Equal(c.Now()))

		c.Advance(2 * time.Hour)
		second, err := d.Upsert(ctx, Identity{ID: 42, Username: "jane_d", FirstName: "Jane", LastName: "Doe"})
		require.NoError(t, err)
		assert.True(t, second.JoinedAt.Equal(first.JoinedAt), "joined must not move")
		assert.True(t, second.LastActiveAt.Equal(c.Now()))
		assert.Equal(t, "jane_d", second.Username)
		assert.Equal(t, "Jane Doe", second.DisplayName())

		n, err := d.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("get unknown", func(t *testing.T) {
		d := open(t, &clock{now: time.Now()})
		_, err := d.Get(ctx, 7)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list in registration order", func(t *testing.T) {
		c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		d := open(t, c)
		for _, id := range []int64{30, 10, 20} {
			_, err := d.Upsert(ctx, Identity{ID: id})
			require.NoError(t, err)
			c.Advance(time.Minute)
		}
		_, err := d.Upsert(ctx, Identity{ID: 30, FirstName: "again"})
		require.NoError(t, err)

		list, err := d.List(ctx)
		require.NoError(t, err)
		var ids []int64
		for _, p := range list {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []int64{30, 10, 20}, ids)
	})

	t.Run("stats windows", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := &clock{now: start}
		d := open(t, c)

		_, err := d.Upsert(ctx, Identity{ID: 1})
		require.NoError(t, err)
		c.Advance(8 * 24 * time.Hour)
		_, err = d.Upsert(ctx, Identity{ID: 2})
		require.NoError(t, err)
		c.Advance(30 * time.Hour)
		_, err = d.Upsert(ctx, Identity{ID: 3})
		require.NoError(t, err)

		st, err := d.Stats(ctx, c.Now())
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 3, ActiveLastDay: 1, JoinedLastWeek: 2}, st)
	})

	t.Run("concurrent upserts", func(t *testing.T) {
		d := open(t, &clock{now: time.Now()})
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := d.Upsert(ctx, Identity{ID: id % 5})
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()
		n, err := d.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}
