package colors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/cadence/pkg/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(t.TempDir())
	require.NoError(t, err)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return c
}

func TestColorIDStablePerCategory(t *testing.T) {
	c := newTestCache(t)
	daily := c.ColorID(model.DAILY)
	monthly := c.ColorID(model.MONTHLY)

	assert.Equal(t, "1", daily)
	assert.Equal(t, "2", monthly)
	assert.Equal(t, daily, c.ColorID("Daily"))
}

func TestColorIDEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(t)
	for i := 0; i < paletteSize; i++ {
		c.ColorID(model.Frequency(fmt.Sprintf("cat%d", i)))
	}
	// cat0 was claimed first; touching it makes cat1 the oldest.
	c.ColorID("cat0")

	got := c.ColorID("extra")

	assert.Equal(t, "2", got)
	_, stillThere := c.Categories["cat1"]
	assert.False(t, stillThere)
	assert.Len(t, c.Categories, paletteSize)
}

func TestCachePersists(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	require.NoError(t, err)
	c.ColorID(model.WEEKLY)
	require.NoError(t, c.Save())

	reopened, err := NewCache(dir)
	require.NoError(t, err)
	require.Contains(t, reopened.Categories, model.WEEKLY)
	assert.Equal(t, "1", reopened.Categories[model.WEEKLY].ColorID)
}
