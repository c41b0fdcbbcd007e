// Package colors hands out Google Calendar color ids per task category,
// recycling the least recently used one once all eleven are taken.
package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/harrisonrobin/cadence/pkg/model"
)

const (
	cacheFile = "category_colors.json"
	// Calendar event colors run from "1" to "11".
	paletteSize = 11
)

type CategoryState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

type Cache struct {
	Path       string
	Categories map[model.Frequency]*CategoryState
	dirty      bool
	now        func() time.Time
}

// NewCache opens dir/category_colors.json, starting empty if it does not exist.
func NewCache(dir string) (*Cache, error) {
	c := &Cache{
		Path:       filepath.Join(dir, cacheFile),
		Categories: make(map[model.Frequency]*CategoryState),
		now:        time.Now,
	}
	if _, err := os.Stat(c.Path); err == nil {
		if err := c.Load(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Categories)
}

func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return err
	}
	f, err := os.Create(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(c.Categories); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the color for category, assigning one on first use.
func (c *Cache) ColorID(category model.Frequency) string {
	category = category.Normalize()
	if state, ok := c.Categories[category]; ok {
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assign(category)
}

func (c *Cache) assign(category model.Frequency) string {
	used := make(map[string]bool)
	for _, s := range c.Categories {
		used[s.ColorID] = true
	}
	for i := 1; i <= paletteSize; i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			return c.claim(category, id)
		}
	}

	var oldest model.Frequency
	var oldestTime time.Time
	first := true
	for name, s := range c.Categories {
		if first || s.LastUsed.Before(oldestTime) {
			oldest, oldestTime, first = name, s.LastUsed, false
		}
	}
	id := c.Categories[oldest].ColorID
	delete(c.Categories, oldest)
	return c.claim(category, id)
}

func (c *Cache) claim(category model.Frequency, id string) string {
	c.Categories[category] = &CategoryState{ColorID: id, LastUsed: c.now()}
	c.dirty = true
	return id
}
