// Package trace replays key traces through an LRU cache and reports how the
// cache behaved.
//
// A trace is plain text with one key per line. Blank lines and lines starting
// with '#' are skipped; surrounding whitespace is trimmed.
package trace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"

	"heapcache/internal/cache"
)

// Report summarizes a replay.
type Report struct {
	Limit     int
	Requests  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	// Resident lists the keys left in the cache, least recently used first.
	Resident []string
	// Evicted lists evicted keys in eviction order.
	Evicted []string
}

// HitRatio returns hits over requests, or 0 for an empty trace.
func (r Report) HitRatio() float64 {
	if r.Requests == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Requests)
}

// Replay feeds every key in src through a cache holding at most limit items.
// It stops early with ctx's error if ctx is canceled.
func Replay(ctx context.Context, src io.Reader, limit int) (Report, error) {
	report := Report{Limit: limit}

	c, err := cache.New(cache.Config[string]{
		Limit: limit,
		OnEvict: func(key string) {
			report.Evicted = append(report.Evicted, key)
		},
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to create cache: %w", err)
	}
	// Close hands the resident payloads to OnEvict too. On success they are
	// trimmed from the report below; on error the report is discarded.
	defer func() { _ = c.Close() }()

	// The payload is the key itself so OnEvict can name what left.
	produce := func(key []byte) string {
		log.WithField("key", string(key)).Debug("miss")
		return string(key)
	}

	// Lines have no length limit.
	reader := bufio.NewReader(src)
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		text, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return Report{}, fmt.Errorf("failed to read trace: %w", readErr)
		}

		key := strings.TrimSpace(text)
		if key != "" && !strings.HasPrefix(key, "#") {
			if _, err := c.Get([]byte(key), produce); err != nil {
				return Report{}, fmt.Errorf("line %d: %w", line, err)
			}
			report.Requests++
		}

		if readErr != nil {
			break
		}
	}

	stats := c.Stats()
	report.Hits = stats.Hits
	report.Misses = stats.Misses
	report.Evictions = stats.Evictions
	for _, k := range c.Keys() {
		report.Resident = append(report.Resident, string(k))
	}

	evicted := len(report.Evicted)
	if err := c.Close(); err != nil {
		return Report{}, err
	}
	report.Evicted = report.Evicted[:evicted]

	return report, nil
}
