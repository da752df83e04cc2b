package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"heapcache/internal/cache"
)

func DemoCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:   "demo",
		Usage:  "walk through LRU eviction and recency refresh",
		Action: DemoCommandAction,
	}
}

func DemoCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}

	// -------------------------------------------------------------------
	// 1) LRU eviction (limit=2)
	// -------------------------------------------------------------------
	if err := runDemo(ctx, w, 2, "a", "b", "c", "d"); err != nil {
		return err
	}

	// -------------------------------------------------------------------
	// 2) Recency refresh (limit=5): 5 is the only key not touched again
	// -------------------------------------------------------------------
	return runDemo(ctx, w, 5, "1", "2", "3", "4", "5", "1", "2", "3", "4", "6")
}

func runDemo(ctx context.Context, w io.Writer, limit int, keys ...string) error {
	fmt.Fprintf(w, "limit=%d\n", limit)

	closing := false
	c, err := cache.New(cache.Config[string]{
		Limit: limit,
		OnEvict: func(v string) {
			if !closing {
				fmt.Fprintf(w, "  evicted %s\n", v)
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		// Close hands resident payloads to OnEvict too; those are not evictions.
		closing = true
		_ = c.Close()
	}()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}

		produced := false
		v, err := c.Get([]byte(k), func(key []byte) string {
			produced = true
			return string(key)
		})
		if err != nil {
			return err
		}

		state := "hit "
		if produced {
			state = "miss"
		}
		fmt.Fprintf(w, "GET %s %s keys (LRU -> MRU): %s\n", v, state, joinKeys(c.Keys()))
	}

	log.WithField("stats", fmt.Sprintf("%+v", c.Stats())).Debug("demo finished")
	return nil
}

func joinKeys(keys [][]byte) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, " ")
}
