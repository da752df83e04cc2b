package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"heapcache/internal/config"
	"heapcache/internal/trace"
)

const (
	// DefaultLimit is the replay cache size when neither flag, env nor config
	// sets one.
	DefaultLimit = 128
	// MaxLimit is the largest accepted --limit.
	MaxLimit = 1 << 24
)

func ReplayCommandBuilder(cfg config.Type) *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "replay a key trace through the cache and report hits and evictions",
		ArgsUsage: "[trace file, - or empty for stdin]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "maximum number of resident keys",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("HEAPCACHE_LIMIT"),
					yaml.YAML("replay.limit", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("limit", altsrc.StringSourcer(cfg.Source)),
				),
				Value: DefaultLimit,
			},
			&cli.BoolFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "enable colored text output",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("replay.color", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
				),
			},
			&cli.BoolFlag{
				Name:  "keys",
				Usage: "list resident and evicted keys",
			},
		},
		Action: ReplayCommandAction,
	}
}

func ReplayCommandAction(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if limit <= 0 || limit > MaxLimit {
		return fmt.Errorf("--limit must be between 1 and %s, got %d", humanize.Comma(MaxLimit), limit)
	}

	src, closer, err := openTrace(cmd)
	if err != nil {
		return err
	}
	defer closer()

	report, err := trace.Replay(ctx, src, limit)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"requests": report.Requests,
		"limit":    limit,
	}).Debug("replay finished")

	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	WriteReport(w, report, cmd.Bool("color"), cmd.Bool("keys"))
	return nil
}

func openTrace(cmd *cli.Command) (io.Reader, func(), error) {
	name := cmd.Args().First()
	if name == "" || name == "-" {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		return r, func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warnf("failed to close %s", name)
		}
	}, nil
}

// WriteReport renders the replay counters as a table, optionally followed by
// the resident and evicted keys.
func WriteReport(w io.Writer, r trace.Report, color, keys bool) {
	title, _ := config.GetString("title", "heapcache replay")

	var (
		headerStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Left)
		labelStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		valueStyle  = lipgloss.NewStyle().Align(lipgloss.Right)
	)
	if color {
		headerColor, _ := config.GetString("colors.header", "12")
		valueColor, _ := config.GetString("colors.value", "10")
		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		valueStyle = valueStyle.Foreground(lipgloss.Color(valueColor))
	}

	rows := [][]string{
		{"limit", humanize.Comma(int64(r.Limit))},
		{"requests", humanize.Comma(int64(r.Requests))},
		{"hits", humanize.Comma(int64(r.Hits))},
		{"misses", humanize.Comma(int64(r.Misses))},
		{"evictions", humanize.Comma(int64(r.Evictions))},
		{"hit ratio", fmt.Sprintf("%.1f%%", r.HitRatio()*100)},
		{"resident", humanize.Comma(int64(len(r.Resident)))},
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(title, "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return labelStyle
			default:
				return valueStyle
			}
		})

	fmt.Fprintln(w, t.String())

	if keys {
		fmt.Fprintf(w, "resident (LRU -> MRU): %s\n", strings.Join(r.Resident, " "))
		fmt.Fprintf(w, "evicted: %s\n", strings.Join(r.Evicted, " "))
	}
}
