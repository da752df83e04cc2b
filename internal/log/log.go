// Package log configures apex/log for the heapcache binary.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a Handler writing to stderr and a log level
// from the HEAPCACHE_LOG env variable.
func InitLogger() {
	level := strings.ToUpper(os.Getenv("HEAPCACHE_LOG"))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&Handler{Writer: os.Stderr})
	log.SetLevelFromString(strings.ToLower(level))
}

// Handler formats log entries as "timestamp L message key=value ...".
type Handler struct {
	Writer io.Writer
	// Now is used for timestamps; nil means time.Now.
	Now func() time.Time
}

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	timestamp := now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.Writer, b.String())
	return err
}
