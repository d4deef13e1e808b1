package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/corey/intake/internal/adapters/socket"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// formatStats renders daemon counters for the terminal.
//
//	intake daemon
//	  Status:     running
//	  Directory:  /data/in
//	  Queue:      3 waiting
func formatStats(s *socket.StatsResult, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sintake daemon%s\n", colorBold, colorReset))

	status := fmt.Sprintf("%sstopped%s", colorYellow, colorReset)
	if s.Running {
		status = fmt.Sprintf("%srunning%s", colorGreen, colorReset)
	}
	sb.WriteString(fmt.Sprintf("  Status:     %s\n", status))
	sb.WriteString(fmt.Sprintf("  Directory:  %s%s%s\n", colorCyan, s.Directory, colorReset))
	sb.WriteString(fmt.Sprintf("  Queue:      %s waiting\n", humanize.Comma(int64(s.QueueDepth))))
	sb.WriteString(fmt.Sprintf("  Received:   %s (%s requeued, %s refused)\n",
		humanize.Comma(s.Received), humanize.Comma(s.Requeued), humanize.Comma(s.Refused)))
	sb.WriteString(fmt.Sprintf("  Scans:      %s\n", humanize.Comma(s.Scans)))
	if s.Registrations > 0 {
		sb.WriteString(fmt.Sprintf("  Watching:   %d directories\n", s.Registrations))
	}
	if s.StoreEntries > 0 || s.StoreBytes > 0 {
		sb.WriteString(fmt.Sprintf("  Store:      %s entries, %s\n",
			humanize.Comma(int64(s.StoreEntries)), humanize.Bytes(uint64(s.StoreBytes))))
	}
	if s.UptimeSeconds > 0 {
		started := now.Add(-time.Duration(s.UptimeSeconds) * time.Second)
		sb.WriteString(fmt.Sprintf("  Started:    %s\n", humanize.RelTime(started, now, "ago", "from now")))
	}
	return sb.String()
}
