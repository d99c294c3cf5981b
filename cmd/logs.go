// File: cmd/logs.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
)

// logFilter selects which log entries are printed.
type logFilter struct {
	minLevel  zapcore.Level
	component string
}

func newLogsCmd(cfg *config.Interface) *cobra.Command {
	var (
		follow    bool
		level     string
		component string
	)
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the JSON log file in a readable form",
		Long: `Reads logger.log_file and prints one line per entry. Use --follow to keep
printing as a running server writes, for example to watch config reloads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := (*cfg).Logger().LogFile
			if path == "" {
				return fmt.Errorf("logger.log_file is not configured")
			}
			filter := logFilter{minLevel: zapcore.DebugLevel, component: component}
			if level != "" {
				lvl, err := zapcore.ParseLevel(level)
				if err != nil {
					return fmt.Errorf("invalid --level: %w", err)
				}
				filter.minLevel = lvl
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    follow,
				ReOpen:    follow,
				MustExist: true,
				Logger:    tail.DiscardingLogger,
			})
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer t.Cleanup()
			defer func() { _ = t.Stop() }()

			return streamLogs(cmd.Context(), t.Lines, cmd.OutOrStdout(), filter)
		},
	}
	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep reading as the file grows")
	logsCmd.Flags().StringVarP(&level, "level", "l", "", "minimum level to print (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&component, "component", "", "only entries whose logger name contains this")
	return logsCmd
}

// streamLogs prints lines until the channel closes or ctx is done.
func streamLogs(ctx context.Context, lines <-chan *tail.Line, w io.Writer, filter logFilter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				observability.GetLogger().Warn("Error reading from log file", zap.Error(line.Err))
				continue
			}
			if out, ok := formatLogLine(line.Text, filter); ok {
				if _, err := fmt.Fprintln(w, out); err != nil {
					return err
				}
			}
		}
	}
}

// formatLogLine renders one JSON entry as "ts LEVEL logger: msg k=v ...".
// Lines that are not JSON, such as continuation lines, pass through as is.
func formatLogLine(text string, filter logFilter) (string, bool) {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		return text, strings.TrimSpace(text) != ""
	}

	levelName, _ := entry["level"].(string)
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(levelName)); err == nil && lvl < filter.minLevel {
		return "", false
	}
	name, _ := entry["logger"].(string)
	if filter.component != "" && !strings.Contains(name, filter.component) {
		return "", false
	}

	var b strings.Builder
	if ts, ok := entry["ts"].(string); ok {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(levelName))
	if name != "" {
		b.WriteString(name)
		b.WriteString(": ")
	}
	msg, _ := entry["msg"].(string)
	b.WriteString(msg)

	fields := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "ts", "level", "logger", "msg", "stacktrace":
			continue
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	if st, ok := entry["stacktrace"].(string); ok && st != "" {
		b.WriteString("\n")
		b.WriteString(st)
	}
	return b.String(), true
}
