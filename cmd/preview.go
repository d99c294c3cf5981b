// File: cmd/preview.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type previewOptions struct {
	text      string
	emotion   string
	intention string
	stage     string
	format    string
	document  string
}

func newPreviewCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	opts := &previewOptions{}

	previewCmd := &cobra.Command{
		Use:   "preview [text]",
		Short: "Compute the message plan for an answer without sending anything",
		Long: `Runs the humanizer pipeline on an answer and prints the resulting plan.
The answer comes from the positional argument, --text, or stdin ("-").
Configuration is read from the settings store when a database is configured,
from --document when given, and otherwise the built-in defaults apply.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "text" {
				return fmt.Errorf("invalid --format %q: must be json or text", opts.format)
			}
			text, err := resolvePreviewText(cmd.InOrStdin(), opts.text, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			source, cleanup, err := previewConfigSource(ctx, *cfg, provider, opts.document)
			if err != nil {
				return err
			}
			defer cleanup()

			engine := humanizer.NewEngine(source, observability.GetLogger())
			plan := engine.Humanize(ctx, humanizer.NewInput(text, opts.emotion, opts.intention, opts.stage))

			if opts.format == "text" {
				return renderTimeline(cmd.OutOrStdout(), plan)
			}
			return writeIndentedJSON(cmd.OutOrStdout(), plan)
		},
	}

	previewCmd.Flags().StringVarP(&opts.text, "text", "t", "", "the model answer to humanize")
	previewCmd.Flags().StringVarP(&opts.emotion, "emotion", "e", "", "detected emotion (e.g. anxious, skeptical)")
	previewCmd.Flags().StringVarP(&opts.intention, "intention", "i", "", "classifier intention (e.g. orcamento, cliente_bravo)")
	previewCmd.Flags().StringVarP(&opts.stage, "stage", "s", "", "funnel stage: cold, warm or hot")
	previewCmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json or text")
	previewCmd.Flags().StringVar(&opts.document, "document", "", "path to a JSON or YAML config document to preview with instead of the stored one")
	return previewCmd
}

// resolvePreviewText picks the answer from the argument, the flag or stdin.
func resolvePreviewText(stdin io.Reader, flagText string, args []string) (string, error) {
	text := flagText
	if len(args) == 1 {
		if flagText != "" {
			return "", fmt.Errorf("give the text either as an argument or with --text, not both")
		}
		text = args[0]
	}
	if text != "-" {
		return text, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read text from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// previewConfigSource chooses where the preview's configuration comes from.
func previewConfigSource(ctx context.Context, cfg config.Interface, provider settingsProvider, document string) (humanizer.ConfigSource, func(), error) {
	if document != "" {
		if document == "-" {
			return nil, nil, fmt.Errorf("--document needs a file path; stdin is reserved for the text")
		}
		raw, err := readDocument(nil, document)
		if err != nil {
			return nil, nil, err
		}
		doc, _, err := humanizer.Canonicalize(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("config document %s: %w", document, err)
		}
		return humanizer.StaticConfig(doc), func() {}, nil
	}

	backend, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if backend == nil {
		observability.GetLogger().Debug("No database configured; previewing with default humanizer config.")
		return humanizer.StaticConfig(humanizer.DefaultConfig()), cleanup, nil
	}
	return newConfigStore(backend, cfg), cleanup, nil
}

// newConfigStore builds the cached config source from the loaded settings.
func newConfigStore(backend humanizer.SettingsSource, cfg config.Interface) *humanizer.ConfigStore {
	h := cfg.Humanizer()
	return humanizer.NewConfigStore(backend,
		humanizer.WithSettingsKey(h.SettingsKey),
		humanizer.WithTTL(h.CacheTTL),
		humanizer.WithFetchTimeout(h.FetchTimeout),
		humanizer.WithLogger(observability.GetLogger()),
	)
}

// renderTimeline prints the plan as a human readable schedule with the
// cumulative offset of each step.
func renderTimeline(w io.Writer, plan *humanizer.Plan) error {
	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s emotion=%s intention=%s stage=%s\n",
		plan.Meta.Mode, plan.Meta.Emotion, plan.Meta.Intention, plan.Meta.Stage)

	elapsed := 0
	for _, item := range plan.Items {
		elapsed += item.DelayMs
		switch item.Kind {
		case humanizer.ItemTyping:
			fmt.Fprintf(&b, "%7dms  +%-5d typing %s\n", elapsed, item.DelayMs, item.Action)
		case humanizer.ItemText:
			lines := strings.Split(item.Text, "\n")
			fmt.Fprintf(&b, "%7dms  +%-5d send   %s\n", elapsed, item.DelayMs, lines[0])
			for _, line := range lines[1:] {
				fmt.Fprintf(&b, "%22s%s\n", "", line)
			}
		}
	}
	fmt.Fprintf(&b, "%d bubble(s), %dms total\n", plan.TextCount(), plan.TotalDelayMs())

	_, err := io.WriteString(w, b.String())
	return err
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		observability.GetLogger().Error("Failed to encode output", zap.Error(err))
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
