// File: cmd/settings.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wa-humanizer/internal/adminapi"
	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
	"github.com/xkilldash9x/wa-humanizer/internal/settingsfile"
)

const invalidateTimeout = 10 * time.Second

func newSettingsCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and manage the stored humanizer config document",
	}

	settingsCmd.AddCommand(
		newSettingsGetCmd(cfg, provider),
		newSettingsSetCmd(cfg, provider),
		newSettingsDeleteCmd(cfg, provider),
		newSettingsHistoryCmd(cfg, provider),
		newSettingsDefaultsCmd(),
		newSettingsInvalidateCmd(cfg),
	)
	return settingsCmd
}

func newSettingsGetCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	var effective bool
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the stored config document",
		Long: `Prints the document stored under humanizer.settings_key. With --effective it
prints the configuration the engine would actually use: the stored document
merged onto the defaults and sanitized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := (*cfg).Humanizer().SettingsKey

			if effective {
				backend, cleanup, err := provider.Create(ctx, *cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				var source humanizer.SettingsSource
				if backend != nil {
					source = backend
				}
				return writeIndentedJSON(cmd.OutOrStdout(), newConfigStore(source, *cfg).Get(ctx))
			}

			backend, cleanup, err := requireBackend(ctx, provider, *cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			raw, ok, err := backend.GetSettingValue(ctx, key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "No config stored under %q; the defaults apply.\n", key)
				return nil
			}
			return writeRawDocument(cmd.OutOrStdout(), raw)
		},
	}
	getCmd.Flags().BoolVar(&effective, "effective", false, "print the merged and sanitized config the engine uses")
	return getCmd
}

func newSettingsSetCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "set <file|->",
		Short: "Validate and store a config document",
		Long: `Reads a config document from a file or stdin ("-"), merges it onto the
defaults, validates it and stores it in full as JSON. Files named *.yaml or
*.yml are read as YAML. Running servers pick it up when
their cache expires; use "settings invalidate" to apply it at once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			_, doc, err := humanizer.Canonicalize(raw)
			if err != nil {
				return fmt.Errorf("refusing to store config: %w", err)
			}

			backend, cleanup, err := requireBackend(ctx, provider, *cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			key := (*cfg).Humanizer().SettingsKey
			if err := backend.SetSettingValue(ctx, key, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored humanizer config under %q.\n", key)
			return nil
		},
	}
}

func newSettingsDeleteCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored config document so the defaults apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, cleanup, err := requireBackend(ctx, provider, *cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			key := (*cfg).Humanizer().SettingsKey
			if err := backend.DeleteSetting(ctx, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted humanizer config %q; the defaults apply.\n", key)
			return nil
		},
	}
}

func newSettingsHistoryCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent changes to the config document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, cleanup, err := requireBackend(ctx, provider, *cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			changes, err := backend.SettingHistory(ctx, (*cfg).Humanizer().SettingsKey, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintln(out, "No changes recorded.")
				return nil
			}
			for _, c := range changes {
				action := "set"
				size := 0
				if c.Value == nil {
					action = "deleted"
				} else {
					size = len(*c.Value)
				}
				fmt.Fprintf(out, "%s  %-7s  %d bytes\n", c.ChangedAt.UTC().Format(time.RFC3339), action, size)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")
	return historyCmd
}

func newSettingsDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in config document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeIndentedJSON(cmd.OutOrStdout(), humanizer.DefaultConfig())
		},
	}
}

func newSettingsInvalidateCmd(cfg *config.Interface) *cobra.Command {
	var server string
	invalidateCmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Ask a running admin API to drop its cached config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := server
			if base == "" {
				base = "http://" + (*cfg).Admin().ListenAddr
			}
			var token string
			if admin := (*cfg).Admin(); admin.AuthSecret != "" {
				var err error
				token, err = adminapi.IssueToken(admin.AuthSecret, "cli", invalidateTimeout, time.Now())
				if err != nil {
					return err
				}
			}
			if err := invalidateRemote(cmd.Context(), base, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config cache invalidated on %s.\n", base)
			return nil
		},
	}
	invalidateCmd.Flags().StringVar(&server, "server", "", "admin API base URL (default http://<admin.listen_addr>)")
	return invalidateCmd
}

// invalidateRemote calls the invalidate endpoint of a running server. token
// is sent as a bearer token when set.
func invalidateRemote(ctx context.Context, base, token string) error {
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	url := strings.TrimRight(base, "/") + "/api/v1/humanizer/config/invalidate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach admin API: %w", err)
	}
	defer resp.Body.Close()

	var envelope adminapi.Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		observability.GetLogger().Debug("Undecodable admin API reply", zap.Int("status", resp.StatusCode), zap.Error(err))
	}
	if resp.StatusCode != http.StatusOK {
		if envelope.Error != "" {
			return fmt.Errorf("admin API returned %d: %s", resp.StatusCode, envelope.Error)
		}
		return fmt.Errorf("admin API returned %d", resp.StatusCode)
	}
	return nil
}

func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config document: %w", err)
	}
	return settingsfile.ToJSON(data, path)
}

// writeRawDocument pretty-prints a stored document, or prints it verbatim if
// it is not valid JSON.
func writeRawDocument(w io.Writer, raw string) error {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		_, err = fmt.Fprintln(w, raw)
		return err
	}
	return writeIndentedJSON(w, v)
}
