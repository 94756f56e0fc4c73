package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediajob/internal/logging"
)

type runSummary struct {
	Name     string `json:"name"`
	Format   string `json:"format,omitempty"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Cached   bool   `json:"cached"`
	Output   string `json:"output,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var sha string
	var output string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "run <token>",
		Short: "Apply a job token and write its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := loadSignedJob(ctx, args[0], sha)
			if err != nil {
				return err
			}
			defer j.Close()
			rt, err := ctx.ensureRuntime()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd.Context())
			runCtx := logging.WithJobSHA(cmd.Context(), sha)

			var (
				src     io.ReadCloser
				summary runSummary
			)
			if rt.Cache != nil && !noCache {
				entry, hit, err := rt.Cache.Resolve(runCtx, j)
				if err != nil {
					return err
				}
				file, err := os.Open(entry.DataPath())
				if err != nil {
					return fmt.Errorf("open cached output: %w", err)
				}
				src = file
				summary = runSummary{
					Name:     entry.Attrs.Name,
					Format:   entry.Attrs.Format,
					MimeType: entry.Attrs.MimeType,
					Size:     entry.SizeBytes,
					Cached:   hit,
				}
			} else {
				obj, err := j.Content(runCtx)
				if err != nil {
					return err
				}
				if src, err = obj.Reader(); err != nil {
					return err
				}
				if summary.Size, err = obj.Size(); err != nil {
					src.Close()
					return err
				}
				if summary.Name, err = j.Name(runCtx); err != nil {
					src.Close()
					return err
				}
				if summary.Format, err = j.Format(runCtx); err != nil {
					src.Close()
					return err
				}
				if summary.MimeType, err = j.MimeType(runCtx); err != nil {
					src.Close()
					return err
				}
			}
			defer src.Close()

			dest := cmd.OutOrStdout()
			if output == "" && binaryToTerminal(dest, summary.MimeType) {
				return fmt.Errorf("refusing to write %s output to a terminal (use -o)", summary.MimeType)
			}
			if output != "" {
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				dest = file
				summary.Output = output
			}
			written, err := io.Copy(dest, src)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info("job applied",
				logging.String("name", summary.Name),
				logging.String("format", summary.Format),
				logging.String("mime_type", summary.MimeType),
				logging.Int64("bytes", written),
				logging.Bool("cached", summary.Cached),
			)
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%s, %s, cached: %s)\n",
					output, summary.Name, summary.MimeType, humanBytes(written), yesNo(summary.Cached))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sha, "sha", "", "Token signature (required when a secret is configured)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Apply the job without consulting the job cache")
	return cmd
}
