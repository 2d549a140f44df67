package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meeting-summary-service/internal/app"
	"meeting-summary-service/internal/output"
)

func NewIngestCmd(deps *Dependencies) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Transcribe and summarize an existing audio file",
		Long:  "Runs an existing recording through transcription (chunked when it is large) and the summary relay,\nthen prints the resulting link.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			formatter := output.NewFormatter(os.Stdout)
			if quiet {
				formatter = output.NewFormatter(io.Discard)
			}

			a, err := deps.NewApp(ctx, app.Options{})
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				return err
			}
			defer a.Shutdown()

			if err := a.Controller.Ingest(ctx, args[0]); err != nil {
				return err
			}
			s, err := follow(ctx, a.Controller, formatter)
			if err != nil {
				return err
			}
			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), s.ResultURL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the result link")

	return cmd
}
