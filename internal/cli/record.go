package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meeting-summary-service/internal/app"
	"meeting-summary-service/internal/output"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var maxDuration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting, then transcribe and summarize it",
		Long:  "Records from the microphone until Ctrl+C (or --duration), then runs the recording through\ntranscription and the summary relay. A second Ctrl+C aborts processing; the recording stays on disk.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			a, err := deps.NewApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			if err := a.Start(cmd.Context()); err != nil {
				return err
			}
			defer a.Shutdown()

			recCtx, stopRec := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stopRec()
			if maxDuration > 0 {
				var cancel context.CancelFunc
				recCtx, cancel = context.WithTimeout(recCtx, maxDuration)
				defer cancel()
			}

			if err := a.Controller.Start(cmd.Context()); err != nil {
				return err
			}
			started := time.Now()
			formatter.RecordingStarted(a.Controller.Snapshot().SourcePath)

			<-recCtx.Done()
			stopRec()
			formatter.RecordingStopped(time.Since(started))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.Controller.Stop(ctx); err != nil {
				return err
			}
			_, err = follow(ctx, a.Controller, formatter)
			return err
		},
	}

	cmd.Flags().DurationVarP(&maxDuration, "duration", "d", 0, "Stop recording automatically after this long (0 = until Ctrl+C)")

	return cmd
}
