package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"meeting-summary-service/internal/app"
	"meeting-summary-service/internal/config"
	"meeting-summary-service/internal/version"
)

type Dependencies struct {
	Config *config.Configuration
	// NewApp builds the application. Commands that do not touch the
	// pipeline never call it, so they work without a relay endpoint.
	NewApp func(ctx context.Context, opts app.Options) (*app.Application, error)
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meeting-summary",
		Short:         "Record or ingest meetings and turn them into summary links",
		Long:          "Records a meeting (or takes an existing audio file), transcribes it, chunking long recordings,\nand hands the transcript to the summary relay, which answers with a link to the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewIngestCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewPrivacyCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}
