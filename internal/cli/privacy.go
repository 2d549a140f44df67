package cli

import (
	"os"

	"github.com/spf13/cobra"

	"meeting-summary-service/internal/output"
	"meeting-summary-service/internal/service/audio"
)

func NewPrivacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "privacy",
		Short: "Open the system microphone privacy settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.NewSystemSettingsOpener().OpenPrivacySettings(cmd.Context()); err != nil {
				return err
			}
			output.NewFormatter(os.Stdout).Info("Opened microphone privacy settings")
			return nil
		},
	}
}
