package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NaveenKathirM/smartclassroom/internal/ui"
	"github.com/NaveenKathirM/smartclassroom/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "classroom",
	Short:   "Broadcast or join a live classroom presentation over WebRTC",
	Long:    `Classroom lets a teacher broadcast live audio/video plus a chat channel to students who join with a shared room code. Media flows peer to peer; only negotiation and chat pass through the signaling relay.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
