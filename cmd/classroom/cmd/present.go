package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NaveenKathirM/smartclassroom/internal/config"
	"github.com/NaveenKathirM/smartclassroom/internal/session"
	"github.com/NaveenKathirM/smartclassroom/internal/ui"
)

var (
	flagDomain   string
	flagName     string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var presentCmd = &cobra.Command{
	Use:     "present",
	Aliases: []string{"p"},
	Short:   "Start a live presentation and share the room code",
	Long: `Start broadcasting audio/video to students over WebRTC.

Examples:
  classroom present
  classroom present --name "Ms. Kathir"
  classroom present --domain relay.example.com --relay`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startPresentation()
	},
}

func startPresentation() error {
	cfg, err := config.Load(config.Options{
		Domain:      flagDomain,
		DisplayName: flagName,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		ForceRelay:  flagRelay,
	})
	if err != nil {
		return err
	}

	// Local media is acquired before anything touches the network; a
	// capture failure is fatal to starting the presentation.
	tracks, err := session.PresenterTracks()
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")

	ctrl := session.New(cfg, session.PionFactory(cfg, tracks, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	roomID, err := ctrl.Present(ctx)
	stopSpinner()
	if err != nil {
		return err
	}

	fmt.Println(ui.RoomBox(roomID, cfg.GetRoomLink(roomID)))
	ui.PrintInfo("Waiting for students. Type to chat, /who for the roster, Ctrl+C to end.")

	return runInteractive(ctrl)
}

func init() {
	rootCmd.AddCommand(presentCmd)

	presentCmd.Flags().StringVar(&flagDomain, "domain", "", "Custom relay domain")
	presentCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name for chat")
	presentCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	presentCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	presentCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	presentCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	presentCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}
