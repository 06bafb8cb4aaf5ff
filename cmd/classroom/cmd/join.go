package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"github.com/NaveenKathirM/smartclassroom/internal/config"
	"github.com/NaveenKathirM/smartclassroom/internal/session"
	"github.com/NaveenKathirM/smartclassroom/internal/ui"
)

var (
	flagJoinDomain   string
	flagJoinName     string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinRelay    bool
)

var joinCmd = &cobra.Command{
	Use:     "join <room-code|link>",
	Aliases: []string{"j"},
	Short:   "Join a live presentation as a viewer",
	Long: `Join a teacher's presentation using the shared room code.

Examples:
  classroom join curious-botany-telescope
  classroom join https://classroom.naveenk.dev/session/curious-botany-telescope`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return joinPresentation(roomID)
	},
}

func joinPresentation(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:      flagJoinDomain,
		DisplayName: flagJoinName,
		STUNServer:  flagJoinSTUN,
		TURNServer:  flagJoinTURN,
		TURNUser:    flagJoinTURNUser,
		TURNPass:    flagJoinTURNPass,
		ForceRelay:  flagJoinRelay,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")

	onTrack := func(track *pion.TrackRemote) {
		ui.PrintSuccessf("Receiving %s from the presenter", track.Kind())
	}
	ctrl := session.New(cfg, session.PionFactory(cfg, nil, onTrack))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	peers, err := ctrl.Join(ctx, roomID)
	stopSpinner()
	if err != nil {
		return err
	}

	rows := make([]ui.RosterRow, 0, len(peers))
	for i, id := range peers {
		role := "viewer"
		if i == 0 {
			// The room creator is always first in join order.
			role = "presenter"
		}
		rows = append(rows, ui.RosterRow{PeerID: id, Role: role, Status: "present"})
	}
	ui.RenderRoster(rows)
	ui.PrintInfo("Waiting for the presenter's stream. Type to chat, Ctrl+C to leave.")

	return runInteractive(ctrl)
}

func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room code cannot be empty")
	}

	if strings.Contains(input, "://") || strings.Contains(input, ".") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		ui.PrintSuccessf("Extracted room code: %s", roomID)
		return roomID, nil
	}

	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "session" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room code from URL: %s", urlStr)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "Custom relay domain")
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name for chat")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVarP(&flagJoinRelay, "relay", "r", false, "Force relay mode")
}
