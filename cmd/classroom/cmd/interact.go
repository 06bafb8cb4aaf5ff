package cmd

import (
	"bufio"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/NaveenKathirM/smartclassroom/internal/session"
	"github.com/NaveenKathirM/smartclassroom/internal/ui"
)

// runInteractive drives a live session: stdin lines become chat, peer
// status changes and relay-ordered chat are printed as they arrive.
// Returns when the user quits, stdin closes, or the session ends.
func runInteractive(ctrl *session.Controller) error {
	defer ctrl.Leave()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	roster := make(map[string]session.Status)
	events := ctrl.Events()
	messages := ctrl.Messages()

	for {
		select {
		case <-interrupt:
			ui.PrintInfo("Leaving room...")
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/quit":
				return nil
			case line == "/who":
				printRoster(ctrl, roster)
			default:
				ctrl.SendChat(line)
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			handlePeerEvent(ev, roster)

		case m, ok := <-messages:
			if !ok {
				// Both channels close together on teardown.
				ui.PrintWarning("Session ended")
				return nil
			}
			ui.PrintChat(m.User, m.Text)
		}
	}
}

func handlePeerEvent(ev session.PeerEvent, roster map[string]session.Status) {
	switch ev.Status {
	case session.StatusConnecting:
		roster[ev.PeerID] = ev.Status
		ui.PrintInfof("Peer %s: negotiating...", shortPeer(ev.PeerID))
	case session.StatusConnected:
		roster[ev.PeerID] = ev.Status
		ui.PrintSuccessf("Peer %s connected", shortPeer(ev.PeerID))
	case session.StatusFailed:
		delete(roster, ev.PeerID)
		if errors.Is(ev.Err, session.ErrNegotiationTimeout) {
			ui.PrintWarning("Peer " + shortPeer(ev.PeerID) + " did not answer in time")
		} else if ev.Err != nil {
			ui.PrintWarning("Peer " + shortPeer(ev.PeerID) + " failed: " + ev.Err.Error())
		}
	case session.StatusClosed:
		delete(roster, ev.PeerID)
		ui.PrintInfof("Peer %s left", shortPeer(ev.PeerID))
	}
}

func printRoster(ctrl *session.Controller, roster map[string]session.Status) {
	peerRole := "presenter"
	if ctrl.Role() == session.RolePresenter {
		peerRole = "viewer"
	}

	rows := make([]ui.RosterRow, 0, len(roster))
	for id, status := range roster {
		rows = append(rows, ui.RosterRow{PeerID: id, Role: peerRole, Status: string(status)})
	}
	ui.RenderRoster(rows)
}

func shortPeer(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
