package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default configuration values (production)
const (
	DefaultDomain      = "classroom.naveenk.dev"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultTURN        = "" // Optional, empty by default
	DefaultTURNUser    = ""
	DefaultTURNPass    = ""
	DefaultAnswerWait  = 30 * time.Second
	DefaultDisplayName = "Guest"
)

// Config holds application configuration
type Config struct {
	// Domain is the relay server domain
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// DisplayName is the name shown next to chat messages
	DisplayName string

	// AnswerWait bounds how long a negotiation waits for the remote answer
	AnswerWait time.Duration

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain      string
	DisplayName string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := firstNonEmpty(opts.Domain, os.Getenv("DOMAIN"), DefaultDomain)
	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)
	name := firstNonEmpty(opts.DisplayName, os.Getenv("CLASSROOM_NAME"), DefaultDisplayName)

	answerWait := DefaultAnswerWait
	if v := os.Getenv("ANSWER_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid ANSWER_TIMEOUT_SECONDS: %q", v)
		}
		answerWait = time.Duration(secs) * time.Second
	}

	// Local relays are addressed by host:port, everything else goes over wss
	scheme := "wss"
	if os.Getenv("INSECURE_WS") == "1" {
		scheme = "ws"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", scheme, domain)

	return &Config{
		Domain:       domain,
		WebSocketURL: wsURL,
		DisplayName:  name,
		AnswerWait:   answerWait,
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetRoomLink returns the shareable URL for a room code
func (c *Config) GetRoomLink(roomID string) string {
	return fmt.Sprintf("https://%s/session/%s", c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
