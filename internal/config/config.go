package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default configuration values
const (
	DefaultServer     = "localhost:4000"
	DefaultListenAddr = "0.0.0.0:4000"
	DefaultSTUN       = "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"
)

// DefaultInputSocket is where inputd listens unless told otherwise.
var DefaultInputSocket = filepath.Join(os.TempDir(), "remotedesk-input.sock")

// Config holds application configuration
type Config struct {
	// Server is the relay's host:port as seen by peers.
	Server string
	Secure bool

	// WebSocketURL and HealthURL are derived from Server and Secure.
	WebSocketURL string
	HealthURL    string

	// ListenAddr is where serve and host bind the relay.
	ListenAddr string

	// ICE servers for WebRTC
	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string

	// InputSocket is the unix socket of the privileged input process.
	InputSocket string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Server      string
	Secure      bool
	ListenAddr  string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	InputSocket string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := pick(opts.Server, "SERVER", DefaultServer)
	server = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(server, "ws://"), "wss://"), "/")

	secure := opts.Secure
	if !secure {
		if v, ok := os.LookupEnv("SECURE"); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid SECURE value %q: %w", v, err)
			}
			secure = b
		}
	}

	wsScheme, httpScheme := "ws", "http"
	if secure {
		wsScheme, httpScheme = "wss", "https"
	}

	return &Config{
		Server:       server,
		Secure:       secure,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", wsScheme, server),
		HealthURL:    fmt.Sprintf("%s://%s/health", httpScheme, server),
		ListenAddr:   pick(opts.ListenAddr, "LISTEN_ADDR", DefaultListenAddr),
		STUNServers:  splitList(pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN)),
		TURNServer:   pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:     pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:     pick(opts.TURNPass, "TURN_PASSWORD", ""),
		InputSocket:  pick(opts.InputSocket, "INPUT_SOCKET", DefaultInputSocket),
	}, nil
}

// pick returns flag, then the environment variable, then def.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return c.STUNServers
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
