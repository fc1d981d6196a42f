package config

import (
	"time"
)

// DefaultConfig is a default relay configuration.
var DefaultConfig = Config{
	Bind:             "0.0.0.0:19132",
	Remote:           "",
	OnlineMode:       true,
	ClientAuth:       true,
	TokenFile:        "token.json",
	TickInterval:     50 * time.Millisecond,
	DialTimeout:      15 * time.Second,
	MaxQueuedPackets: 1000,
	CommandPrefix:    ".",
	Status: Status{
		CacheTTL:    5 * time.Second,
		PingTimeout: 2 * time.Second,
		Fallback:    "Veil relay",
	},
	Quota: QuotaSettings{
		Enabled:    true,
		OPS:        3,
		Burst:      5,
		MaxEntries: 1000,
	},
}

// Config is the configuration of the Bedrock relay.
type Config struct {
	Bind   string // The address the relay listens on for clients.
	Remote string // The default remote server address (host:port).

	OnlineMode bool   // Log in to the remote server with an Xbox Live account.
	ClientAuth bool   // Require clients to be authenticated with Xbox Live.
	TokenFile  string // Where the Xbox Live refresh token is cached.

	TickInterval     time.Duration // Cadence of tick events.
	DialTimeout      time.Duration // Timeout of the remote server handshake.
	MaxQueuedPackets int           // Max packets queued per leg before the connection is closed.
	CommandPrefix    string        // Chat prefix of in-game relay commands. Empty disables them.

	Status Status
	Quota  QuotaSettings // Limits new connections per second, per IP block.

	Debug bool
}

type (
	// Status configures the server list status advertised to clients.
	Status struct {
		CacheTTL    time.Duration // How long a remote pong is reused.
		PingTimeout time.Duration
		Fallback    string // Server name shown when the remote cannot be pinged.
	}
	QuotaSettings struct {
		Enabled    bool    // If false, there is no such limiting.
		OPS        float32 // Allowed operations/events per second, per IP block
		Burst      int     // The maximum events per second, per block; the size of the token bucket
		MaxEntries int     // Maximum number of IP blocks to keep track of in cache
	}
)
