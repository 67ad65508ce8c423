package pool

import "time"

// Config tunes the pool's per-target and per-connection caps. Defaults
// mirror original_source/server/src/config.rs (max_session_per_target=10,
// max_channel_per_session=10).
type Config struct {
	MaxSessionsPerTarget   int
	MaxChannelsPerSession  int
	MaxSftpPerSession      int
	ConnectAuthTimeout     time.Duration
	IdleSessionGraceperiod time.Duration
}

// DefaultConfig returns the same tuning the original implementation shipped
// with, before any user override.
func DefaultConfig() Config {
	return Config{
		MaxSessionsPerTarget:   10,
		MaxChannelsPerSession:  10,
		MaxSftpPerSession:      10,
		ConnectAuthTimeout:     30 * time.Second,
		IdleSessionGraceperiod: 10 * time.Minute,
	}
}

// Merge fills zero-valued fields of c with defaults, mirroring
// kittipat1413-go-common/framework/sftp/config.go's MergeConfig pattern.
func (c Config) Merge(defaults Config) Config {
	if c.MaxSessionsPerTarget <= 0 {
		c.MaxSessionsPerTarget = defaults.MaxSessionsPerTarget
	}
	if c.MaxChannelsPerSession <= 0 {
		c.MaxChannelsPerSession = defaults.MaxChannelsPerSession
	}
	if c.MaxSftpPerSession <= 0 {
		c.MaxSftpPerSession = defaults.MaxSftpPerSession
	}
	if c.ConnectAuthTimeout <= 0 {
		c.ConnectAuthTimeout = defaults.ConnectAuthTimeout
	}
	if c.IdleSessionGraceperiod <= 0 {
		c.IdleSessionGraceperiod = defaults.IdleSessionGraceperiod
	}
	return c
}
