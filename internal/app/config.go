package app

import (
	"time"

	"adsbtrack/internal/config"
)

// Default configuration constants
const (
	DefaultMessageQueue = 4096 // decoded messages buffered between pipeline and tracker
	DefaultShutdownWait = 5 * time.Second
	DefaultLogRetention = 30 // days
)

// Config holds application configuration
type Config struct {
	config.Config
	ConfigPath  string
	ShowVersion bool
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() Config {
	return Config{Config: config.Default()}
}
