package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	PlayerID  string
	IDFile    string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL: getEnvOrDefault("TREASON_SERVER", "http://localhost:8080"),
		PlayerID:  os.Getenv("TREASON_PLAYER_ID"),
		IDFile:    getEnvOrDefault("TREASON_ID_FILE", defaultIDFile()),
		Output:    "text",
		Verbose:   false,
	}
}

// LoadPlayerID loads the remembered player id from file if not already set
func (c *Config) LoadPlayerID() error {
	if c.PlayerID != "" {
		return nil
	}

	data, err := os.ReadFile(c.IDFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // First run
		}
		return err
	}

	c.PlayerID = strings.TrimSpace(string(data))
	return nil
}

// SavePlayerID remembers the server-confirmed player id for next time
func (c *Config) SavePlayerID(id string) error {
	c.PlayerID = id

	dir := filepath.Dir(c.IDFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.IDFile, []byte(id), 0600)
}

func defaultIDFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".treason/player-id"
	}
	return filepath.Join(home, ".treason", "player-id")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
