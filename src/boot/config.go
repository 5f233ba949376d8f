package boot

import (
	"DadBot/src/domain"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads the bot settings from path. A missing file keeps the
// defaults, and the token environment variable wins over the file.
func LoadConfig(path string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	all, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err = yaml.Unmarshal(all, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if token := os.Getenv(domain.TokenEnvVar); token != "" {
		config.Discord.Token = token
	}

	if _, err := config.Quiet.Location(); err != nil {
		return nil, fmt.Errorf("quiet.timezone: %w", err)
	}
	if config.Quiet.SweepInterval <= 0 {
		return nil, fmt.Errorf("quiet.sweep_interval must be positive, got %v", config.Quiet.SweepInterval)
	}
	if config.Quiet.NoticeCooldown < 0 {
		return nil, fmt.Errorf("quiet.notice_cooldown must not be negative, got %v", config.Quiet.NoticeCooldown)
	}

	return &config, nil
}
