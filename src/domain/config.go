package domain

import "time"

const (
	ConfigFileName      = "config.yaml"
	GuildConfigFileName = "config.json"
	LogFileName         = "storage/log.txt"
	TokenEnvVar         = "DISCORD_TOKEN"
)

type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Quiet   QuietSettings `yaml:"quiet"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type DiscordConfig struct {
	Token         string `yaml:"token"`
	CommandPrefix string `yaml:"command_prefix"`
	DadJokes      bool   `yaml:"dad_jokes"`
}

type QuietSettings struct {
	ConfigFile     string        `yaml:"config_file"`
	Timezone       string        `yaml:"timezone"`
	NoticeCooldown time.Duration `yaml:"notice_cooldown"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	SweepWorkers   int           `yaml:"sweep_workers"`
}

type StorageConfig struct {
	// NoticesDB enables the bbolt-backed notice ledger when set.
	NoticesDB string `yaml:"notices_db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() Config {
	return Config{
		Discord: DiscordConfig{
			CommandPrefix: "$",
			DadJokes:      true,
		},
		Quiet: QuietSettings{
			ConfigFile:     GuildConfigFileName,
			Timezone:       "Local",
			NoticeCooldown: 30 * time.Minute,
			SweepInterval:  time.Minute,
			SweepWorkers:   4,
		},
		Log: LogConfig{
			Level: "info",
			File:  LogFileName,
		},
	}
}

// Location returns the time zone quiet windows are evaluated in.
func (q QuietSettings) Location() (*time.Location, error) {
	if q.Timezone == "" || q.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(q.Timezone)
}
