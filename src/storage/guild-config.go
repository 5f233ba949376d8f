package storage

import (
	"DadBot/src/domain"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// GuildConfigStore keeps every guild's quiet-time config in one JSON file.
// The file is read fresh on every access and rewritten wholesale on every
// update. Updates are serialised through a single mutex and land on disk via
// rename, so concurrent commands cannot lose each other's writes.
type GuildConfigStore struct {
	path string
	mu   sync.Mutex
}

func NewGuildConfigStore(path string) *GuildConfigStore {
	return &GuildConfigStore{path: path}
}

func (s *GuildConfigStore) Path() string {
	return s.path
}

// Load returns the whole document. A missing file yields an empty document.
func (s *GuildConfigStore) Load() (*domain.RootConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &domain.RootConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read guild config: %w", err)
	}

	var root domain.RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode guild config %s: %w", s.path, err)
	}
	return &root, nil
}

// Guild returns the config of guildID, built-in defaults when it has none.
func (s *GuildConfigStore) Guild(guildID string) (domain.GuildConfig, error) {
	root, err := s.Load()
	if err != nil {
		return domain.GuildConfig{}, err
	}
	if g := root.Guild(guildID); g != nil {
		return *g, nil
	}
	return domain.NewGuildConfig(guildID), nil
}

// UpdateGuild applies fn to the guild's config and saves the document. Nothing
// is written when fn returns an error.
func (s *GuildConfigStore) UpdateGuild(guildID string, fn func(*domain.GuildConfig) error) (domain.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.Load()
	if err != nil {
		return domain.GuildConfig{}, err
	}

	guild := root.EnsureGuild(guildID)
	if err := fn(guild); err != nil {
		return domain.GuildConfig{}, err
	}
	updated := *guild

	if err := s.save(root); err != nil {
		return domain.GuildConfig{}, err
	}
	return updated, nil
}

func (s *GuildConfigStore) save(root *domain.RootConfig) error {
	data, err := json.MarshalIndent(root, "", "    ")
	if err != nil {
		return fmt.Errorf("encode guild config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write guild config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace guild config: %w", err)
	}
	return nil
}
