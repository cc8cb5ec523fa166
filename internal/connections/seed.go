package connections

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/internal/storage"
	"gopkg.in/yaml.v3"
)

// seedFile represents the structure of the connections seed file.
type seedFile struct {
	Connections []SeedEntry `yaml:"connections"`
}

// SeedEntry is one connection declared in the seed file.
type SeedEntry struct {
	ID          string             `yaml:"id"`
	UserID      string             `yaml:"user_id"`
	Platform    string             `yaml:"platform"`
	Credentials domain.Credentials `yaml:"credentials"`
	Metadata    map[string]string  `yaml:"metadata"`
}

// LoadSeed reads the YAML connections seed file. Ops/dev bootstrap only; in
// production connections arrive through the external connect flow.
func LoadSeed(path string) ([]SeedEntry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("connections file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connections file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode connections file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Connections))
	for i := range file.Connections {
		entry := sanitizeSeedEntry(file.Connections[i])
		if err := validateSeedEntry(entry); err != nil {
			return nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
		pairKey := entry.UserID + "|" + entry.Platform
		if _, dup := seen[pairKey]; dup {
			return nil, fmt.Errorf("duplicate connection for user %q platform %q", entry.UserID, entry.Platform)
		}
		seen[pairKey] = struct{}{}
		file.Connections[i] = entry
	}

	return file.Connections, nil
}

// Apply upserts seed entries into the store as connected rows.
func Apply(ctx context.Context, store storage.Store, entries []SeedEntry) error {
	for _, entry := range entries {
		platform, err := domain.ParsePlatform(entry.Platform)
		if err != nil {
			return err
		}
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		conn := domain.PlatformConnection{
			ID:          id,
			UserID:      entry.UserID,
			Platform:    platform,
			Status:      domain.ConnectionActive,
			Credentials: entry.Credentials,
			Metadata:    entry.Metadata,
		}
		if err := store.PutConnection(ctx, conn); err != nil {
			return fmt.Errorf("seed connection for user %s on %s: %w", entry.UserID, platform, err)
		}
	}
	return nil
}

// sanitizeSeedEntry trims and normalizes the entry fields.
func sanitizeSeedEntry(entry SeedEntry) SeedEntry {
	entry.ID = strings.TrimSpace(entry.ID)
	entry.UserID = strings.TrimSpace(entry.UserID)
	entry.Platform = strings.ToLower(strings.TrimSpace(entry.Platform))
	return entry
}

// validateSeedEntry checks required fields are present.
func validateSeedEntry(entry SeedEntry) error {
	if entry.UserID == "" {
		return errors.New("user_id is required")
	}
	if entry.Platform == "" {
		return errors.New("platform is required")
	}
	if _, err := domain.ParsePlatform(entry.Platform); err != nil {
		return err
	}
	if err := entry.Credentials.Validate(); err != nil {
		return fmt.Errorf("credentials for user %q: %w", entry.UserID, err)
	}
	return nil
}
