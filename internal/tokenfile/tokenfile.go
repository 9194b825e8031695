// Package tokenfile persists the Dropbox refresh token between runs. Dropbox
// may rotate refresh tokens; the newest one is saved here so a restart does
// not fall back to a revoked value from the environment.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// File is the on-disk format. ClientID records which app the token belongs
// to, so switching apps does not reuse a foreign token.
type File struct {
	Token    *oauth2.Token `json:"token"`
	ClientID string        `json:"client_id"`
	SavedAt  time.Time     `json:"saved_at"`
}

// RefreshToken returns the stored refresh token if the file belongs to
// clientID, else "".
func (f *File) RefreshToken(clientID string) string {
	if f == nil || f.Token == nil || f.ClientID != clientID {
		return ""
	}

	return f.Token.RefreshToken
}

// Load reads a saved token file from disk. Returns (nil, nil) if the file
// does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.Token == nil || tf.Token.RefreshToken == "" {
		return nil, fmt.Errorf("tokenfile: %s has no refresh token", path)
	}

	return &tf, nil
}

// Save writes the refresh token for clientID. The access token is not
// persisted; it is short-lived and re-obtained on startup. Never logs
// token values.
func Save(path, clientID, refreshToken string) error {
	tf := File{
		Token:    &oauth2.Token{RefreshToken: refreshToken, TokenType: "bearer"},
		ClientID: clientID,
		SavedAt:  time.Now().UTC(),
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file in the same directory, syncs it,
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}
