package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names. The credential names match the .env files the
// chat bot deployment already uses.
const (
	EnvConfig       = "FSA_CONFIG"
	EnvRefreshToken = "REFRESH_TOKEN"
	EnvClientID     = "CLIENT_ID"
	EnvClientSecret = "CLIENT_SECRET"
	EnvAccessToken  = "CURRENT_ACCESS_TOKEN"
	EnvAdminID      = "ADMIN_ID"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // FSA_CONFIG: override config file path
	AdminID    string // ADMIN_ID: team member to act as (select_user)
}

// Credentials is the secret material read from the environment. Never log it.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		AdminID:    os.Getenv(EnvAdminID),
	}
}

// ReadCredentials reads the Dropbox app and token credentials.
func ReadCredentials() Credentials {
	return Credentials{
		AccessToken:  os.Getenv(EnvAccessToken),
		RefreshToken: os.Getenv(EnvRefreshToken),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
	}
}

// LoadEnvFile seeds the process environment from a dotenv file. Variables
// already set in the environment win. With an empty path, ".env" in the
// working directory is loaded if present; an explicit path must exist.
func LoadEnvFile(path string) error {
	if path == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}

	return nil
}
