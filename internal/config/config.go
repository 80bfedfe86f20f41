// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SecretKeySize is the required length of the decoded DXKIT_SECRET_KEY.
const SecretKeySize = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AuthURL       *url.URL
	ForumURL      *url.URL
	CurriculumURL *url.URL
	DataDir       string
	CacheDir      string
	DBPath        string
	SecretKey     []byte
	CacheExpiry   time.Duration
	HTTPTimeout   time.Duration
	ListenAddr    string
	LogLevel      slog.Level
}

// HasSecretKey returns true when DXKIT_SECRET_KEY was provided. Without it the
// credential cannot be persisted and the app runs logged out.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) == SecretKeySize
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Service URLs default to the public FDUHole
// deployment, directories to the user's config and cache directories.
// DXKIT_SECRET_KEY, when set, must be the base64 encoding of 32 bytes.
func Load() (*Config, error) {
	authURL, err := lookupURL("DXKIT_AUTH_URL", "https://auth.fduhole.com")
	if err != nil {
		return nil, err
	}
	forumURL, err := lookupURL("DXKIT_FORUM_URL", "https://forum.fduhole.com")
	if err != nil {
		return nil, err
	}
	curriculumURL, err := lookupURL("DXKIT_CURRICULUM_URL", "https://danke.fduhole.com")
	if err != nil {
		return nil, err
	}

	dataDir, err := lookupDir("DXKIT_DATA_DIR", os.UserConfigDir)
	if err != nil {
		return nil, err
	}
	cacheDir, err := lookupDir("DXKIT_CACHE_DIR", os.UserCacheDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "dxkit.db")
	if v, ok := os.LookupEnv("DXKIT_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("DXKIT_SECRET_KEY"); ok && v != "" {
		secretKey, err = base64.StdEncoding.DecodeString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("DXKIT_SECRET_KEY is not valid base64: %w", err)
		}
		if len(secretKey) != SecretKeySize {
			return nil, fmt.Errorf("DXKIT_SECRET_KEY must decode to %d bytes, got %d", SecretKeySize, len(secretKey))
		}
	}

	cacheExpiry, err := lookupDuration("DXKIT_CACHE_EXPIRY", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := lookupDuration("DXKIT_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	listenAddr := "127.0.0.1:8731"
	if v, ok := os.LookupEnv("DXKIT_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("DXKIT_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("DXKIT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return &Config{
		AuthURL:       authURL,
		ForumURL:      forumURL,
		CurriculumURL: curriculumURL,
		DataDir:       dataDir,
		CacheDir:      cacheDir,
		DBPath:        dbPath,
		SecretKey:     secretKey,
		CacheExpiry:   cacheExpiry,
		HTTPTimeout:   httpTimeout,
		ListenAddr:    listenAddr,
		LogLevel:      logLevel,
	}, nil
}

func lookupURL(key, fallback string) (*url.URL, error) {
	v := fallback
	if s, ok := os.LookupEnv(key); ok && s != "" {
		v = s
	}
	u, err := url.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%s has invalid URL %q: %w", key, v, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, v)
	}
	return u, nil
}

func lookupDir(key string, userDir func() (string, error)) (string, error) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	base, err := userDir()
	if err != nil {
		return "", fmt.Errorf("%s not set and no default directory: %w", key, err)
	}
	return filepath.Join(base, "dxkit"), nil
}

func lookupDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, v)
	}
	return d, nil
}
