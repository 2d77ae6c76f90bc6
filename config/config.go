// Package config loads the service settings from the environment (optionally a .env file)
// and the catalog of regions, cake types and users from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cakeworks/cake-sales/models"
)

// Config holds the application configuration. It is built once in main and passed down.
type Config struct {
	DatabaseURL   string
	JWTSecret     string
	Port          string
	LogMode       string
	ForecastSeed  int64
	ForecastTrees int
	CatalogFile   string
	GeminiAPIKey  string
	GeminiModel   string
}

// Load reads a .env file when present and then the process environment.
// JWT_SECRET is required; everything else has a default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:   String("DATABASE_URL", "memory"),
		JWTSecret:     String("JWT_SECRET", ""),
		Port:          String("PORT", "3000"),
		LogMode:       String("LOG_MODE", "development"),
		ForecastSeed:  int64(Int("FORECAST_SEED", 42)),
		ForecastTrees: Int("FORECAST_TREES", 100),
		CatalogFile:   String("CATALOG_FILE", ""),
		GeminiAPIKey:  String("GEMINI_API_KEY", ""),
		GeminiModel:   String("GEMINI_MODEL", "gemini-1.5-flash"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	if cfg.ForecastTrees <= 0 {
		return Config{}, fmt.Errorf("FORECAST_TREES must be positive, got %d", cfg.ForecastTrees)
	}
	return cfg, nil
}

// String returns the trimmed value of name, or def when it is unset or blank.
func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Int returns the integer value of name, or def when it is unset or not a number.
func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Catalog lists the regions and cake types to register at startup and the users allowed to log in.
type Catalog struct {
	Regions   []string      `yaml:"regions"`
	CakeTypes []string      `yaml:"cake_types"`
	Users     []models.User `yaml:"users"`
}

// DefaultCatalog is used when no catalog file is configured. It has no users.
func DefaultCatalog() Catalog {
	return Catalog{
		Regions:   []string{"Whitehouse", "Ngomongo", "Kiamunyi", "Kabachia"},
		CakeTypes: []string{"Heart Cakes", "Coconut Cakes", "Mobile Cakes", "Block Cakes", "Star Cakes", "Queen Cakes", "Sweet Cakes"},
	}
}

// LoadCatalog reads a catalog file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, u := range c.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return Catalog{}, fmt.Errorf("catalog user %d: username and password_hash are required", i)
		}
	}
	return c, nil
}

// FindUser returns the catalog user with the given name.
func (c Catalog) FindUser(username string) (models.User, bool) {
	for _, u := range c.Users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}
