package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the engine.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	MigrationsPath string

	// Optional bracket snapshot archive (any S3-compatible store). Archival
	// is disabled when ArchiveBucketName is empty.
	ArchiveEndpoint        string
	ArchiveRegion          string
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string
	ArchiveBucketName      string
	ArchivePublicBaseURL   string
}

// Load reads configuration from environment variables. A .env file is
// loaded first if present; its absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}

	return &Config{
		DatabaseURL:    dbURL,
		JWTSecretKey:   jwtKey,
		ServerPort:     port,
		MigrationsPath: migrationsPath,

		ArchiveEndpoint:        os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveRegion:          os.Getenv("ARCHIVE_S3_REGION"),
		ArchiveAccessKeyID:     os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID"),
		ArchiveSecretAccessKey: os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY"),
		ArchiveBucketName:      os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchivePublicBaseURL:   os.Getenv("ARCHIVE_S3_PUBLIC_BASE_URL"),
	}, nil
}
