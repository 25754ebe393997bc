package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
)

type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDefaultSchema() string
}

type Database struct{}

var _ DatabaseConfig = Database{}

// GetDatabaseURL returns the Postgres DSN. DATABASE_URL wins; otherwise
// the URL is assembled from the individual DATABASE_* variables.
func (Database) GetDatabaseURL() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		return dsn
	}
	return defaultDatabaseURL()
}

func (Database) GetDefaultSchema() string {
	return GetEnv("DATABASE_DEFAULT_SCHEMA", "public")
}

func defaultDatabaseURL() string {
	user := GetEnv("DATABASE_USER", "doflow")
	password := os.Getenv("DATABASE_PASSWORD")
	host := GetEnv("DATABASE_HOST", "localhost")
	port := GetEnv("DATABASE_PORT", "5432")
	if _, err := strconv.Atoi(port); err != nil {
		port = "5432"
	}
	dbName := GetEnv("DATABASE_NAME", "doflow")
	sslmode := GetEnv("DATABASE_SSLMODE", "disable")

	uri := &url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   "/" + dbName,
	}
	if password != "" {
		uri.User = url.UserPassword(user, password)
	} else {
		uri.User = url.User(user)
	}
	q := uri.Query()
	q.Set("sslmode", sslmode)
	uri.RawQuery = q.Encode()
	return uri.String()
}
