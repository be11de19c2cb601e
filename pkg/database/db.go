package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-rental-go/pkg/config"
)

type Config struct {
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// ConfigFrom maps the application config onto connection settings.
func ConfigFrom(c config.Config) Config {
	max := c.Database.MaxConns
	if max <= 0 {
		max = 5
	}
	timeout := c.Database.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return Config{
		DSN:            c.Database.URL,
		MaxConns:       max,
		Timeout:        timeout,
		TimeZone:       c.Database.TimeZone,
		ClientEncoding: c.Database.ClientEncoding,
	}
}

// Connect opens a *sql.DB and verifies connectivity with a ping. Session
// settings travel in the DSN so every pooled connection gets them.
func Connect(cfg Config) (*sql.DB, error) {
	dsn, err := sessionDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// sessionDSN adds TimeZone and client_encoding as startup options to either
// DSN form lib/pq accepts.
func sessionDSN(cfg Config) (string, error) {
	var opts []string
	if cfg.TimeZone != "" {
		opts = append(opts, "-c TimeZone="+escapeOption(cfg.TimeZone))
	}
	if enc := cfg.ClientEncoding; enc != "" {
		if n := strings.ToUpper(strings.ReplaceAll(enc, "-", "")); n != "UTF8" && n != "UNICODE" {
			return "", fmt.Errorf("client_encoding %q: lib/pq only supports UTF8", enc)
		}
		opts = append(opts, "-c client_encoding=UTF8")
	}
	if len(opts) == 0 {
		return cfg.DSN, nil
	}
	options := strings.Join(opts, " ")

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		u, err := url.Parse(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		q := u.Query()
		if prev := q.Get("options"); prev != "" {
			options = prev + " " + options
		}
		q.Set("options", options)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	quoted := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(options)
	return strings.TrimSpace(cfg.DSN + " options='" + quoted + "'"), nil
}

// escapeOption backslash-escapes spaces inside a -c value.
func escapeOption(v string) string {
	return strings.NewReplacer(`\`, `\\`, " ", `\ `).Replace(v)
}
