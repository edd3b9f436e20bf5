package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PoolConfig configures the Postgres connection pool backing a Store.
// Field names and defaults mirror the teacher's Database config
// (serv/config.go), trimmed to what a Postgres-only Rule Store needs.
type PoolConfig struct {
	ConnString string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	Schema     string
	AppName    string

	PoolSize        int
	MaxConnections  int
	MaxConnIdleTime time.Duration
	MaxConnLifeTime time.Duration

	EnableTLS  bool
	ServerName string
	ServerCert string // PEM text or a file path
	ClientCert string
	ClientKey  string
}

// Open builds a *sql.DB over the jackc/pgx/v5 stdlib driver and waits
// (with backoff) for the database to accept connections, matching
// serv/db.go's newDB retry loop.
func Open(ctx context.Context, conf PoolConfig, log *zap.Logger) (*sql.DB, error) {
	connString, err := buildConnString(conf)
	if err != nil {
		return nil, errors.Wrap(err, "store: build connection string")
	}

	var db *sql.DB
	for attempt := 0; ; attempt++ {
		db, err = sql.Open("pgx", connString)
		if err == nil {
			db.SetMaxIdleConns(conf.PoolSize)
			db.SetMaxOpenConns(conf.MaxConnections)
			db.SetConnMaxIdleTime(conf.MaxConnIdleTime)
			db.SetConnMaxLifetime(conf.MaxConnLifeTime)

			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				err = pingErr
				db.Close() //nolint:errcheck
				if log != nil {
					log.Warn("store: database ping failed", zap.Error(pingErr), zap.Int("attempt", attempt))
				}
			}
		} else if log != nil {
			log.Warn("store: database open failed", zap.Error(err), zap.Int("attempt", attempt))
		}

		if attempt >= 50 {
			return nil, errors.Wrap(err, "store: database unreachable")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt*100) * time.Millisecond):
		}
	}
}

func buildConnString(conf PoolConfig) (string, error) {
	var config *pgx.ConnConfig
	var err error

	if conf.ConnString != "" {
		config, err = pgx.ParseConfig(conf.ConnString)
		if err != nil {
			return "", fmt.Errorf("parse connection string: %w", err)
		}
	} else {
		config, err = pgx.ParseConfig("")
		if err != nil {
			return "", err
		}
		config.Host = conf.Host
		config.Port = uint16(conf.Port)
		config.User = conf.User
		config.Password = conf.Password
		config.Database = conf.DBName
	}

	if config.RuntimeParams == nil {
		config.RuntimeParams = map[string]string{}
	}
	if conf.Schema != "" {
		config.RuntimeParams["search_path"] = conf.Schema
	}
	if conf.AppName != "" {
		config.RuntimeParams["application_name"] = conf.AppName
	}

	if conf.EnableTLS {
		if conf.ServerName == "" {
			return "", errors.New("store: tls.server_name is required")
		}
		rootCertPool := x509.NewCertPool()
		var pem []byte
		if strings.Contains(conf.ServerCert, "-----BEGIN") {
			pem = []byte(strings.ReplaceAll(conf.ServerCert, `\n`, "\n"))
		} else {
			pem, err = os.ReadFile(conf.ServerCert)
			if err != nil {
				return "", fmt.Errorf("store: tls: read server cert: %w", err)
			}
		}
		if !rootCertPool.AppendCertsFromPEM(pem) {
			return "", errors.New("store: tls: failed to append server cert pem")
		}
		tlsConf := &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    rootCertPool,
			ServerName: conf.ServerName,
		}
		if conf.ClientCert != "" {
			cert, err := tls.X509KeyPair(
				[]byte(strings.ReplaceAll(conf.ClientCert, `\n`, "\n")),
				[]byte(strings.ReplaceAll(conf.ClientKey, `\n`, "\n")),
			)
			if err != nil {
				return "", fmt.Errorf("store: tls: client key pair: %w", err)
			}
			tlsConf.Certificates = []tls.Certificate{cert}
		}
		config.TLSConfig = tlsConf
	}

	return stdlib.RegisterConnConfig(config), nil
}

// Migrate applies Schema. Safe to call repeatedly: every statement is
// "IF NOT EXISTS".
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "store: migrate")
	}
	return nil
}
