// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package sqlstore provides read-only access to relational stores.
//
// A Store wraps a gorm connection pool for one configured target. Every Query
// acquires a dedicated connection from the pool and releases it before
// returning, whether the query succeeded or not. Queries use "?" placeholders,
// which the dialect rebinds (e.g., to $1 for Postgres). Slice arguments are
// expanded, so "name IN ?" with a []string binds one parameter per element.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Kind is the engine kind of a store target.
type Kind string

const (
	// KindPostgres is a PostgreSQL store, accessed through pgx.
	KindPostgres Kind = "postgres"
	// KindMySQL is a MySQL store.
	KindMySQL Kind = "mysql"
	// KindSQLite is a SQLite database file.
	KindSQLite Kind = "sqlite"
)

// ParseKind parses an engine kind. "postgresql" is accepted as an alias for "postgres".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql":
		return KindPostgres, nil
	case "mysql":
		return KindMySQL, nil
	case "sqlite", "sqlite3":
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("unknown database kind %q, must be one of: postgres, mysql, sqlite", s)
	}
}

// Target describes how to reach one named store.
type Target struct {
	// Name is the logical name of the target (e.g., "dxcore").
	Name string
	// Kind is the engine kind.
	Kind Kind
	// Host is the host name, optionally without port.
	Host string
	// Port is the TCP port. Zero selects the engine default.
	Port int
	// Database is the database name, or the file path for SQLite.
	Database string
	// User is the login name.
	User string
	// Password is the login password.
	Password string
	// SSLMode is the Postgres sslmode parameter. Empty leaves the driver default.
	SSLMode string
}

// DSN returns the driver data source name for the target.
func (t Target) DSN() (string, error) {
	switch t.Kind {
	case KindPostgres:
		dsnURL := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(t.User, t.Password),
			Host:   hostPort(t.Host, t.Port, 5432),
			Path:   "/" + t.Database,
		}
		if t.SSLMode != "" {
			dsnURL.RawQuery = url.Values{"sslmode": []string{t.SSLMode}}.Encode()
		}
		return dsnURL.String(), nil
	case KindMySQL:
		mysqlConfig := mysql.NewConfig()
		mysqlConfig.User = t.User
		mysqlConfig.Passwd = t.Password
		mysqlConfig.Net = "tcp"
		mysqlConfig.Addr = hostPort(t.Host, t.Port, 3306)
		mysqlConfig.DBName = t.Database
		mysqlConfig.ParseTime = true
		return mysqlConfig.FormatDSN(), nil
	case KindSQLite:
		if t.Database == "" {
			return "", errors.New("sqlite target requires a database file path")
		}
		return t.Database, nil
	default:
		return "", fmt.Errorf("unsupported database kind %q", t.Kind)
	}
}

// Querier executes read-only queries.
type Querier interface {
	// Query executes the query with the bound args and returns every row.
	//
	// Returns a *ConnectionError if no connection could be acquired and a
	// *QueryError if the store rejected the query.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Store executes read-only queries against one target.
type Store interface {
	Querier
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection pool.
	Close() error
}

// Observer receives the outcome of every query.
type Observer interface {
	ObserveQuery(target string, duration time.Duration, err error)
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*store)

// StoreWithObserver sets an Observer notified after each query.
func StoreWithObserver(observer Observer) StoreOption {
	return func(s *store) {
		s.observer = observer
	}
}

// Open opens a connection pool for the target and verifies it is reachable.
//
// Returns a *ConnectionError if the pool cannot be opened or pinged.
func Open(ctx context.Context, logger *slog.Logger, target Target, options ...StoreOption) (Store, error) {
	dsn, err := target.DSN()
	if err != nil {
		return nil, err
	}
	var dialector gorm.Dialector
	switch target.Kind {
	case KindPostgres:
		dialector = postgres.Open(dsn)
	case KindMySQL:
		dialector = gormmysql.Open(dsn)
	case KindSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database kind %q", target.Kind)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, &ConnectionError{Target: target.Name, Err: err}
	}
	s := &store{
		logger: logger,
		target: target,
		db:     db,
	}
	for _, option := range options {
		option(s)
	}
	if err := s.Ping(ctx); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	logger.Debug("database connected", "target", target.Name, "kind", string(target.Kind))
	return s, nil
}

// *** PRIVATE ***

type store struct {
	logger   *slog.Logger
	target   Target
	db       *gorm.DB
	observer Observer
}

func (s *store) Query(ctx context.Context, query string, args ...any) (_ []Row, retErr error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveQuery(s.target.Name, time.Since(start), retErr)
		}
	}()
	var result []Row
	if err := s.db.WithContext(ctx).Connection(func(conn *gorm.DB) (retErr error) {
		rows, err := conn.Raw(query, args...).Rows()
		if err != nil {
			return err
		}
		defer func() {
			retErr = errors.Join(retErr, rows.Close())
		}()
		result, err = scanRows(rows)
		return err
	}); err != nil {
		return nil, classifyError(s.target.Name, err)
	}
	s.logger.Debug("query executed", "target", s.target.Name, "rows", len(result), "duration", time.Since(start))
	return result, nil
}

func (s *store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &ConnectionError{Target: s.target.Name, Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &ConnectionError{Target: s.target.Name, Err: err}
	}
	return nil
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// hostPort joins host and port, leaving a host that already carries a port untouched.
func hostPort(host string, port int, defaultPort int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
