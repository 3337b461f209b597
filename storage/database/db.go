// Package database opens and bootstraps the Postgres instance the
// schools' data lives in.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/migrations"
)

const pingAttempts = 30

// connect opens a connection to dbName. asAdmin switches to the admin
// credentials, used only while bootstrapping the app user and database.
func connect(dbName string, asAdmin bool, conf *core.Config) (*sql.DB, error) {
	creds := url.UserPassword(conf.Database.User, conf.Database.Password)
	if asAdmin && conf.Database.AdminUser != "" {
		creds = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	query := url.Values{}
	if conf.Database.DisableTLS {
		query.Set("sslmode", "disable")
	} else {
		query.Set("sslmode", "require")
	}
	query.Set("timezone", "utc")

	dsn := url.URL{
		Scheme:   conf.Database.Engine,
		User:     creds,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: query.Encode(),
	}
	return sql.Open(conf.Database.Engine, dsn.String())
}

// Open connects to the application database with the app credentials.
func Open(conf *core.Config) (*sql.DB, error) {
	return connect(conf.Database.Name, false, conf)
}

// waitReady pings until the database answers, backing off 100ms more
// per attempt.
func waitReady(db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

func roleExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT true FROM pg_roles WHERE rolname = $1", name).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return exists, err
}

func databaseExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT true FROM pg_database WHERE datname = $1", name).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return exists, err
}

// CreateIfNotExist bootstraps the app role and the database on a fresh
// Postgres instance. Safe to run on every startup.
func CreateIfNotExist(conf *core.Config) error {
	admin, err := connect("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = admin.Close() }()

	if err = waitReady(admin); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if conf.Database.User != "" {
		exists, err := roleExists(admin, conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !exists {
			// CREATE USER takes no bind parameters
			stmt := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'",
				conf.Database.User, conf.Database.Password)
			if _, err = admin.Exec(stmt); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	// the app user owns the database it creates
	db, err := connect("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	exists, err := databaseExists(db, conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !exists {
		if _, err = db.Exec("CREATE DATABASE " + conf.Database.Name); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate applies the embedded goose migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(db, "."); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
