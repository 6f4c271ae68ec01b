// Package sqlstore implements storage.UnitOfWork on MySQL or PostgreSQL through sqlx.
package sqlstore

import (
	"context"
	"embed"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Driver string

const (
	MySQL    Driver = "mysql"
	Postgres Driver = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported storage driver")

//go:embed migrations
var migrations embed.FS

type Config struct {
	Driver         Driver
	Host           string
	User           string
	Password       string
	Name           string
	MaxConnections int
}

func Open(ctx context.Context, config Config) (*sqlx.DB, error) {
	driverName, dsn, err := dataSource(config)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s connection", config.Driver)
	}
	if config.MaxConnections > 0 {
		db.SetMaxOpenConns(config.MaxConnections)
		db.SetMaxIdleConns(config.MaxConnections)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s", config.Driver)
	}
	return db, nil
}

func dataSource(config Config) (driverName, dsn string, err error) {
	switch config.Driver {
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = config.User
		cfg.Passwd = config.Password
		cfg.Net = "tcp"
		cfg.Addr = config.Host
		cfg.DBName = config.Name
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.MultiStatements = true
		// Report matched rows so an update that changes nothing is not mistaken for a missing row.
		cfg.ClientFoundRows = true
		return "mysql", cfg.FormatDSN(), nil
	case Postgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(config.User, config.Password),
			Host:     config.Host,
			Path:     "/" + config.Name,
			RawQuery: "sslmode=disable",
		}
		return "pgx", u.String(), nil
	}
	return "", "", errors.Wrapf(ErrUnsupportedDriver, "%q", config.Driver)
}

// Migrate applies the embedded schema migrations for the driver db was opened with.
func Migrate(db *sqlx.DB) error {
	var (
		dir      string
		instance database.Driver
		err      error
	)
	switch db.DriverName() {
	case "mysql":
		dir = "migrations/mysql"
		instance, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case "pgx":
		dir = "migrations/postgres"
		instance, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	default:
		return errors.Wrapf(ErrUnsupportedDriver, "%q", db.DriverName())
	}
	if err != nil {
		return errors.Wrap(err, "could not create migration driver")
	}

	source, err := iofs.New(migrations, dir)
	if err != nil {
		return errors.Wrap(err, "could not open migrations")
	}
	m, err := migrate.NewWithInstance("iofs", source, db.DriverName(), instance)
	if err != nil {
		return errors.Wrap(err, "could not create migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "could not run migrations")
	}
	return nil
}
