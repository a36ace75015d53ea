package warehouse

import (
	"database/sql"
	"fmt"

	"github.com/snowflakedb/gosnowflake"
)

// Config holds the Snowflake connection settings.
type Config struct {
	Account   string
	User      string
	Password  string
	Role      string
	Warehouse string
	Database  string
	Schema    string
	Table     string
}

// DSN builds the gosnowflake data source name.
func (c Config) DSN() (string, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:     c.Account,
		User:        c.User,
		Password:    c.Password,
		Role:        c.Role,
		Warehouse:   c.Warehouse,
		Database:    c.Database,
		Schema:      c.Schema,
		Application: "covid-dashboard",
	})
	if err != nil {
		return "", fmt.Errorf("failed to build snowflake DSN: %w", err)
	}
	return dsn, nil
}

// Open connects to Snowflake. The connection is established lazily on the
// first query.
func Open(cfg Config) (*Gateway, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake: %w", err)
	}
	db.SetMaxOpenConns(4)

	return NewGateway(db, cfg.Table), nil
}
