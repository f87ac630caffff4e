// Package db provides database connection helpers.
package db

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"

	"jobmate/report-service/internal/config"
	"jobmate/report-service/internal/store"
)

// PostgresURL builds a connection URL from discrete settings, escaping
// user and password.
func PostgresURL(c config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connector parses the settings once and returns a store.Connector that
// opens a new, unpooled connection on every call.
func Connector(c config.PostgresConfig) (store.Connector, error) {
	connCfg, err := pgx.ParseConfig(PostgresURL(c))
	if err != nil {
		return nil, fmt.Errorf("pgx.ParseConfig: %w", err)
	}
	return func(ctx context.Context) (store.Conn, error) {
		conn, err := pgx.ConnectConfig(ctx, connCfg.Copy())
		if err != nil {
			return nil, fmt.Errorf("postgres connect %s:%d: %w", c.Host, c.Port, err)
		}
		return conn, nil
	}, nil
}

// Ping opens one connection, pings and closes it, so misconfiguration is
// caught before the fetch stage spends API quota.
func Ping(ctx context.Context, connect store.Connector) error {
	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}
