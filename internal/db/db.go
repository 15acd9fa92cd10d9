package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/model"
)

// DB wraps a pgx connection pool for account operations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool (e.g. for repositories built on the same pool; migrations open their own connection).
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// GetAccount retrieves an account by login.
// Returns nil, nil if the account does not exist.
func (d *DB) GetAccount(ctx context.Context, login string) (*model.Account, error) {
	login = strings.ToLower(login)
	var acc model.Account
	err := d.pool.QueryRow(ctx,
		`SELECT login, password, access_level, last_server, last_ip, last_active
		 FROM accounts WHERE login = $1`, login,
	).Scan(&acc.Login, &acc.PasswordHash, &acc.AccessLevel, &acc.LastServer, &acc.LastIP, &acc.LastActive)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}
	return &acc, nil
}

// CreateAccount inserts a new account with the given password hash.
func (d *DB) CreateAccount(ctx context.Context, login, passwordHash, ip string) error {
	login = strings.ToLower(login)
	_, err := d.pool.Exec(ctx,
		`INSERT INTO accounts (login, password, last_active, access_level, last_ip)
		 VALUES ($1, $2, $3, 0, $4)`,
		login, passwordHash, time.Now(), ip,
	)
	if err != nil {
		return fmt.Errorf("creating account %q: %w", login, err)
	}
	slog.Info("auto-created account", "login", login)
	return nil
}

// UpdateLastLogin updates last_active and last_ip on successful login.
func (d *DB) UpdateLastLogin(ctx context.Context, login, ip string) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE accounts SET last_active = $1, last_ip = $2 WHERE login = $3`,
		time.Now(), ip, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("updating last login for %q: %w", login, err)
	}
	return nil
}

// UpdateAccessLevel sets an account's access level.
func (d *DB) UpdateAccessLevel(ctx context.Context, login string, level int32) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE accounts SET access_level = $1 WHERE login = $2`,
		level, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("updating access level for %q: %w", login, err)
	}
	return nil
}

// UpdateLastServer updates the last_server field for the account.
func (d *DB) UpdateLastServer(ctx context.Context, login string, serverID int) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE accounts SET last_server = $1 WHERE login = $2`,
		serverID, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("updating last server for %q: %w", login, err)
	}
	return nil
}

// ListGameServers returns the persisted game-server roster, implementing
// gameserver.RowLoader so GameServerTable can preload stable IDs across
// login-server restarts.
func (d *DB) ListGameServers(ctx context.Context) ([]gameserver.ServerRow, error) {
	rows, err := d.pool.Query(ctx, `SELECT server_id, hex_id FROM game_servers`)
	if err != nil {
		return nil, fmt.Errorf("listing game servers: %w", err)
	}
	defer rows.Close()

	var out []gameserver.ServerRow
	for rows.Next() {
		var row gameserver.ServerRow
		if err := rows.Scan(&row.ID, &row.HexID); err != nil {
			return nil, fmt.Errorf("scanning game server row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game servers: %w", err)
	}
	return out, nil
}

// UpsertGameServer persists a game server's chosen ID and hex identity key
// so it gets the same ID back after a login-server restart.
func (d *DB) UpsertGameServer(ctx context.Context, serverID int, hexID []byte) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO game_servers (server_id, hex_id) VALUES ($1, $2)
		 ON CONFLICT (server_id) DO UPDATE SET hex_id = EXCLUDED.hex_id`,
		serverID, hexID,
	)
	if err != nil {
		return fmt.Errorf("upserting game server %d: %w", serverID, err)
	}
	return nil
}
