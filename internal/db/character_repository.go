package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/la2go/internal/gameserver"
	"github.com/udisondev/la2go/internal/idfactory"
)

// PostgresCharacterRepository implements gameserver.CharacterRepository.
type PostgresCharacterRepository struct {
	pool *pgxpool.Pool
	ids  *idfactory.Factory
}

// NewPostgresCharacterRepository creates a new PostgreSQL-backed
// repository. ids mints the object IDs new characters are created with,
// and gets released entries back when a character is soft-deleted.
func NewPostgresCharacterRepository(pool *pgxpool.Pool, ids *idfactory.Factory) *PostgresCharacterRepository {
	return &PostgresCharacterRepository{pool: pool, ids: ids}
}

// ListCharacters returns the account's non-deleted characters, ordered by slot.
func (r *PostgresCharacterRepository) ListCharacters(ctx context.Context, account string) ([]gameserver.CharacterSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT object_id, slot, name, level, class_id, race, sex
		 FROM characters WHERE account = $1 AND delete_at IS NULL
		 ORDER BY slot`, account,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters for %q: %w", account, err)
	}
	defer rows.Close()

	var out []gameserver.CharacterSummary
	for rows.Next() {
		var c gameserver.CharacterSummary
		if err := rows.Scan(&c.ObjectID, &c.Slot, &c.Name, &c.Level, &c.ClassID, &c.Race, &c.Sex); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating characters for %q: %w", account, err)
	}
	return out, nil
}

// NameTaken reports whether name is already in use by a non-deleted character.
func (r *PostgresCharacterRepository) NameTaken(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1 AND delete_at IS NULL)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking name %q: %w", name, err)
	}
	return exists, nil
}

// CreateCharacter inserts a new character in the given slot, under an
// object id minted by idfactory.Factory.
func (r *PostgresCharacterRepository) CreateCharacter(ctx context.Context, account string, slot int32, summary gameserver.CharacterSummary) (uint32, error) {
	objectID := r.ids.Next()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO characters (object_id, account, slot, name, level, class_id, race, sex)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		objectID, account, slot, summary.Name, summary.Level, summary.ClassID, summary.Race, summary.Sex,
	)
	if err != nil {
		r.ids.Release(objectID)
		return 0, fmt.Errorf("creating character %q for %q: %w", summary.Name, account, err)
	}
	return objectID, nil
}

// SoftDeleteCharacter stamps delete_at on the character in the given
// slot and releases its object id back to the factory for reuse.
func (r *PostgresCharacterRepository) SoftDeleteCharacter(ctx context.Context, account string, slot int32) error {
	var objectID uint32
	err := r.pool.QueryRow(ctx,
		`UPDATE characters SET delete_at = now() WHERE account = $1 AND slot = $2 AND delete_at IS NULL
		 RETURNING object_id`,
		account, slot,
	).Scan(&objectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("deleting character slot %d for %q: %w", slot, account, err)
	}

	r.ids.Release(objectID)
	return nil
}
