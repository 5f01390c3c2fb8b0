package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateStreak(ctx context.Context, tx *sql.Tx, userID string, streak int, lastActive time.Time) error
	ResetExpiredStreaks(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, hashed_password, role, streak, last_active, created_at, updated_at`

func (r *pgUserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.Streak, &user.LastActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, err
}

// UpdateStreak is the single write path for streak/last_active; everything
// else only reads these fields.
func (r *pgUserRepository) UpdateStreak(ctx context.Context, tx *sql.Tx, userID string, streak int, lastActive time.Time) error {
	query := `UPDATE users SET streak = $1, last_active = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, streak, lastActive, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, streak, lastActive, userID)
	}
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateStreak: %w", err)
	}
	return nil
}

// ResetExpiredStreaks zeroes the streak of every user whose last_active
// predates the cutoff. Safe to run repeatedly.
func (r *pgUserRepository) ResetExpiredStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE users SET streak = 0, updated_at = CURRENT_TIMESTAMP
	          WHERE streak <> 0 AND (last_active IS NULL OR last_active < $1)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pgUserRepository.ResetExpiredStreaks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgUserRepository.ResetExpiredStreaks rows affected: %w", err)
	}
	return n, nil
}
