package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	FindByID(ctx context.Context, id string) (*model.Playlist, error)
	ListByUser(ctx context.Context, userID string) ([]model.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddProblem(ctx context.Context, playlistID, problemID string) error
	RemoveProblem(ctx context.Context, playlistID, problemID string) error
	GetProblems(ctx context.Context, playlistID string) ([]model.Problem, error)
}

type pgPlaylistRepository struct {
	db *sql.DB
}

func NewPgPlaylistRepository(db *sql.DB) PlaylistRepository {
	return &pgPlaylistRepository{db: db}
}

func (r *pgPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	query := `INSERT INTO playlists (id, user_id, name, description) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, playlist.ID, playlist.UserID, playlist.Name, playlist.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("playlist with this name already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgPlaylistRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) FindByID(ctx context.Context, id string) (*model.Playlist, error) {
	query := `SELECT id, user_id, name, description, created_at, updated_at FROM playlists WHERE id = $1`
	playlist := &model.Playlist{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&playlist.ID, &playlist.UserID, &playlist.Name, &playlist.Description, &playlist.CreatedAt, &playlist.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPlaylistRepository.FindByID: %w", err)
	}
	return playlist, nil
}

func (r *pgPlaylistRepository) ListByUser(ctx context.Context, userID string) ([]model.Playlist, error) {
	query := `SELECT id, user_id, name, description, created_at, updated_at
	          FROM playlists WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		var p model.Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgPlaylistRepository.ListByUser scan: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.ListByUser rows.Err: %w", err)
	}
	return playlists, nil
}

func (r *pgPlaylistRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgPlaylistRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgPlaylistRepository) AddProblem(ctx context.Context, playlistID, problemID string) error {
	query := `INSERT INTO playlist_problems (playlist_id, problem_id) VALUES ($1, $2)
	          ON CONFLICT (playlist_id, problem_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, playlistID, problemID)
	if err != nil {
		return fmt.Errorf("pgPlaylistRepository.AddProblem: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) RemoveProblem(ctx context.Context, playlistID, problemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM playlist_problems WHERE playlist_id = $1 AND problem_id = $2`, playlistID, problemID)
	if err != nil {
		return fmt.Errorf("pgPlaylistRepository.RemoveProblem: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) GetProblems(ctx context.Context, playlistID string) ([]model.Problem, error) {
	query := `SELECT p.id, p.title, p.slug, p.description, p.difficulty, p.status, p.created_by, p.created_at, p.updated_at
	          FROM problems p
	          JOIN playlist_problems pp ON pp.problem_id = p.id
	          WHERE pp.playlist_id = $1
	          ORDER BY pp.added_at ASC`
	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.GetProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.Status,
			&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgPlaylistRepository.GetProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPlaylistRepository.GetProblems rows.Err: %w", err)
	}
	return problems, nil
}
