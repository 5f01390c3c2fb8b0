package service

import (
	"context"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"

	"github.com/google/uuid"
)

type PlaylistService struct {
	playlistRepo repository.PlaylistRepository
	problemRepo  repository.ProblemRepository
}

func NewPlaylistService(playlistRepo repository.PlaylistRepository, problemRepo repository.ProblemRepository) *PlaylistService {
	return &PlaylistService{playlistRepo: playlistRepo, problemRepo: problemRepo}
}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *PlaylistService) CreatePlaylist(ctx context.Context, userID string, req CreatePlaylistRequest) (*model.Playlist, error) {
	if req.Name == "" {
		return nil, common.Errorf("playlist name is required: %w", common.ErrValidation)
	}
	playlist := &model.Playlist{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.playlistRepo.Create(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *PlaylistService) ListPlaylists(ctx context.Context, userID string) ([]model.Playlist, error) {
	return s.playlistRepo.ListByUser(ctx, userID)
}

func (s *PlaylistService) GetPlaylist(ctx context.Context, userID, playlistID string) (*model.Playlist, error) {
	playlist, err := s.ownedPlaylist(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	playlist.Problems, err = s.playlistRepo.GetProblems(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

func (s *PlaylistService) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	if _, err := s.ownedPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}
	return s.playlistRepo.Delete(ctx, playlistID)
}

func (s *PlaylistService) AddProblem(ctx context.Context, userID, playlistID, problemID string) error {
	if _, err := s.ownedPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}
	if _, err := s.problemRepo.FindProblemByID(ctx, problemID); err != nil {
		return common.Errorf("problem not found: %w", err)
	}
	return s.playlistRepo.AddProblem(ctx, playlistID, problemID)
}

func (s *PlaylistService) RemoveProblem(ctx context.Context, userID, playlistID, problemID string) error {
	if _, err := s.ownedPlaylist(ctx, userID, playlistID); err != nil {
		return err
	}
	return s.playlistRepo.RemoveProblem(ctx, playlistID, problemID)
}

func (s *PlaylistService) ownedPlaylist(ctx context.Context, userID, playlistID string) (*model.Playlist, error) {
	playlist, err := s.playlistRepo.FindByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist.UserID != userID {
		return nil, common.ErrForbidden
	}
	return playlist, nil
}
