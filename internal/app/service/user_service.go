package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"judgehub/internal/common"
	"judgehub/internal/domain/model"
	"judgehub/internal/domain/repository"
	"judgehub/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

const leaderboardCacheKey = "cache:leaderboard"

type UserService struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
	rdb          *redis.Client
}

func NewUserService(userRepo repository.UserRepository, activityRepo repository.ActivityRepository, rdb *redis.Client) *UserService {
	return &UserService{userRepo: userRepo, activityRepo: activityRepo, rdb: rdb}
}

type ProfileResponse struct {
	User           *model.User           `json:"user"`
	ProblemsSolved int                   `json:"problems_solved"`
	RecentActivity []model.DailyActivity `json:"recent_activity"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""

	solved, err := s.activityRepo.CountSolvedProblems(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to count solved problems: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	activity, err := s.activityRepo.ListDailyActivity(ctx, userID, since)
	if err != nil {
		// Non-critical display data; degrade to an empty list.
		log.Printf("WARN: Failed to load recent activity for user %s: %v", userID, err)
		activity = nil
	}

	return &ProfileResponse{User: user, ProblemsSolved: solved, RecentActivity: activity}, nil
}

// GetLeaderboard serves from the Redis cache when possible; cache failures
// only cost the caching, never the response.
func (s *UserService) GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	if cached, err := s.rdb.Get(ctx, leaderboardCacheKey).Result(); err == nil {
		var entries []model.LeaderboardEntry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return entries, nil
		}
		log.Printf("WARN: Discarding unreadable leaderboard cache entry: %v", err)
	}

	entries, err := s.activityRepo.GetLeaderboard(ctx, config.AppConfig.LeaderboardLimit)
	if err != nil {
		return nil, common.Errorf("failed to load leaderboard: %w", err)
	}

	if payload, err := json.Marshal(entries); err == nil {
		if err := s.rdb.Set(ctx, leaderboardCacheKey, payload, config.AppConfig.LeaderboardCacheTTL).Err(); err != nil {
			log.Printf("WARN: Failed to cache leaderboard: %v", err)
		}
	}
	return entries, nil
}
