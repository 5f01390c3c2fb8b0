package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"` // Not exposed
	Role           string     `json:"role"`
	Streak         int        `json:"streak"`
	LastActive     *time.Time `json:"last_active,omitempty"` // day-truncated; nil until first accepted submission
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	ProblemsSolved int    `json:"problems_solved"`
	Streak         int    `json:"streak"`
}
