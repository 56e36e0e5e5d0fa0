package dto

import "time"

type MatchResponse struct {
	ID           int64  `json:"id"`
	ProjectID    int64  `json:"project_id"`
	WithUserID   string `json:"with_user_id"`
	WithUsername string `json:"with_username,omitempty"`
}

type MatchListItem struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	ProjectName  string    `json:"project_name"`
	WithUserID   string    `json:"with_user_id"`
	WithUsername string    `json:"with_username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type MatchListResponse struct {
	Matches []MatchListItem `json:"matches"`
}

type UnmatchResponse struct {
	OK bool `json:"ok"`
}
