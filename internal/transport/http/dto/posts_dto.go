package dto

import "time"

type CreatePostRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Professions string `json:"professions,omitempty"`
	Skills      string `json:"skills,omitempty"`
	Categories  string `json:"categories,omitempty"`
	ImageKey    string `json:"image_key,omitempty"`
}

type UpdatePostRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Professions *string `json:"professions,omitempty"`
	Skills      *string `json:"skills,omitempty"`
	Categories  *string `json:"categories,omitempty"`
	ImageKey    *string `json:"image_key,omitempty"`
}

type PostResponse struct {
	ID            int64     `json:"id"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner_username,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Professions   string    `json:"professions,omitempty"`
	Skills        string    `json:"skills,omitempty"`
	Categories    string    `json:"categories,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PostListResponse struct {
	Posts []PostResponse `json:"posts"`
}

type DeletePostResponse struct {
	OK bool `json:"ok"`
}
