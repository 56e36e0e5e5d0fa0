package dto

import "time"

type CreateTaskRequest struct {
	Title      string `json:"title"`
	Details    string `json:"details,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	Details    *string `json:"details,omitempty"`
	Status     *string `json:"status,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
	ClearDue   bool    `json:"clear_due,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

type TaskResponse struct {
	ID         int64     `json:"id"`
	MatchID    int64     `json:"match_id"`
	Title      string    `json:"title"`
	Details    string    `json:"details,omitempty"`
	Status     string    `json:"status"`
	DueDate    string    `json:"due_date,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

type CreateDeadlineRequest struct {
	Title   string `json:"title"`
	Notes   string `json:"notes,omitempty"`
	DueDate string `json:"due_date"`
	DueTime string `json:"due_time,omitempty"`
}

type DeadlineResponse struct {
	ID        int64     `json:"id"`
	MatchID   int64     `json:"match_id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	DueDate   string    `json:"due_date"`
	DueTime   string    `json:"due_time,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type DeadlineListResponse struct {
	Deadlines []DeadlineResponse `json:"deadlines"`
}

type DeadlineSummaryResponse struct {
	DueSoon int `json:"due_soon"`
	Overdue int `json:"overdue"`
	Total   int `json:"total"`
}

type BoardDeleteResponse struct {
	OK bool `json:"ok"`
}
