package model

import "time"

type Submission struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProblemID string    `json:"problem_id"`
	SQLText   string    `json:"sql_text"`
	CreatedAt time.Time `json:"created_at"`
}
