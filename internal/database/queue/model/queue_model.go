package model

import "time"

type Entry struct {
	UserID   string    `json:"userId"`
	Currency string    `json:"currency"`
	JoinedAt time.Time `json:"joinedAt"`
}
