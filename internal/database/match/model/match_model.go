package model

import "time"

type Status string

const (
	StatusOngoing  Status = "ONGOING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

type Match struct {
	ID         string    `json:"id"`
	Currency   string    `json:"currency"`
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Hint       string    `json:"hint"`
	PotAmount  int64     `json:"potAmount"`
	Status     Status    `json:"status"`
	WinnerRole string    `json:"winnerRole,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	EndTime    time.Time `json:"endTime,omitempty"`
}

// Player is a durable seat record. Only human-backed seats are persisted,
// bot seats live in memory for the lifetime of the match.
type Player struct {
	MatchID        string `json:"matchId"`
	UserID         string `json:"userId"`
	Role           string `json:"role"`
	IsDead         bool   `json:"isDead"`
	RoundsSurvived int    `json:"roundsSurvived"`
	Winnings       int64  `json:"winnings"`
}

type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MatchID   string    `json:"matchId"`
	Type      string    `json:"type"`
	Currency  string    `json:"currency"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	TransactionTypePayout = "PAYOUT"
	TransactionTypeStake  = "STAKE"

	TransactionStatusPending = "PENDING"
)
