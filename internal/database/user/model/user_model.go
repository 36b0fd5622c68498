package model

import "time"

type Status uint8

const (
	StatusActive Status = iota + 1
	StatusBanned
)

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	WalletAddr  string    `json:"walletAddr"`
	Status      Status    `json:"status"`
	TotalSolWon int64     `json:"totalSolWon"`
	TotalSkrWon int64     `json:"totalSkrWon"`
	CreatedAt   time.Time `json:"createdAt"`
}
