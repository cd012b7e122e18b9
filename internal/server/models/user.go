package models

import "time"

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	IsVerified   bool
	Role         string
	CreatedAt    time.Time
}
