package models

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type User struct {
	UserID      string     `json:"user_id" db:"user_id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	Email       string     `json:"email" db:"email"`
	PhoneNumber *string    `json:"phone_number" db:"phone_number"`
	Status      UserStatus `json:"status" db:"status"`
	LastSeen    *time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
