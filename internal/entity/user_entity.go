package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	Status    string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsDeleted bool
}
