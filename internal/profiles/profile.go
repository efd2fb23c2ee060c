// Package profiles keeps the approval state of dashboard users.
package profiles

import (
	"errors"
	"strings"
	"time"
)

// Role is the privilege level of a profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RolePending Role = "pending"
)

// Status is the approval state of a profile.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

var (
	ErrInvalidRole   = errors.New("profiles: invalid role")
	ErrInvalidStatus = errors.New("profiles: invalid status")
)

// ParseRole accepts a role name regardless of case and surrounding whitespace.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RoleAdmin, RoleUser, RolePending:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}

// ParseStatus accepts a status name regardless of case and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	switch status := Status(strings.ToLower(strings.TrimSpace(raw))); status {
	case StatusActive, StatusInactive, StatusPending:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Profile is the persisted approval record of one identity.
type Profile struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex" json:"user_id"`
	Email     string    `gorm:"column:email;size:320" json:"email"`
	Name      *string   `gorm:"column:name;size:320" json:"name"`
	AvatarURL *string   `gorm:"column:avatar_url;size:512" json:"avatar_url"`
	Role      Role      `gorm:"column:role;size:16;not null;default:pending" json:"role"`
	Status    Status    `gorm:"column:status;size:16;not null;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName exposes the table backing profiles.
func (Profile) TableName() string {
	return "user_profiles"
}

// Active reports whether the profile may use the dashboard.
func (p Profile) Active() bool {
	return p.Status == StatusActive
}

// Admin reports whether the profile may manage other profiles.
func (p Profile) Admin() bool {
	return p.Role == RoleAdmin && p.Status == StatusActive
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
