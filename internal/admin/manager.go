// Package admin implements user management for dashboard administrators.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/groupscope/dashboard/internal/profiles"
	"go.uber.org/zap"
)

// ErrInvalidRequest wraps malformed update payloads.
var ErrInvalidRequest = errors.New("admin: invalid request")

// Gate is the subset of the profile service the manager relies on.
type Gate interface {
	GrantAdmin(ctx context.Context, userID string) (profiles.AdminCapability, error)
	ListAll(ctx context.Context, capability profiles.AdminCapability) ([]profiles.Profile, error)
	UpdateAccess(ctx context.Context, capability profiles.AdminCapability, targetUserID string, update profiles.AccessUpdate) (profiles.Profile, error)
}

// Manager lists and updates profiles on behalf of an admin caller.
type Manager struct {
	gate   Gate
	logger *zap.Logger
}

// NewManager builds a Manager.
func NewManager(gate Gate, logger *zap.Logger) (*Manager, error) {
	if gate == nil {
		return nil, errors.New("admin: profile gate required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{gate: gate, logger: logger}, nil
}

// UpdateRequest is the payload of an access change.
type UpdateRequest struct {
	UserID string  `json:"user_id"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// ListUsers returns every profile when callerID is an active admin.
func (m *Manager) ListUsers(ctx context.Context, callerID string) ([]profiles.Profile, error) {
	capability, err := m.gate.GrantAdmin(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return m.gate.ListAll(ctx, capability)
}

// UpdateUser changes role and status of the target profile. The admin check runs
// before the payload is looked at.
func (m *Manager) UpdateUser(ctx context.Context, callerID string, request UpdateRequest) (profiles.Profile, error) {
	capability, err := m.gate.GrantAdmin(ctx, callerID)
	if err != nil {
		return profiles.Profile{}, err
	}

	update, err := request.accessUpdate()
	if err != nil {
		return profiles.Profile{}, err
	}
	target := strings.TrimSpace(request.UserID)
	if target == "" {
		return profiles.Profile{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	profile, err := m.gate.UpdateAccess(ctx, capability, target, update)
	if err != nil {
		return profiles.Profile{}, err
	}
	m.logger.Debug("admin updated user", zap.String("admin_user_id", callerID), zap.String("target_user_id", target))
	return profile, nil
}

func (r UpdateRequest) accessUpdate() (profiles.AccessUpdate, error) {
	var update profiles.AccessUpdate
	if r.Role != nil {
		role, err := profiles.ParseRole(*r.Role)
		if err != nil {
			return update, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		update.Role = &role
	}
	if r.Status != nil {
		status, err := profiles.ParseStatus(*r.Status)
		if err != nil {
			return update, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		update.Status = &status
	}
	return update, nil
}
