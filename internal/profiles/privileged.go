package profiles

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// AdminCapability proves that its holder passed the admin check of the issuing
// service. Only GrantAdmin creates one.
type AdminCapability struct {
	adminID string
	issuer  *Service
}

// AdminID returns the user id of the admin the capability was granted to.
func (c AdminCapability) AdminID() string {
	return c.adminID
}

// GrantAdmin returns a capability when userID has an active admin profile.
func (s *Service) GrantAdmin(ctx context.Context, userID string) (AdminCapability, error) {
	profile, err := s.Lookup(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return AdminCapability{}, newServiceError(opGrantAdmin, "admin_required", ErrAdminRequired)
	}
	if err != nil {
		return AdminCapability{}, err
	}
	if !profile.Admin() {
		return AdminCapability{}, newServiceError(opGrantAdmin, "admin_required", ErrAdminRequired)
	}
	return AdminCapability{adminID: profile.UserID, issuer: s}, nil
}

// AccessUpdate lists the fields an admin may change. Nil fields are left as they are.
type AccessUpdate struct {
	Role   *Role
	Status *Status
}

// ListAll returns every profile, newest first.
func (s *Service) ListAll(ctx context.Context, capability AdminCapability) ([]Profile, error) {
	if err := s.checkCapability(capability); err != nil {
		return nil, newServiceError(opListAll, "invalid_capability", err)
	}
	var profiles []Profile
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&profiles).Error; err != nil {
		s.logError(opListAll, "query_failed", err)
		return nil, newServiceError(opListAll, "query_failed", err)
	}
	return profiles, nil
}

// UpdateAccess sets role and status of the target profile and refreshes updated_at.
func (s *Service) UpdateAccess(ctx context.Context, capability AdminCapability, targetUserID string, update AccessUpdate) (Profile, error) {
	if err := s.checkCapability(capability); err != nil {
		return Profile{}, newServiceError(opUpdateAccess, "invalid_capability", err)
	}
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return Profile{}, newServiceError(opUpdateAccess, "missing_user_id", errMissingUserID)
	}

	changes := map[string]any{"updated_at": s.clock().UTC()}
	if update.Role != nil {
		changes["role"] = *update.Role
	}
	if update.Status != nil {
		changes["status"] = *update.Status
	}
	result := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("user_id = ?", targetUserID).
		Updates(changes)
	if result.Error != nil {
		s.logError(opUpdateAccess, "update_failed", result.Error, zap.String("target_user_id", targetUserID))
		return Profile{}, newServiceError(opUpdateAccess, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Profile{}, newServiceError(opUpdateAccess, "not_found", ErrProfileNotFound)
	}

	profile, err := s.find(ctx, targetUserID)
	if err != nil {
		s.logError(opUpdateAccess, "reload_failed", err, zap.String("target_user_id", targetUserID))
		return Profile{}, newServiceError(opUpdateAccess, "reload_failed", err)
	}
	s.logger.Info("profile access updated",
		zap.String("admin_user_id", capability.adminID),
		zap.String("target_user_id", targetUserID),
		zap.String("role", string(profile.Role)),
		zap.String("status", string(profile.Status)),
	)
	return profile, nil
}

func (s *Service) checkCapability(capability AdminCapability) error {
	if capability.issuer != s || capability.adminID == "" {
		return ErrInvalidCapability
	}
	return nil
}
