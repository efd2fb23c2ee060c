package profiles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/groupscope/dashboard/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var noOpLogger = zap.NewNop()

// ServiceConfig describes the dependencies of the profile gate.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service resolves, creates and authorizes profiles.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the profile gate.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// Ensure returns the caller's profile, creating a pending one on first sight. The
// boolean reports whether this call created the row.
func (s *Service) Ensure(ctx context.Context, identity auth.Identity) (Profile, bool, error) {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return Profile{}, false, newServiceError(opEnsure, "missing_user_id", errMissingUserID)
	}

	existing, err := s.find(ctx, userID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opEnsure, "select_failed", err, zap.String("user_id", userID))
		return Profile{}, false, newServiceError(opEnsure, "select_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opEnsure, "id_generation_failed", err, zap.String("user_id", userID))
		return Profile{}, false, newServiceError(opEnsure, "id_generation_failed", err)
	}
	now := s.clock().UTC()
	profile := Profile{
		ID:        id,
		UserID:    userID,
		Email:     strings.TrimSpace(identity.Email),
		Name:      optional(identity.Name),
		AvatarURL: optional(identity.AvatarURL),
		Role:      RolePending,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&profile)
	if result.Error != nil {
		s.logError(opEnsure, "insert_failed", result.Error, zap.String("user_id", userID))
		return Profile{}, false, newServiceError(opEnsure, "insert_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		winner, err := s.find(ctx, userID)
		if err != nil {
			s.logError(opEnsure, "reload_failed", err, zap.String("user_id", userID))
			return Profile{}, false, newServiceError(opEnsure, "reload_failed", err)
		}
		return winner, false, nil
	}

	s.logger.Info("profile created",
		zap.String("user_id", userID),
		zap.String("profile_id", profile.ID),
	)
	return profile, true, nil
}

// Lookup returns the profile of userID.
func (s *Service) Lookup(ctx context.Context, userID string) (Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, newServiceError(opLookup, "missing_user_id", errMissingUserID)
	}
	profile, err := s.find(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, newServiceError(opLookup, "not_found", ErrProfileNotFound)
	}
	if err != nil {
		s.logError(opLookup, "select_failed", err, zap.String("user_id", userID))
		return Profile{}, newServiceError(opLookup, "select_failed", err)
	}
	return profile, nil
}

// Authorize admits callers with an active profile. Missing and pending profiles yield
// ErrApprovalRequired; deactivated ones yield ErrInactive.
func (s *Service) Authorize(ctx context.Context, userID string) (Profile, error) {
	profile, err := s.Lookup(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return Profile{}, newServiceError(opAuthorize, "approval_required", ErrApprovalRequired)
	}
	if err != nil {
		return Profile{}, err
	}
	switch profile.Status {
	case StatusActive:
		return profile, nil
	case StatusInactive:
		return profile, newServiceError(opAuthorize, "inactive", ErrInactive)
	default:
		return profile, newServiceError(opAuthorize, "approval_required", ErrApprovalRequired)
	}
}

func (s *Service) find(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&profile).Error
	return profile, err
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("profiles service error", attrs...)
}
