package profiles

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/groupscope/dashboard/internal/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("profile-%d", p.next), nil
}

func openProfileDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "profiles.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&Profile{}); err != nil {
		testContext.Fatalf("failed to migrate profile schema: %v", err)
	}
	return database
}

func newTestService(testContext *testing.T, database *gorm.DB, logger *zap.Logger) *Service {
	testContext.Helper()
	service, err := NewService(ServiceConfig{
		Database:   database,
		Clock:      func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
		IDProvider: &sequenceIDProvider{},
		Logger:     logger,
	})
	if err != nil {
		testContext.Fatalf("failed to create service: %v", err)
	}
	return service
}

func seedProfile(testContext *testing.T, database *gorm.DB, userID string, role Role, status Status, createdAt time.Time) {
	testContext.Helper()
	profile := Profile{
		ID:        "seed-" + userID,
		UserID:    userID,
		Email:     userID + "@example.com",
		Role:      role,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := database.Create(&profile).Error; err != nil {
		testContext.Fatalf("failed to seed profile: %v", err)
	}
}

func TestEnsureCreatesPendingProfileOnce(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	core, logs := observer.New(zap.InfoLevel)
	service := newTestService(testContext, database, zap.New(core))
	identity := auth.Identity{
		UserID:    "user-1",
		Email:     "lan@example.com",
		Name:      "Lan",
		AvatarURL: "https://cdn.example.com/lan.png",
	}

	profile, created, err := service.Ensure(context.Background(), identity)
	if err != nil {
		testContext.Fatalf("ensure failed: %v", err)
	}
	if !created {
		testContext.Fatalf("expected profile to be created")
	}
	if profile.Role != RolePending || profile.Status != StatusPending {
		testContext.Fatalf("expected pending profile, got role=%s status=%s", profile.Role, profile.Status)
	}
	if profile.Name == nil || *profile.Name != "Lan" {
		testContext.Fatalf("expected name to be copied, got %v", profile.Name)
	}

	again, created, err := service.Ensure(context.Background(), identity)
	if err != nil {
		testContext.Fatalf("second ensure failed: %v", err)
	}
	if created || again.ID != profile.ID {
		testContext.Fatalf("expected existing profile, got created=%v id=%s", created, again.ID)
	}

	var count int64
	if err := database.Model(&Profile{}).Where("user_id = ?", "user-1").Count(&count).Error; err != nil {
		testContext.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected exactly one profile, found %d", count)
	}
	if logs.FilterMessage("profile created").Len() != 1 {
		testContext.Fatalf("expected a single creation log entry")
	}
}

func TestEnsureReturnsWinnerOfConcurrentInsert(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	service := newTestService(testContext, database, nil)

	raced := false
	err := database.Callback().Create().Before("gorm:create").Register("test:concurrent_login", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		competing := tx.Session(&gorm.Session{NewDB: true}).Exec(
			`INSERT INTO user_profiles (id, user_id, email, role, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			"winner", "user-2", "", RolePending, StatusPending, time.Unix(0, 0).UTC(), time.Unix(0, 0).UTC(),
		)
		if competing.Error != nil {
			tx.AddError(competing.Error)
		}
	})
	if err != nil {
		testContext.Fatalf("failed to register callback: %v", err)
	}

	profile, created, err := service.Ensure(context.Background(), auth.Identity{UserID: "user-2"})
	if err != nil {
		testContext.Fatalf("ensure failed: %v", err)
	}
	if created {
		testContext.Fatalf("expected losing insert to report created=false")
	}
	if profile.ID != "winner" {
		testContext.Fatalf("expected the competing row, got %s", profile.ID)
	}
}

func TestEnsureRejectsMissingSubject(testContext *testing.T) {
	service := newTestService(testContext, openProfileDatabase(testContext), nil)
	_, _, err := service.Ensure(context.Background(), auth.Identity{UserID: "  "})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "profiles.ensure.missing_user_id" {
		testContext.Fatalf("expected missing user id service error, got %v", err)
	}
}

func TestAuthorizeGatesOnStatus(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	now := time.Now().UTC()
	seedProfile(testContext, database, "active-user", RoleUser, StatusActive, now)
	seedProfile(testContext, database, "pending-user", RolePending, StatusPending, now)
	seedProfile(testContext, database, "inactive-user", RoleUser, StatusInactive, now)
	service := newTestService(testContext, database, nil)

	if _, err := service.Authorize(context.Background(), "active-user"); err != nil {
		testContext.Fatalf("expected active user to pass, got %v", err)
	}
	if _, err := service.Authorize(context.Background(), "pending-user"); !errors.Is(err, ErrApprovalRequired) {
		testContext.Fatalf("expected approval required, got %v", err)
	}
	if _, err := service.Authorize(context.Background(), "unknown-user"); !errors.Is(err, ErrApprovalRequired) {
		testContext.Fatalf("expected approval required for missing profile, got %v", err)
	}
	if _, err := service.Authorize(context.Background(), "inactive-user"); !errors.Is(err, ErrInactive) {
		testContext.Fatalf("expected inactive error, got %v", err)
	}
}

func TestGrantAdminRequiresActiveAdmin(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	now := time.Now().UTC()
	seedProfile(testContext, database, "admin", RoleAdmin, StatusActive, now)
	seedProfile(testContext, database, "suspended-admin", RoleAdmin, StatusInactive, now)
	seedProfile(testContext, database, "member", RoleUser, StatusActive, now)
	service := newTestService(testContext, database, nil)

	capability, err := service.GrantAdmin(context.Background(), "admin")
	if err != nil {
		testContext.Fatalf("expected admin capability, got %v", err)
	}
	if capability.AdminID() != "admin" {
		testContext.Fatalf("unexpected capability holder %s", capability.AdminID())
	}
	for _, userID := range []string{"suspended-admin", "member", "nobody"} {
		if _, err := service.GrantAdmin(context.Background(), userID); !errors.Is(err, ErrAdminRequired) {
			testContext.Fatalf("expected admin required for %s, got %v", userID, err)
		}
	}
}

func TestPrivilegedOperationsRequireIssuedCapability(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedProfile(testContext, database, "admin", RoleAdmin, StatusActive, base)
	seedProfile(testContext, database, "older", RolePending, StatusPending, base.Add(time.Hour))
	seedProfile(testContext, database, "newer", RolePending, StatusPending, base.Add(2*time.Hour))
	service := newTestService(testContext, database, nil)
	other := newTestService(testContext, database, nil)

	if _, err := service.ListAll(context.Background(), AdminCapability{}); !errors.Is(err, ErrInvalidCapability) {
		testContext.Fatalf("expected empty capability to be rejected, got %v", err)
	}
	foreign, err := other.GrantAdmin(context.Background(), "admin")
	if err != nil {
		testContext.Fatalf("grant failed: %v", err)
	}
	if _, err := service.ListAll(context.Background(), foreign); !errors.Is(err, ErrInvalidCapability) {
		testContext.Fatalf("expected foreign capability to be rejected, got %v", err)
	}

	capability, err := service.GrantAdmin(context.Background(), "admin")
	if err != nil {
		testContext.Fatalf("grant failed: %v", err)
	}
	profiles, err := service.ListAll(context.Background(), capability)
	if err != nil {
		testContext.Fatalf("list failed: %v", err)
	}
	if len(profiles) != 3 || profiles[0].UserID != "newer" || profiles[2].UserID != "admin" {
		testContext.Fatalf("expected newest first, got %+v", profiles)
	}
}

func TestUpdateAccessSetsRoleAndStatus(testContext *testing.T) {
	database := openProfileDatabase(testContext)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	seedProfile(testContext, database, "admin", RoleAdmin, StatusActive, base)
	seedProfile(testContext, database, "member", RolePending, StatusPending, base)
	service := newTestService(testContext, database, nil)
	capability, err := service.GrantAdmin(context.Background(), "admin")
	if err != nil {
		testContext.Fatalf("grant failed: %v", err)
	}

	role, status := RoleUser, StatusActive
	updated, err := service.UpdateAccess(context.Background(), capability, "member", AccessUpdate{Role: &role, Status: &status})
	if err != nil {
		testContext.Fatalf("update failed: %v", err)
	}
	if updated.Role != RoleUser || updated.Status != StatusActive {
		testContext.Fatalf("unexpected profile after update: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)) {
		testContext.Fatalf("expected updated_at to be refreshed, got %v", updated.UpdatedAt)
	}

	inactive := StatusInactive
	updated, err = service.UpdateAccess(context.Background(), capability, "member", AccessUpdate{Status: &inactive})
	if err != nil {
		testContext.Fatalf("partial update failed: %v", err)
	}
	if updated.Role != RoleUser || updated.Status != StatusInactive {
		testContext.Fatalf("expected role to be kept, got %+v", updated)
	}

	if _, err := service.UpdateAccess(context.Background(), capability, "ghost", AccessUpdate{Status: &inactive}); !errors.Is(err, ErrProfileNotFound) {
		testContext.Fatalf("expected not found for missing target, got %v", err)
	}
}

func TestParseRoleAndStatus(testContext *testing.T) {
	if role, err := ParseRole(" Admin "); err != nil || role != RoleAdmin {
		testContext.Fatalf("expected admin role, got %s %v", role, err)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidRole) {
		testContext.Fatalf("expected invalid role, got %v", err)
	}
	if status, err := ParseStatus("PENDING"); err != nil || status != StatusPending {
		testContext.Fatalf("expected pending status, got %s %v", status, err)
	}
	if _, err := ParseStatus("banned"); !errors.Is(err, ErrInvalidStatus) {
		testContext.Fatalf("expected invalid status, got %v", err)
	}
}
