package admin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/groupscope/dashboard/internal/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newManagerFixture(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "admin.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&profiles.Profile{}))

	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	seed := []profiles.Profile{
		{ID: "p1", UserID: "admin", Role: profiles.RoleAdmin, Status: profiles.StatusActive, CreatedAt: created, UpdatedAt: created},
		{ID: "p2", UserID: "member", Role: profiles.RoleUser, Status: profiles.StatusActive, CreatedAt: created.Add(time.Minute), UpdatedAt: created},
		{ID: "p3", UserID: "newcomer", Role: profiles.RolePending, Status: profiles.StatusPending, CreatedAt: created.Add(time.Hour), UpdatedAt: created},
	}
	require.NoError(t, database.Create(&seed).Error)

	service, err := profiles.NewService(profiles.ServiceConfig{Database: database})
	require.NoError(t, err)
	manager, err := NewManager(service, nil)
	require.NoError(t, err)
	return manager, database
}

func stringPointer(value string) *string {
	return &value
}

func TestListUsersRequiresAdmin(t *testing.T) {
	manager, _ := newManagerFixture(t)

	users, err := manager.ListUsers(context.Background(), "admin")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "newcomer", users[0].UserID)

	_, err = manager.ListUsers(context.Background(), "member")
	assert.ErrorIs(t, err, profiles.ErrAdminRequired)
}

func TestUpdateUserApprovesPendingProfile(t *testing.T) {
	manager, _ := newManagerFixture(t)

	profile, err := manager.UpdateUser(context.Background(), "admin", UpdateRequest{
		UserID: "newcomer",
		Role:   stringPointer("user"),
		Status: stringPointer("active"),
	})
	require.NoError(t, err)
	assert.Equal(t, profiles.RoleUser, profile.Role)
	assert.Equal(t, profiles.StatusActive, profile.Status)
}

func TestUpdateUserByNonAdminIsRejectedBeforePayloadChecks(t *testing.T) {
	manager, database := newManagerFixture(t)

	_, err := manager.UpdateUser(context.Background(), "member", UpdateRequest{
		UserID: "member",
		Role:   stringPointer("admin"),
		Status: stringPointer("active"),
	})
	assert.ErrorIs(t, err, profiles.ErrAdminRequired)

	_, err = manager.UpdateUser(context.Background(), "member", UpdateRequest{Role: stringPointer("bogus")})
	assert.ErrorIs(t, err, profiles.ErrAdminRequired)

	var stored profiles.Profile
	require.NoError(t, database.Where("user_id = ?", "member").Take(&stored).Error)
	assert.Equal(t, profiles.RoleUser, stored.Role)
}

func TestUpdateUserValidatesPayload(t *testing.T) {
	manager, _ := newManagerFixture(t)

	_, err := manager.UpdateUser(context.Background(), "admin", UpdateRequest{UserID: "member", Role: stringPointer("owner")})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = manager.UpdateUser(context.Background(), "admin", UpdateRequest{Status: stringPointer("active")})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = manager.UpdateUser(context.Background(), "admin", UpdateRequest{UserID: "ghost", Status: stringPointer("active")})
	assert.True(t, errors.Is(err, profiles.ErrProfileNotFound))
}
