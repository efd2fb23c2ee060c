package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupscope/dashboard/internal/admin"
	"github.com/groupscope/dashboard/internal/airtable"
	"github.com/groupscope/dashboard/internal/auth"
	"github.com/groupscope/dashboard/internal/groups"
	"github.com/groupscope/dashboard/internal/logging"
	"github.com/groupscope/dashboard/internal/profiles"
	"github.com/groupscope/dashboard/internal/results"
	"go.uber.org/zap"
)

const (
	userIDContextKey   = "groupscope_user_id"
	identityContextKey = "groupscope_identity"
)

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingProfileGate      = errors.New("profile gate dependency required")
	errMissingUserManager      = errors.New("user manager dependency required")
	errMissingGroupCatalog     = errors.New("group catalog dependency required")
	errMissingResultsReader    = errors.New("results reader dependency required")
	errMissingViewStore        = errors.New("view store dependency required")
)

// SessionValidator resolves the provider session attached to a request.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
}

// ProfileGate resolves, approves and elevates the caller's profile.
type ProfileGate interface {
	Ensure(ctx context.Context, identity auth.Identity) (profiles.Profile, bool, error)
	Authorize(ctx context.Context, userID string) (profiles.Profile, error)
	GrantAdmin(ctx context.Context, userID string) (profiles.AdminCapability, error)
}

// UserManager lists and updates profiles on behalf of an admin caller.
type UserManager interface {
	ListUsers(ctx context.Context, callerID string) ([]profiles.Profile, error)
	UpdateUser(ctx context.Context, callerID string, request admin.UpdateRequest) (profiles.Profile, error)
}

// GroupCatalog reads and creates groups in the external catalog.
type GroupCatalog interface {
	List(ctx context.Context, query groups.Query) (groups.Result, error)
	Create(ctx context.Context, request groups.CreateRequest) (string, error)
}

// ResultsReader exposes the read-only scraped results store.
type ResultsReader interface {
	Tables(ctx context.Context) ([]string, error)
	Posts(ctx context.Context, query results.Query) (results.Page, error)
}

// ViewStore lists and creates views of the group table.
type ViewStore interface {
	ListViews(ctx context.Context) (airtable.Table, []airtable.View, error)
	CreateView(ctx context.Context, request airtable.ViewRequest) (airtable.View, error)
}

// Dependencies wires the collaborators the HTTP handler needs.
type Dependencies struct {
	Sessions       SessionValidator
	Profiles       ProfileGate
	Users          UserManager
	Groups         GroupCatalog
	Results        ResultsReader
	Views          ViewStore
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router serving the dashboard API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Profiles == nil {
		return nil, errMissingProfileGate
	}
	if deps.Users == nil {
		return nil, errMissingUserManager
	}
	if deps.Groups == nil {
		return nil, errMissingGroupCatalog
	}
	if deps.Results == nil {
		return nil, errMissingResultsReader
	}
	if deps.Views == nil {
		return nil, errMissingViewStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		users:    deps.Users,
		groups:   deps.Groups,
		results:  deps.Results,
		views:    deps.Views,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.Use(handler.authenticate)
	api.GET("/auth/profile", handler.handleGetProfile)

	approved := api.Group("")
	approved.Use(handler.requireActive)
	approved.PATCH("/auth/profile", handler.handleUpdateUser)
	approved.GET("/admin/users", handler.handleListUsers)
	approved.PATCH("/admin/users", handler.handleUpdateUser)
	approved.GET("/groups", handler.handleListGroups)
	approved.POST("/groups", handler.handleCreateGroup)
	approved.GET("/results/posts", handler.handleListPosts)
	approved.GET("/results/tables", handler.handleListTables)
	approved.GET("/airtable/views", handler.handleListViews)
	approved.POST("/airtable/views", handler.handleCreateView)
	approved.POST("/airtable/views/create", handler.handleCreateView)

	return router, nil
}

type httpHandler struct {
	sessions SessionValidator
	profiles ProfileGate
	users    UserManager
	groups   GroupCatalog
	results  ResultsReader
	views    ViewStore
	logger   *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
