// Package api exposes the portal over HTTP. One router owns every route;
// handlers translate between the wire envelope and the service layer.
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdesk/opsdesk/internal/auth"
	"github.com/opsdesk/opsdesk/internal/middleware"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/realtime"
	"github.com/opsdesk/opsdesk/internal/repository"
	"github.com/opsdesk/opsdesk/internal/service"
)

// APIResponse is the uniform wire envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func sendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}

// sendServiceError maps service and repository sentinels onto HTTP codes.
func sendServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		sendError(c, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrEmptyMessage):
		sendError(c, http.StatusBadRequest, "message content is empty")
	case errors.Is(err, service.ErrInvalidInput):
		sendError(c, http.StatusBadRequest, "invalid request")
	case errors.Is(err, service.ErrEmailTaken):
		sendError(c, http.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrForbidden):
		sendError(c, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, repository.ErrNotFound):
		sendError(c, http.StatusNotFound, "not found")
	default:
		sendError(c, http.StatusInternalServerError, "internal error")
	}
}

// APIRouter holds the services behind the route surface.
type APIRouter struct {
	auth          *service.AuthService
	tickets       *service.TicketService
	chats         *service.ChatService
	notifications *service.NotificationService
	unread        *service.UnreadService

	companies repository.CompanyRepository
	directory repository.DirectoryRepository

	jwt    *auth.JWTManager
	hub    *realtime.Hub
	logger *log.Logger
}

// Deps bundles the router's collaborators.
type Deps struct {
	Auth          *service.AuthService
	Tickets       *service.TicketService
	Chats         *service.ChatService
	Notifications *service.NotificationService
	Unread        *service.UnreadService
	Companies     repository.CompanyRepository
	Directory     repository.DirectoryRepository
	JWT           *auth.JWTManager
	Hub           *realtime.Hub
	Logger        *log.Logger
}

func NewRouter(d Deps) *APIRouter {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return &APIRouter{
		auth:          d.Auth,
		tickets:       d.Tickets,
		chats:         d.Chats,
		notifications: d.Notifications,
		unread:        d.Unread,
		companies:     d.Companies,
		directory:     d.Directory,
		jwt:           d.JWT,
		hub:           d.Hub,
		logger:        d.Logger,
	}
}

// Engine builds the gin engine with every route registered.
func (router *APIRouter) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", router.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	v1.POST("/auth/login", router.handleLogin)

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(router.jwt))
	{
		authed.GET("/auth/me", router.handleMe)
		authed.GET("/unread-counts", router.handleUnreadCounts)
		authed.GET("/ws", router.handleWebsocket)

		authed.GET("/tickets", router.handleListTickets)
		authed.POST("/tickets", router.handleCreateTicket)
		authed.GET("/tickets/:id", router.handleGetTicket)

		authed.GET("/chats", router.handleListChats)
		authed.GET("/chats/:id/messages", router.handleGetMessages)
		authed.POST("/chats/:id/messages", router.handleSendMessage)
		authed.POST("/chats/:id/read", router.handleMarkChatRead)

		authed.GET("/notifications", router.handleListNotifications)
		authed.POST("/notifications/:id/read", router.handleMarkNotificationRead)
		authed.POST("/notifications/read-all", router.handleMarkAllNotificationsRead)
	}

	staff := authed.Group("")
	staff.Use(middleware.RequireRole(models.RoleTechnician, models.RoleAdmin))
	{
		staff.POST("/chats/switch", router.handleSwitchChat)
		staff.PATCH("/tickets/:id/status", router.handleUpdateTicketStatus)
		staff.PATCH("/tickets/:id/assign", router.handleAssignTicket)
		staff.GET("/clients", router.handleListClients)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", router.handleListUsers)
		admin.POST("/users", router.handleCreateUser)
		admin.GET("/companies", router.handleListCompanies)
		admin.POST("/companies", router.handleCreateCompany)
		admin.GET("/companies/:id/locations", router.handleListLocations)
		admin.POST("/companies/:id/locations", router.handleCreateLocation)
		admin.GET("/technicians", router.handleListTechnicians)
	}

	return engine
}

func (router *APIRouter) handleHealth(c *gin.Context) {
	sendSuccess(c, gin.H{"status": "healthy", "service": "opsdesk-api"})
}

// handleWebsocket upgrades the caller onto the realtime hub.
func (router *APIRouter) handleWebsocket(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	if err := router.hub.Serve(c.Writer, c.Request, user.ID); err != nil {
		router.logger.Printf("api: websocket upgrade for %s: %v", user.ID, err)
	}
}
