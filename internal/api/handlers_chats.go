package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/internal/middleware"
	"github.com/opsdesk/opsdesk/internal/models"
)

// handleListChats returns staff the full (optionally technician-filtered)
// chat list; clients only see conversations they participate in.
func (router *APIRouter) handleListChats(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	ctx := c.Request.Context()
	if user.Role == models.RoleClient {
		chats, err := router.chats.ListForUser(ctx, user.ID)
		if err != nil {
			sendServiceError(c, err)
			return
		}
		sendSuccess(c, chats)
		return
	}

	chats, err := router.chats.ListForTechnician(ctx, c.Query("technician_id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, chats)
}

// handleGetMessages opens the chat: history plus the unread delta the
// caller's counter should drop by. Opening implies marking read.
func (router *APIRouter) handleGetMessages(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	selection, err := router.chats.Select(c.Request.Context(), c.Param("id"), user.ID, user.Role)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, selection)
}

func (router *APIRouter) handleSendMessage(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	messages, err := router.chats.Send(c.Request.Context(), c.Param("id"), user.ID, req.Message)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, gin.H{"messages": messages})
}

// handleMarkChatRead is the explicit mark-read mutation for callers that
// keep a chat open across new arrivals.
func (router *APIRouter) handleMarkChatRead(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	selection, err := router.chats.Select(c.Request.Context(), c.Param("id"), user.ID, user.Role)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, gin.H{"unreadDelta": selection.UnreadDelta})
}

// handleSwitchChat resolves or creates the conversation for a client.
func (router *APIRouter) handleSwitchChat(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req struct {
		ClientID string `json:"clientId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ClientID == "" {
		sendError(c, http.StatusBadRequest, "clientId required")
		return
	}

	selection, err := router.chats.SwitchToClient(c.Request.Context(), req.ClientID, user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, selection)
}
