package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/internal/middleware"
)

func (router *APIRouter) handleListNotifications(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	items, err := router.notifications.List(c.Request.Context(), user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, items)
}

// handleMarkNotificationRead marks one notification read. Already-read and
// unknown ids both come back with affected=0; repeats converge.
func (router *APIRouter) handleMarkNotificationRead(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	affected, err := router.notifications.MarkOne(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, gin.H{"affected": affected})
}

func (router *APIRouter) handleMarkAllNotificationsRead(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	affected, err := router.notifications.MarkAll(c.Request.Context(), user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, gin.H{"affected": affected})
}

// handleUnreadCounts returns both header counters in one call; this is the
// polling fallback for clients without a websocket.
func (router *APIRouter) handleUnreadCounts(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	counts, err := router.unread.Counts(c.Request.Context(), user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, counts)
}
