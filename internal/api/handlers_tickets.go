package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/internal/middleware"
	"github.com/opsdesk/opsdesk/internal/models"
	"github.com/opsdesk/opsdesk/internal/service"
)

// handleListTickets scopes the list by caller role: clients get their own
// tickets, staff get everything.
func (router *APIRouter) handleListTickets(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	tickets, err := router.tickets.ListForUser(c.Request.Context(), user.ID, user.Role)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, tickets)
}

func (router *APIRouter) handleGetTicket(c *gin.Context) {
	ticket, err := router.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, ticket)
}

func (router *APIRouter) handleCreateTicket(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req service.CreateTicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	// Clients always file on their own behalf regardless of the body.
	if user.Role == models.RoleClient {
		client, err := router.directory.GetClientByUserID(c.Request.Context(), user.ID)
		if err != nil {
			sendServiceError(c, err)
			return
		}
		req.ClientID = client.ID
	}

	ticket, err := router.tickets.Create(c.Request.Context(), req)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, ticket)
}

func (router *APIRouter) handleUpdateTicketStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	ticket, err := router.tickets.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, ticket)
}

func (router *APIRouter) handleAssignTicket(c *gin.Context) {
	var req struct {
		TechnicianID string `json:"technicianId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	ticket, err := router.tickets.Assign(c.Request.Context(), c.Param("id"), req.TechnicianID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, ticket)
}
