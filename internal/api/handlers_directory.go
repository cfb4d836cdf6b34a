package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/internal/models"
)

func (router *APIRouter) handleListClients(c *gin.Context) {
	clients, err := router.directory.ListClients(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, clients)
}

func (router *APIRouter) handleListTechnicians(c *gin.Context) {
	techs, err := router.directory.ListTechnicians(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, techs)
}

func (router *APIRouter) handleListCompanies(c *gin.Context) {
	companies, err := router.companies.List(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, companies)
}

func (router *APIRouter) handleCreateCompany(c *gin.Context) {
	var company models.Company
	if err := c.ShouldBindJSON(&company); err != nil || company.Name == "" {
		sendError(c, http.StatusBadRequest, "company name required")
		return
	}
	if err := router.companies.Create(c.Request.Context(), &company); err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, company)
}

func (router *APIRouter) handleListLocations(c *gin.Context) {
	locations, err := router.companies.ListLocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, locations)
}

func (router *APIRouter) handleCreateLocation(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil || loc.Name == "" {
		sendError(c, http.StatusBadRequest, "location name required")
		return
	}
	loc.CompanyID = c.Param("id")
	if err := router.companies.CreateLocation(c.Request.Context(), &loc); err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, loc)
}
