package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsmith/flowsmith-backend/internal/services"
)

type IntegrationHandler struct {
	integrationService services.IntegrationService
	accountService     services.AccountService
}

func NewIntegrationHandler(integrationService services.IntegrationService, accountService services.AccountService) *IntegrationHandler {
	return &IntegrationHandler{
		integrationService: integrationService,
		accountService:     accountService,
	}
}

func (ih *IntegrationHandler) List(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	views, err := ih.integrationService.List(c.Request.Context(), ownerID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"integrations": views})
}

func (ih *IntegrationHandler) Get(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := ih.integrationService.Get(c.Request.Context(), ownerID, c.Param("code"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, view)
}

func (ih *IntegrationHandler) Connect(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Label       string            `json:"label"`
		Credentials map[string]string `json:"credentials" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	account, err := ih.accountService.Connect(c.Request.Context(), ownerID, c.Param("code"), req.Label, req.Credentials)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, account)
}

func (ih *IntegrationHandler) Disconnect(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	if err := ih.accountService.Disconnect(c.Request.Context(), ownerID, c.Param("code")); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"disconnected": true})
}

func (ih *IntegrationHandler) Accounts(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	accounts, err := ih.accountService.List(c.Request.Context(), ownerID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"accounts": accounts})
}
