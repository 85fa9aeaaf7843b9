package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/services"
)

type StepHandler struct {
	stepService services.StepService
}

func NewStepHandler(stepService services.StepService) *StepHandler {
	return &StepHandler{stepService: stepService}
}

type stepRequest struct {
	Kind        string            `json:"kind" binding:"omitempty,oneof=trigger action closure"`
	Integration string            `json:"integration"`
	Code        string            `json:"code"`
	Fields      map[string]string `json:"fields"`
	Background  bool              `json:"background"`
	Position    int               `json:"position" binding:"omitempty,min=0"`
}

func (r stepRequest) toInput() services.StepInput {
	return services.StepInput{
		Kind:            domain.StepKind(r.Kind),
		IntegrationCode: r.Integration,
		StepCode:        r.Code,
		FlatFields:      r.Fields,
		Background:      r.Background,
		Position:        r.Position,
	}
}

func (sh *StepHandler) Add(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recipeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	step, err := sh.stepService.Add(c.Request.Context(), ownerID, recipeID, req.toInput())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, step)
}

func (sh *StepHandler) Update(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	stepID, ok := pathUUID(c, "stepId")
	if !ok {
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	step, err := sh.stepService.Update(c.Request.Context(), ownerID, stepID, req.toInput())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, step)
}

func (sh *StepHandler) Delete(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	stepID, ok := pathUUID(c, "stepId")
	if !ok {
		return
	}
	if err := sh.stepService.Delete(c.Request.Context(), ownerID, stepID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
