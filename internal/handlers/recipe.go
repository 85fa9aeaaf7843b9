package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/requestdata"
	"github.com/flowsmith/flowsmith-backend/internal/services"
)

type RecipeHandler struct {
	recipeService services.RecipeService
	exportService services.ExportService
}

func NewRecipeHandler(recipeService services.RecipeService, exportService services.ExportService) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService, exportService: exportService}
}

// callerID pulls the authenticated user out of the request context. The
// auth middleware guarantees it is present on protected routes.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", fmt.Errorf("missing authentication"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("%s is not a uuid", name))
		return uuid.Nil, false
	}
	return id, true
}

func (rh *RecipeHandler) Create(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	var req struct {
		Title      string `json:"title" binding:"required"`
		RecipeType string `json:"recipe_type" binding:"omitempty,oneof=user anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	recipe, err := rh.recipeService.Create(c.Request.Context(), ownerID, req.Title, domain.RecipeType(req.RecipeType))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) List(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recipes, err := rh.recipeService.List(c.Request.Context(), ownerID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"recipes": recipes})
}

func (rh *RecipeHandler) Get(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	recipe, err := rh.recipeService.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) Update(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title        string `json:"title"`
		Notes        string `json:"notes"`
		TimesPerUser int    `json:"times_per_user" binding:"omitempty,min=0"`
		RecipeType   string `json:"recipe_type" binding:"omitempty,oneof=user anonymous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	recipe, err := rh.recipeService.Update(c.Request.Context(), ownerID, &domain.Recipe{
		ID:           id,
		Title:        req.Title,
		Notes:        req.Notes,
		TimesPerUser: req.TimesPerUser,
		RecipeType:   req.RecipeType,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) SetStatus(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=draft live"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	recipe, err := rh.recipeService.SetStatus(c.Request.Context(), ownerID, id, domain.RecipeStatus(req.Status))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) Delete(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := rh.recipeService.Delete(c.Request.Context(), ownerID, id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (rh *RecipeHandler) Export(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	raw, err := rh.exportService.Export(c.Request.Context(), ownerID, id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/x-yaml", raw)
}

func (rh *RecipeHandler) Import(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("empty import body"))
		return
	}
	recipe, err := rh.exportService.Import(c.Request.Context(), ownerID, raw)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, recipe)
}
