package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/services"
)

type BlockHandler struct {
	blockService services.BlockService
}

func NewBlockHandler(blockService services.BlockService) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

type blockRequest struct {
	Kind     string              `json:"kind" binding:"omitempty,oneof=delay filter loop"`
	Config   map[string]any      `json:"config"`
	Filters  []map[string]string `json:"filters"`
	Position int                 `json:"position" binding:"omitempty,min=0"`
}

func (r blockRequest) toInput() services.BlockInput {
	return services.BlockInput{
		Kind:        domain.BlockKind(r.Kind),
		Config:      r.Config,
		LoopFilters: r.Filters,
		Position:    r.Position,
	}
}

func (bh *BlockHandler) Add(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recipeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	block, err := bh.blockService.Add(c.Request.Context(), ownerID, recipeID, req.toInput())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, block)
}

func (bh *BlockHandler) Update(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	blockID, ok := pathUUID(c, "blockId")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	block, err := bh.blockService.Update(c.Request.Context(), ownerID, blockID, req.toInput())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, block)
}

func (bh *BlockHandler) Delete(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	blockID, ok := pathUUID(c, "blockId")
	if !ok {
		return
	}
	if err := bh.blockService.Delete(c.Request.Context(), ownerID, blockID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
