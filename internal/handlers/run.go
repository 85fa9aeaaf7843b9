package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/clients/redisx"
	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/requestdata"
	"github.com/flowsmith/flowsmith-backend/internal/services"
)

type RunHandler struct {
	runService    services.RunService
	intakeService services.IntakeService
	feed          *redisx.RunFeed
}

func NewRunHandler(runService services.RunService, intakeService services.IntakeService, feed *redisx.RunFeed) *RunHandler {
	return &RunHandler{runService: runService, intakeService: intakeService, feed: feed}
}

func (rh *RunHandler) Get(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	runID, ok := pathUUID(c, "runId")
	if !ok {
		return
	}
	run, err := rh.runService.Get(c.Request.Context(), ownerID, runID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, run)
}

func (rh *RunHandler) ListByRecipe(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	recipeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := rh.runService.ListByRecipe(c.Request.Context(), ownerID, recipeID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"runs": runs})
}

// Event ingests a trigger occurrence. Authenticated callers run as
// themselves; anonymous calls only fire anonymous recipes.
func (rh *RunHandler) Event(c *gin.Context) {
	var req struct {
		Integration string            `json:"integration" binding:"required"`
		Trigger     string            `json:"trigger" binding:"required"`
		Fields      map[string]string `json:"fields"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	evt := engine.TriggerEvent{
		IntegrationCode: req.Integration,
		TriggerCode:     req.Trigger,
		Fields:          req.Fields,
	}
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		evt.UserID = &id
	}

	runs, err := rh.intakeService.HandleEvent(c.Request.Context(), evt)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"matched": len(runs), "runs": runs})
}

// Stream pushes run events to the client as server-sent events until
// the client disconnects.
func (rh *RunHandler) Stream(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	id, events := rh.feed.Subscribe()
	defer rh.feed.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	done := c.Request.Context().Done()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-done:
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		}
	})
}
