package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pcagrad/cardvault/internal/tasks"
)

// TasksController exposes background task status.
type TasksController struct {
	client *tasks.Client
}

func NewTasksController(client *tasks.Client) *TasksController {
	return &TasksController{client: client}
}

// Status returns the state of a queued task.
// GET /api/tasks/:id
func (tc *TasksController) Status(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "task id is required")
		return
	}

	status, err := tc.client.Status(c.Request.Context(), id)
	if err != nil {
		respondNotFound(c, "task "+id)
		return
	}
	respondOK(c, "", status)
}
