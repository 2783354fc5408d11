package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/services"
)

// dueDate accepts both RFC 3339 timestamps and plain dates, which is what
// an HTML date input sends.
type dueDate struct {
	time.Time
}

func (d *dueDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid due date %q", s)
}

func (d *dueDate) timePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// nullableDueDate tells an absent dueDate from an explicit null, which
// clears it.
type nullableDueDate struct {
	set   bool
	value *time.Time
}

func (n *nullableDueDate) UnmarshalJSON(data []byte) error {
	var d dueDate
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	n.set = true
	n.value = d.timePtr()
	return nil
}

type createTaskRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description"`
	DueDate     *dueDate `json:"dueDate"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	Category    string   `json:"category"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.CreateTask(c, userID, services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.timePtr(),
		Priority:    models.Priority(req.Priority),
		Status:      models.Status(req.Status),
		Category:    req.Category,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		abort(c, taskError(err, "Failed to create task"))
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	filter := models.TaskFilter{Query: c.Query("q")}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			h.logger.Error().
				Str("status", raw).
				Msg("invalid status filter")
			abort(c, newBadRequestError(fmt.Sprintf("unknown status %q", raw)))
			return
		}
		filter.Status = status
	}
	if raw := c.Query("priority"); raw != "" {
		priority, ok := models.ParsePriority(raw)
		if !ok {
			h.logger.Error().
				Str("priority", raw).
				Msg("invalid priority filter")
			abort(c, newBadRequestError(fmt.Sprintf("unknown priority %q", raw)))
			return
		}
		filter.Priority = priority
	}

	tasks, err := h.tasks.ListTasks(c, userID, filter)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		abort(c, taskError(err, "Failed to fetch tasks"))
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	h.logger.Debug().
		Int("count", len(tasks)).
		Msg("fetched tasks")
	c.JSON(http.StatusOK, tasks)
}

// updateTaskRequest lists the writable fields. Position, owner and
// creation time sent by a client are ignored.
type updateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     nullableDueDate `json:"dueDate"`
	Priority    *string         `json:"priority"`
	Status      *string         `json:"status"`
	Category    *string         `json:"category"`
}

func (r updateTaskRequest) patch() models.TaskPatch {
	patch := models.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.value,
		Category:    r.Category,
	}
	if r.DueDate.set && r.DueDate.value == nil {
		patch.ClearDueDate = true
	}
	if r.Priority != nil {
		priority := models.Priority(*r.Priority)
		patch.Priority = &priority
	}
	if r.Status != nil {
		status := models.Status(*r.Status)
		patch.Status = &status
	}
	return patch
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		h.logger.Error().Msg("no task id provided")
		abort(c, newBadRequestError(errMissingTaskID.Error()))
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, userID, taskID, req.patch())
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to update task")
		abort(c, taskError(err, "Failed to update task"))
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		h.logger.Error().Msg("no task id provided")
		abort(c, newBadRequestError(errMissingTaskID.Error()))
		return
	}

	err := h.tasks.DeleteTask(c, userID, taskID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		abort(c, taskError(err, "Server error while deleting task"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

type reorderResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

func (h *handlerImpl) HandleReorderTasks(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var entries []models.ReorderEntry
	err := c.ShouldBindJSON(&entries)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	updated, err := h.tasks.ReorderTasks(c, userID, entries)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to reorder tasks")
		abort(c, taskError(err, "Failed to reorder tasks"))
		return
	}

	c.JSON(http.StatusOK, reorderResponse{
		Message: "Reordered successfully",
		Updated: updated,
	})
}
