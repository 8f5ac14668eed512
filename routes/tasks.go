package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/models"
	"taskdeck/taskdeck/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RegisterTaskRoutes(group *gin.RouterGroup, db *database.Database, taskService services.TaskServiceInterface) {
	group.GET("/tasks", func(c *gin.Context) { GetTasks(c, db, taskService) })
	group.POST("/tasks", func(c *gin.Context) { CreateTask(c, db, taskService) })
	group.GET("/tasks/stats/overview", func(c *gin.Context) { GetTaskStats(c, db, taskService) })
	group.GET("/tasks/:id", func(c *gin.Context) { GetTaskById(c, db, taskService) })
	group.PUT("/tasks/:id", func(c *gin.Context) { UpdateTask(c, db, taskService) })
	group.DELETE("/tasks/:id", func(c *gin.Context) { DeleteTask(c, db, taskService) })
	group.POST("/tasks/:id/notes", func(c *gin.Context) { AddTaskNote(c, db, taskService) })
}

// currentUser resolves the authenticated caller stored by the middleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

// taskID rejects malformed identifiers before they reach the store, so a
// bad id is a 400 rather than a 404.
func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return uuid.Nil, false
	}
	return id, true
}

// handleTaskError maps service failures onto the REST error taxonomy.
// Unexpected store errors are logged server-side and never echoed.
func handleTaskError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		log.Printf("%s: %v", message, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": message})
	}
}

func GetTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	query := services.TaskQuery{
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Sort:     c.DefaultQuery("sort", "-createdAt"),
		Limit:    services.DefaultListLimit,
		Page:     1,
	}

	if completed := c.Query("completed"); completed != "" {
		value := completed == "true"
		query.Completed = &value
	}
	if query.Category != "" && query.Category != "all" && !models.Category(query.Category).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid category"})
		return
	}
	if query.Priority != "" && query.Priority != "all" && !models.Priority(query.Priority).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid priority"})
		return
	}
	// Non-numeric limit and page fall back to the defaults.
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = limit
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}

	tasks, pagination, err := taskService.GetTasks(db, userID, query)
	if err != nil {
		handleTaskError(c, err, "Server error fetching tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      tasks,
		"pagination": pagination,
	})
}

func GetTaskById(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := taskService.GetTaskById(db, userID, id)
	if err != nil {
		handleTaskError(c, err, "Server error fetching task")
		return
	}
	c.JSON(http.StatusOK, task)
}

func CreateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	task, err := taskService.CreateTask(db, userID, input)
	if err != nil {
		handleTaskError(c, err, "Server error creating task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created successfully",
		"task":    task,
	})
}

func UpdateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	task, err := taskService.UpdateTask(db, userID, id, body)
	if err != nil {
		handleTaskError(c, err, "Server error updating task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated successfully",
		"task":    task,
	})
}

func DeleteTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := taskService.DeleteTask(db, userID, id)
	if err != nil {
		handleTaskError(c, err, "Server error deleting task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"task": gin.H{
			"id":    task.ID,
			"title": task.Title,
		},
	})
}

func GetTaskStats(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := taskService.GetStats(db, userID)
	if err != nil {
		handleTaskError(c, err, "Server error fetching statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func AddTaskNote(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	task, err := taskService.AddNote(db, userID, id, body.Content)
	if err != nil {
		handleTaskError(c, err, "Server error adding note")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Note added successfully",
		"task":    task,
	})
}
