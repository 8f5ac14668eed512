package services

import (
	"fmt"
	"testing"
	"time"

	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/models"
	"taskdeck/taskdeck/testutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userSeq int

func seedUser(t *testing.T, db *database.Database) models.User {
	t.Helper()
	userSeq++
	user := models.User{
		ID:           uuid.New(),
		FirstName:    "Test",
		LastName:     "User",
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return user
}

func seedTask(t *testing.T, db *database.Database, task models.Task) models.Task {
	t.Helper()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	require.NoError(t, db.DB.Create(&task).Error)
	return task
}

func TestCreateTask_Defaults(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	task, err := taskService.CreateTask(db, user.ID, TaskInput{Title: "  Buy milk  ", Category: "personal"})
	assert.NoError(t, err)

	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, user.ID, task.UserID)
	assert.False(t, task.Completed)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, models.CategoryPersonal, task.Category)
	assert.NotNil(t, task.Subtasks)
	assert.NotNil(t, task.Tags)
}

func TestCreateTask_TitleRequired(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	_, err := taskService.CreateTask(db, user.ID, TaskInput{Title: "   "})
	assert.True(t, IsValidation(err))

	var count int64
	assert.NoError(t, db.DB.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateTask_RejectsUnknownEnums(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	_, err := taskService.CreateTask(db, user.ID, TaskInput{Title: "a", Priority: "critical"})
	assert.True(t, IsValidation(err))

	_, err = taskService.CreateTask(db, user.ID, TaskInput{Title: "a", Category: "chores"})
	assert.True(t, IsValidation(err))
}

func TestCreateTask_DueDate(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	task, err := taskService.CreateTask(db, user.ID, TaskInput{Title: "a", DueDate: "2030-06-15"})
	assert.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, 2030, task.DueDate.Year())

	_, err = taskService.CreateTask(db, user.ID, TaskInput{Title: "a", DueDate: "next tuesday"})
	assert.True(t, IsValidation(err))
}

func TestGetTasks_NeverLeaksOtherUsers(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	taskService := &TaskService{}

	seedTask(t, db, models.Task{UserID: alice.ID, Title: "alice task", Completed: true, Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	seedTask(t, db, models.Task{UserID: bob.ID, Title: "bob task", Completed: true, Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	completed := true
	tasks, pagination, err := taskService.GetTasks(db, alice.ID, TaskQuery{Completed: &completed})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), pagination.Total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "alice task", tasks[0].Title)
	assert.Equal(t, alice.ID, tasks[0].UserID)
}

func TestGetTasks_Filters(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	seedTask(t, db, models.Task{UserID: user.ID, Title: "report", Completed: true, Priority: models.PriorityHigh, Category: models.CategoryWork})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "run", Completed: false, Priority: models.PriorityLow, Category: models.CategoryHealth})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "taxes", Completed: false, Priority: models.PriorityHigh, Category: models.CategoryFinance})

	t.Run("By Completed", func(t *testing.T) {
		completed := false
		tasks, pagination, err := taskService.GetTasks(db, user.ID, TaskQuery{Completed: &completed})
		assert.NoError(t, err)
		assert.Equal(t, int64(2), pagination.Total)
		assert.Len(t, tasks, 2)
	})

	t.Run("By Category", func(t *testing.T) {
		tasks, _, err := taskService.GetTasks(db, user.ID, TaskQuery{Category: "work"})
		assert.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "report", tasks[0].Title)
	})

	t.Run("By Priority", func(t *testing.T) {
		tasks, _, err := taskService.GetTasks(db, user.ID, TaskQuery{Priority: "high"})
		assert.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("All Means No Filter", func(t *testing.T) {
		tasks, _, err := taskService.GetTasks(db, user.ID, TaskQuery{Category: "all", Priority: "all"})
		assert.NoError(t, err)
		assert.Len(t, tasks, 3)
	})
}

func TestGetTasks_Pagination(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	for i := 0; i < 5; i++ {
		seedTask(t, db, models.Task{UserID: user.ID, Title: fmt.Sprintf("task %d", i), Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	}

	tasks, pagination, err := taskService.GetTasks(db, user.ID, TaskQuery{Limit: 2, Page: 2})
	assert.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 2, pagination.Limit)
	assert.Equal(t, int64(5), pagination.Total)
	assert.Equal(t, 3, pagination.Pages)

	tasks, pagination, err = taskService.GetTasks(db, user.ID, TaskQuery{Limit: 2, Page: 3})
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, int64(5), pagination.Total)
}

func TestGetTasks_EmptyResult(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	tasks, pagination, err := taskService.GetTasks(db, user.ID, TaskQuery{})
	assert.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
	assert.Equal(t, int64(0), pagination.Total)
	assert.Equal(t, 0, pagination.Pages)
}

func TestGetTasks_Sort(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	seedTask(t, db, models.Task{UserID: user.ID, Title: "banana", Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "apple", Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "cherry", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	tasks, _, err := taskService.GetTasks(db, user.ID, TaskQuery{Sort: "title"})
	assert.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "apple", tasks[0].Title)
	assert.Equal(t, "cherry", tasks[2].Title)

	tasks, _, err = taskService.GetTasks(db, user.ID, TaskQuery{Sort: "-title"})
	assert.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "cherry", tasks[0].Title)
}

func TestGetTaskById_ScopedToOwner(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: alice.ID, Title: "secret", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	_, err := taskService.GetTaskById(db, bob.ID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	found, err := taskService.GetTaskById(db, alice.ID, task.ID)
	assert.NoError(t, err)
	assert.Equal(t, task.ID, found.ID)
}

func TestGetTaskById_ExpandsAssigneeAndSubtasks(t *testing.T) {
	db := testutils.SetupTestDB(t)
	owner := seedUser(t, db)
	assignee := seedUser(t, db)
	taskService := &TaskService{}

	sub := seedTask(t, db, models.Task{UserID: owner.ID, Title: "subtask", Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	due := time.Now().UTC().Add(-time.Hour)
	task := seedTask(t, db, models.Task{
		UserID:       owner.ID,
		Title:        "parent",
		Priority:     models.PriorityMedium,
		Category:     models.CategoryPersonal,
		AssignedToID: &assignee.ID,
		SubtaskIDs:   models.UUIDList{sub.ID},
		DueDate:      &due,
	})

	found, err := taskService.GetTaskById(db, owner.ID, task.ID)
	assert.NoError(t, err)

	require.NotNil(t, found.Assignee)
	assert.Equal(t, assignee.ID, found.Assignee.ID)
	assert.Equal(t, assignee.Email, found.Assignee.Email)

	require.Len(t, found.Subtasks, 1)
	assert.Equal(t, sub.ID, found.Subtasks[0].ID)

	assert.True(t, found.IsOverdue)
	assert.NotNil(t, found.DaysUntilDue)
}

func TestUpdateTask_AllowlistIgnoresOwnershipForgery(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: alice.ID, Title: "mine", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	updated, err := taskService.UpdateTask(db, alice.ID, task.ID, map[string]interface{}{
		"completed":  true,
		"user":       bob.ID.String(),
		"parentTask": uuid.New().String(),
		"id":         uuid.New().String(),
	})
	assert.NoError(t, err)

	assert.True(t, updated.Completed)
	assert.Equal(t, alice.ID, updated.UserID)
	assert.Equal(t, task.ID, updated.ID)
	assert.Nil(t, updated.ParentTaskID)
	assert.Equal(t, "mine", updated.Title)
}

func TestUpdateTask_Fields(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	assignee := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: user.ID, Title: "draft", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	updated, err := taskService.UpdateTask(db, user.ID, task.ID, map[string]interface{}{
		"title":         "  final  ",
		"priority":      "urgent",
		"category":      "work",
		"dueDate":       "2031-03-01",
		"tags":          []interface{}{"q1", "review"},
		"assignedTo":    assignee.ID.String(),
		"timeSpent":     float64(90),
		"estimatedTime": float64(120),
	})
	assert.NoError(t, err)

	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, models.CategoryWork, updated.Category)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, 2031, updated.DueDate.Year())
	assert.Equal(t, models.StringList{"q1", "review"}, updated.Tags)
	require.NotNil(t, updated.Assignee)
	assert.Equal(t, assignee.ID, updated.Assignee.ID)
	assert.Equal(t, 90, updated.TimeSpent)
	require.NotNil(t, updated.EstimatedTime)
	assert.Equal(t, 120, *updated.EstimatedTime)
}

func TestUpdateTask_ClearDueDate(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	due := time.Now().UTC().Add(48 * time.Hour)
	task := seedTask(t, db, models.Task{UserID: user.ID, Title: "a", DueDate: &due, Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	updated, err := taskService.UpdateTask(db, user.ID, task.ID, map[string]interface{}{"dueDate": nil})
	assert.NoError(t, err)
	assert.Nil(t, updated.DueDate)
}

func TestUpdateTask_RejectsInvalidInput(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: user.ID, Title: "a", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	_, err := taskService.UpdateTask(db, user.ID, task.ID, map[string]interface{}{"priority": "critical"})
	assert.True(t, IsValidation(err))

	_, err = taskService.UpdateTask(db, user.ID, task.ID, map[string]interface{}{"title": "   "})
	assert.True(t, IsValidation(err))

	_, err = taskService.UpdateTask(db, user.ID, task.ID, map[string]interface{}{"assignedTo": "not-a-uuid"})
	assert.True(t, IsValidation(err))
}

func TestUpdateTask_NotFoundForOtherUser(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: alice.ID, Title: "a", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	_, err := taskService.UpdateTask(db, bob.ID, task.ID, map[string]interface{}{"completed": true})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDeleteTask_CascadesOneLevel(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	parent := seedTask(t, db, models.Task{UserID: user.ID, Title: "parent", Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	child := seedTask(t, db, models.Task{UserID: user.ID, Title: "child", ParentTaskID: &parent.ID, Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	grandchild := seedTask(t, db, models.Task{UserID: user.ID, Title: "grandchild", ParentTaskID: &child.ID, Priority: models.PriorityMedium, Category: models.CategoryPersonal})
	sibling := seedTask(t, db, models.Task{UserID: user.ID, Title: "sibling", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	deleted, err := taskService.DeleteTask(db, user.ID, parent.ID)
	assert.NoError(t, err)
	assert.Equal(t, parent.ID, deleted.ID)
	assert.Equal(t, "parent", deleted.Title)

	_, err = taskService.GetTaskById(db, user.ID, parent.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = taskService.GetTaskById(db, user.ID, child.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// The cascade runs a single pass, so grandchildren survive.
	_, err = taskService.GetTaskById(db, user.ID, grandchild.ID)
	assert.NoError(t, err)
	_, err = taskService.GetTaskById(db, user.ID, sibling.ID)
	assert.NoError(t, err)

	tasks, pagination, err := taskService.GetTasks(db, user.ID, TaskQuery{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), pagination.Total)
	assert.Len(t, tasks, 2)
}

func TestDeleteTask_NotFound(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	_, err := taskService.DeleteTask(db, user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestAddNote(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: user.ID, Title: "a", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	updated, err := taskService.AddNote(db, user.ID, task.ID, "  remember the receipt  ")
	assert.NoError(t, err)
	require.Len(t, updated.Notes, 1)
	assert.Equal(t, "remember the receipt", updated.Notes[0].Content)
	assert.False(t, updated.Notes[0].CreatedAt.IsZero())

	updated, err = taskService.AddNote(db, user.ID, task.ID, "second")
	assert.NoError(t, err)
	assert.Len(t, updated.Notes, 2)
}

func TestAddNote_BlankContentRejected(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	task := seedTask(t, db, models.Task{UserID: user.ID, Title: "a", Priority: models.PriorityMedium, Category: models.CategoryPersonal})

	_, err := taskService.AddNote(db, user.ID, task.ID, "   ")
	assert.True(t, IsValidation(err))

	found, err := taskService.GetTaskById(db, user.ID, task.ID)
	assert.NoError(t, err)
	assert.Empty(t, found.Notes)
}

func TestGetStats(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	other := seedUser(t, db)
	taskService := &TaskService{}

	past := time.Now().UTC().Add(-24 * time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	seedTask(t, db, models.Task{UserID: user.ID, Title: "done", Completed: true, Priority: models.PriorityHigh, Category: models.CategoryWork})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "late", Completed: false, DueDate: &past, Priority: models.PriorityUrgent, Category: models.CategoryWork})
	seedTask(t, db, models.Task{UserID: user.ID, Title: "soon", Completed: false, DueDate: &future, Priority: models.PriorityLow, Category: models.CategoryHealth})
	seedTask(t, db, models.Task{UserID: other.ID, Title: "not mine", Completed: false, DueDate: &past, Priority: models.PriorityLow, Category: models.CategoryHealth})

	stats, err := taskService.GetStats(db, user.ID)
	assert.NoError(t, err)

	assert.Equal(t, int64(3), stats.Overview.Total)
	assert.Equal(t, int64(1), stats.Overview.Completed)
	assert.Equal(t, int64(2), stats.Overview.Pending)
	assert.Equal(t, int64(1), stats.Overview.Overdue)
	assert.Equal(t, 33, stats.Overview.CompletionRate)

	categories := make(map[string]int64)
	for _, bucket := range stats.ByCategory {
		categories[bucket.ID] = bucket.Count
	}
	assert.Equal(t, int64(2), categories["work"])
	assert.Equal(t, int64(1), categories["health"])

	priorities := make(map[string]int64)
	for _, bucket := range stats.ByPriority {
		priorities[bucket.ID] = bucket.Count
	}
	assert.Equal(t, int64(1), priorities["high"])
	assert.Equal(t, int64(1), priorities["urgent"])
	assert.Equal(t, int64(1), priorities["low"])
}

func TestGetStats_EmptyStore(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	stats, err := taskService.GetStats(db, user.ID)
	assert.NoError(t, err)

	assert.Equal(t, int64(0), stats.Overview.Total)
	assert.Equal(t, int64(0), stats.Overview.Completed)
	assert.Equal(t, int64(0), stats.Overview.Pending)
	assert.Equal(t, int64(0), stats.Overview.Overdue)
	assert.Equal(t, 0, stats.Overview.CompletionRate)
	assert.Empty(t, stats.ByCategory)
	assert.Empty(t, stats.ByPriority)
	assert.NotNil(t, stats.ByCategory)
	assert.NotNil(t, stats.ByPriority)
}

func TestCreateThenUpdateThenDelete(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := seedUser(t, db)
	taskService := &TaskService{}

	created, err := taskService.CreateTask(db, user.ID, TaskInput{Title: "Buy milk", Category: "personal"})
	assert.NoError(t, err)
	assert.False(t, created.Completed)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, models.CategoryPersonal, created.Category)

	_, err = taskService.UpdateTask(db, user.ID, created.ID, map[string]interface{}{"completed": true})
	assert.NoError(t, err)

	fetched, err := taskService.GetTaskById(db, user.ID, created.ID)
	assert.NoError(t, err)
	assert.True(t, fetched.Completed)
	assert.Equal(t, "Buy milk", fetched.Title)

	_, err = taskService.DeleteTask(db, user.ID, created.ID)
	assert.NoError(t, err)

	_, err = taskService.GetTaskById(db, user.ID, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
