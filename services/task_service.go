package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"taskdeck/taskdeck/broker"
	"taskdeck/taskdeck/database"
	"taskdeck/taskdeck/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultListLimit = 50
	maxTitleLen      = 200
	maxDescLen       = 1000
)

// TaskQuery carries the list filters after coercion at the route layer.
type TaskQuery struct {
	Completed *bool
	Category  string
	Priority  string
	Sort      string
	Limit     int
	Page      int
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      string   `json:"priority"`
	Category      string   `json:"category"`
	DueDate       string   `json:"dueDate"`
	Tags          []string `json:"tags"`
	EstimatedTime *int     `json:"estimatedTime"`
}

type TaskServiceInterface interface {
	GetTasks(db *database.Database, userID uuid.UUID, query TaskQuery) ([]models.Task, models.Pagination, error)
	GetTaskById(db *database.Database, userID, id uuid.UUID) (models.Task, error)
	CreateTask(db *database.Database, userID uuid.UUID, input TaskInput) (models.Task, error)
	UpdateTask(db *database.Database, userID, id uuid.UUID, body map[string]interface{}) (models.Task, error)
	DeleteTask(db *database.Database, userID, id uuid.UUID) (models.Task, error)
	AddNote(db *database.Database, userID, id uuid.UUID, content string) (models.Task, error)
	GetStats(db *database.Database, userID uuid.UUID) (models.TaskStats, error)
}

type TaskService struct{}

// sortColumns is the allow-list of sortable fields. Keeping caller input
// out of the ORDER BY clause doubles as injection protection.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"dueDate":       "due_date",
	"title":         "title",
	"priority":      "priority",
	"category":      "category",
	"completed":     "completed",
	"timeSpent":     "time_spent",
	"estimatedTime": "estimated_time",
}

func parseSort(sort string) string {
	field := sort
	desc := false
	if strings.HasPrefix(sort, "-") {
		field = sort[1:]
		desc = true
	}
	column, ok := sortColumns[field]
	if !ok {
		// Unknown sort fields fall back to newest-first.
		column, desc = "created_at", true
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func parseDueDate(value string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, NewValidationError("Invalid due date")
}

func (s *TaskService) GetTasks(db *database.Database, userID uuid.UUID, query TaskQuery) ([]models.Task, models.Pagination, error) {
	filtered := func() *gorm.DB {
		q := db.DB.Model(&models.Task{}).Where("user_id = ?", userID)
		if query.Completed != nil {
			q = q.Where("completed = ?", *query.Completed)
		}
		if query.Category != "" && query.Category != "all" {
			q = q.Where("category = ?", query.Category)
		}
		if query.Priority != "" && query.Priority != "all" {
			q = q.Where("priority = ?", query.Priority)
		}
		return q
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, models.Pagination{}, err
	}

	var tasks []models.Task
	err := filtered().
		Order(parseSort(query.Sort)).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&tasks).Error
	if err != nil {
		return nil, models.Pagination{}, err
	}

	if err := s.expandTasks(db, userID, tasks); err != nil {
		return nil, models.Pagination{}, err
	}

	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}

	pagination := models.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, pagination, nil
}

func (s *TaskService) GetTaskById(db *database.Database, userID, id uuid.UUID) (models.Task, error) {
	var task models.Task
	if err := db.DB.First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	tasks := []models.Task{task}
	if err := s.expandTasks(db, userID, tasks); err != nil {
		return models.Task{}, err
	}
	return tasks[0], nil
}

func (s *TaskService) CreateTask(db *database.Database, userID uuid.UUID, input TaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, NewValidationError("Task title is required")
	}
	if len(title) > maxTitleLen {
		return models.Task{}, NewValidationError("Task title must be at most 200 characters")
	}

	description := strings.TrimSpace(input.Description)
	if len(description) > maxDescLen {
		return models.Task{}, NewValidationError("Task description must be at most 1000 characters")
	}

	priority := models.PriorityMedium
	if input.Priority != "" {
		priority = models.Priority(input.Priority)
		if !priority.Valid() {
			return models.Task{}, NewValidationError("Invalid priority")
		}
	}

	category := models.CategoryPersonal
	if input.Category != "" {
		category = models.Category(input.Category)
		if !category.Valid() {
			return models.Task{}, NewValidationError("Invalid category")
		}
	}

	var dueDate *time.Time
	if input.DueDate != "" {
		parsed, err := parseDueDate(input.DueDate)
		if err != nil {
			return models.Task{}, err
		}
		dueDate = parsed
	}

	task := models.Task{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         title,
		Description:   description,
		Priority:      priority,
		Category:      category,
		DueDate:       dueDate,
		Tags:          models.StringList(input.Tags),
		EstimatedTime: input.EstimatedTime,
		SubtaskIDs:    models.UUIDList{},
		Attachments:   models.AttachmentList{},
		Notes:         models.NoteList{},
	}
	if task.Tags == nil {
		task.Tags = models.StringList{}
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	if err := tx.Create(&task).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	payload := taskEventPayload(&task)
	event, err := models.NewEvent(string(broker.TaskCreated), "task", payload)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	broker.Publish(broker.TaskCreated, payload)

	tasks := []models.Task{task}
	if err := s.expandTasks(db, userID, tasks); err != nil {
		return models.Task{}, err
	}
	return tasks[0], nil
}

// UpdateTask applies a partial update restricted to an explicit allow-list
// of mutable fields. Anything else in the body, ownership and identifiers
// included, is silently ignored.
func (s *TaskService) UpdateTask(db *database.Database, userID, id uuid.UUID, body map[string]interface{}) (models.Task, error) {
	updates, err := buildTaskUpdates(body)
	if err != nil {
		return models.Task{}, err
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	var task models.Task
	if err := tx.First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	if len(updates) > 0 {
		if err := tx.Model(&task).Updates(updates).Error; err != nil {
			tx.Rollback()
			return models.Task{}, err
		}
	}

	payload := taskEventPayload(&task)
	event, err := models.NewEvent(string(broker.TaskUpdated), "task", payload)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	broker.Publish(broker.TaskUpdated, payload)

	return s.GetTaskById(db, userID, id)
}

// DeleteTask removes the task and, in a single non-recursive pass, every
// task whose parent is the deleted one. Grandchildren are left alone.
func (s *TaskService) DeleteTask(db *database.Database, userID, id uuid.UUID) (models.Task, error) {
	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	var task models.Task
	if err := tx.First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	if err := tx.Delete(&task).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Where("parent_task_id = ? AND user_id = ?", id, userID).Delete(&models.Task{}).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	payload := taskEventPayload(&task)
	event, err := models.NewEvent(string(broker.TaskDeleted), "task", payload)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	broker.Publish(broker.TaskDeleted, payload)

	return task, nil
}

func (s *TaskService) AddNote(db *database.Database, userID, id uuid.UUID, content string) (models.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Task{}, NewValidationError("Note content is required")
	}

	tx := db.DB.Begin()
	if tx.Error != nil {
		return models.Task{}, tx.Error
	}

	// The append is read-modify-write, so the row stays locked until
	// commit; without this a concurrent append would overwrite ours.
	var task models.Task
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	task.Notes = append(task.Notes, models.Note{
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if err := tx.Model(&task).Update("notes", task.Notes).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	payload := taskEventPayload(&task)
	event, err := models.NewEvent(string(broker.TaskNoteAdded), "task", payload)
	if err != nil {
		tx.Rollback()
		return models.Task{}, err
	}
	if err := tx.Create(event).Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return models.Task{}, err
	}

	broker.Publish(broker.TaskNoteAdded, payload)

	return s.GetTaskById(db, userID, id)
}

// GetStats runs the component counts as separate queries without a
// transaction. Under concurrent mutation from the same user the figures
// may be momentarily inconsistent with each other; that is accepted.
func (s *TaskService) GetStats(db *database.Database, userID uuid.UUID) (models.TaskStats, error) {
	now := time.Now().UTC()
	scoped := func() *gorm.DB {
		return db.DB.Model(&models.Task{}).Where("user_id = ?", userID)
	}

	var total, completed, pending, overdue int64
	if err := scoped().Count(&total).Error; err != nil {
		return models.TaskStats{}, err
	}
	if err := scoped().Where("completed = ?", true).Count(&completed).Error; err != nil {
		return models.TaskStats{}, err
	}
	if err := scoped().Where("completed = ?", false).Count(&pending).Error; err != nil {
		return models.TaskStats{}, err
	}
	if err := scoped().Where("completed = ? AND due_date IS NOT NULL AND due_date < ?", false, now).Count(&overdue).Error; err != nil {
		return models.TaskStats{}, err
	}

	byCategory := []models.GroupCount{}
	if err := scoped().Select("category AS _id, COUNT(*) AS count").Group("category").Scan(&byCategory).Error; err != nil {
		return models.TaskStats{}, err
	}
	byPriority := []models.GroupCount{}
	if err := scoped().Select("priority AS _id, COUNT(*) AS count").Group("priority").Scan(&byPriority).Error; err != nil {
		return models.TaskStats{}, err
	}

	completionRate := 0
	if total > 0 {
		completionRate = int(math.Round(float64(completed) / float64(total) * 100))
	}

	return models.TaskStats{
		Overview: models.StatsOverview{
			Total:          total,
			Completed:      completed,
			Pending:        pending,
			Overdue:        overdue,
			CompletionRate: completionRate,
		},
		ByCategory: byCategory,
		ByPriority: byPriority,
	}, nil
}

// updatableFields maps the JSON keys a caller may change to their columns.
var updatableFields = map[string]string{
	"title":         "title",
	"description":   "description",
	"completed":     "completed",
	"priority":      "priority",
	"category":      "category",
	"dueDate":       "due_date",
	"tags":          "tags",
	"assignedTo":    "assigned_to_id",
	"timeSpent":     "time_spent",
	"estimatedTime": "estimated_time",
}

func buildTaskUpdates(body map[string]interface{}) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	for key, column := range updatableFields {
		value, present := body[key]
		if !present {
			continue
		}

		switch key {
		case "title":
			title, ok := value.(string)
			if !ok || strings.TrimSpace(title) == "" {
				return nil, NewValidationError("Task title is required")
			}
			title = strings.TrimSpace(title)
			if len(title) > maxTitleLen {
				return nil, NewValidationError("Task title must be at most 200 characters")
			}
			updates[column] = title
		case "description":
			desc, ok := value.(string)
			if !ok {
				return nil, NewValidationError("Invalid description")
			}
			desc = strings.TrimSpace(desc)
			if len(desc) > maxDescLen {
				return nil, NewValidationError("Task description must be at most 1000 characters")
			}
			updates[column] = desc
		case "completed":
			completed, ok := value.(bool)
			if !ok {
				return nil, NewValidationError("Invalid completed flag")
			}
			updates[column] = completed
		case "priority":
			priority, ok := value.(string)
			if !ok || !models.Priority(priority).Valid() {
				return nil, NewValidationError("Invalid priority")
			}
			updates[column] = priority
		case "category":
			category, ok := value.(string)
			if !ok || !models.Category(category).Valid() {
				return nil, NewValidationError("Invalid category")
			}
			updates[column] = category
		case "dueDate":
			if value == nil {
				updates[column] = nil
				continue
			}
			raw, ok := value.(string)
			if !ok {
				return nil, NewValidationError("Invalid due date")
			}
			if raw == "" {
				updates[column] = nil
				continue
			}
			parsed, err := parseDueDate(raw)
			if err != nil {
				return nil, err
			}
			updates[column] = parsed
		case "tags":
			items, ok := value.([]interface{})
			if !ok {
				return nil, NewValidationError("Invalid tags")
			}
			tags := models.StringList{}
			for _, item := range items {
				tag, ok := item.(string)
				if !ok {
					return nil, NewValidationError("Invalid tags")
				}
				tags = append(tags, strings.TrimSpace(tag))
			}
			updates[column] = tags
		case "assignedTo":
			if value == nil {
				updates[column] = nil
				continue
			}
			raw, ok := value.(string)
			if !ok {
				return nil, NewValidationError("Invalid assignee ID")
			}
			assignee, err := uuid.Parse(raw)
			if err != nil {
				return nil, NewValidationError("Invalid assignee ID")
			}
			updates[column] = assignee
		case "timeSpent", "estimatedTime":
			if value == nil && key == "estimatedTime" {
				updates[column] = nil
				continue
			}
			minutes, ok := value.(float64)
			if !ok || minutes < 0 {
				return nil, NewValidationError("Invalid time value")
			}
			updates[column] = int(minutes)
		}
	}
	return updates, nil
}

// expandTasks fills assignee summaries, full subtask records and the
// derived fields on every task in place. Subtask lookups stay scoped to
// the owner so nothing leaks across accounts.
func (s *TaskService) expandTasks(db *database.Database, userID uuid.UUID, tasks []models.Task) error {
	now := time.Now().UTC()

	assigneeSet := make(map[uuid.UUID]struct{})
	subtaskSet := make(map[uuid.UUID]struct{})
	for i := range tasks {
		if tasks[i].AssignedToID != nil {
			assigneeSet[*tasks[i].AssignedToID] = struct{}{}
		}
		for _, subID := range tasks[i].SubtaskIDs {
			subtaskSet[subID] = struct{}{}
		}
	}

	assignees := make(map[uuid.UUID]models.AssigneeInfo)
	if len(assigneeSet) > 0 {
		ids := make([]uuid.UUID, 0, len(assigneeSet))
		for id := range assigneeSet {
			ids = append(ids, id)
		}
		var users []models.User
		if err := db.DB.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return err
		}
		for i := range users {
			assignees[users[i].ID] = users[i].AssigneeInfo()
		}
	}

	subtasks := make(map[uuid.UUID]models.Task)
	if len(subtaskSet) > 0 {
		ids := make([]uuid.UUID, 0, len(subtaskSet))
		for id := range subtaskSet {
			ids = append(ids, id)
		}
		var records []models.Task
		if err := db.DB.Where("id IN ? AND user_id = ?", ids, userID).Find(&records).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].Decorate(now)
			subtasks[records[i].ID] = records[i]
		}
	}

	for i := range tasks {
		if tasks[i].AssignedToID != nil {
			if info, ok := assignees[*tasks[i].AssignedToID]; ok {
				tasks[i].Assignee = &info
			}
		}
		expanded := []models.Task{}
		for _, subID := range tasks[i].SubtaskIDs {
			if sub, ok := subtasks[subID]; ok {
				expanded = append(expanded, sub)
			}
		}
		tasks[i].Subtasks = expanded
		tasks[i].Decorate(now)
	}
	return nil
}

func taskEventPayload(task *models.Task) map[string]interface{} {
	return map[string]interface{}{
		"task_id":   task.ID.String(),
		"user_id":   task.UserID.String(),
		"title":     task.Title,
		"completed": task.Completed,
	}
}

var TaskServiceInstance TaskServiceInterface = &TaskService{}
