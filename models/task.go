package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Priority classifies how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryFinance  Category = "finance"
	CategoryTravel   Category = "travel"
	CategoryOther    Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryHealth, CategoryLearning,
		CategoryFinance, CategoryTravel, CategoryOther:
		return true
	}
	return false
}

// RecurrencePattern describes how often a recurring task repeats.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

func (r RecurrencePattern) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	}
	return errors.New("unsupported type for JSON column")
}

// StringList stores a list of strings as a JSONB column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	*l = StringList{}
	return scanJSON(value, l)
}

// UUIDList stores a list of record references as a JSONB column.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		l = UUIDList{}
	}
	return json.Marshal(l)
}

func (l *UUIDList) Scan(value interface{}) error {
	*l = UUIDList{}
	return scanJSON(value, l)
}

// Attachment is a file reference attached to a task.
type Attachment struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type AttachmentList []Attachment

func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		l = AttachmentList{}
	}
	return json.Marshal(l)
}

func (l *AttachmentList) Scan(value interface{}) error {
	*l = AttachmentList{}
	return scanJSON(value, l)
}

// Note is a timestamped comment appended to a task.
type Note struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type NoteList []Note

func (l NoteList) Value() (driver.Value, error) {
	if l == nil {
		l = NoteList{}
	}
	return json.Marshal(l)
}

func (l *NoteList) Scan(value interface{}) error {
	*l = NoteList{}
	return scanJSON(value, l)
}

// Task is a unit of work owned by exactly one user. The owner is set at
// creation and never changes.
type Task struct {
	ID                uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID          `gorm:"type:uuid;not null;index:idx_tasks_user" json:"user"`
	Title             string             `gorm:"size:200;not null" json:"title"`
	Description       string             `gorm:"size:1000" json:"description"`
	Completed         bool               `gorm:"default:false" json:"completed"`
	Priority          Priority           `gorm:"size:10;default:'medium'" json:"priority"`
	Category          Category           `gorm:"size:10;default:'personal'" json:"category"`
	DueDate           *time.Time         `gorm:"index" json:"dueDate"`
	Tags              StringList         `gorm:"type:jsonb" json:"tags"`
	AssignedToID      *uuid.UUID         `gorm:"type:uuid" json:"-"`
	IsRecurring       bool               `gorm:"default:false" json:"isRecurring"`
	RecurrencePattern *RecurrencePattern `gorm:"size:10" json:"recurrencePattern"`
	ParentTaskID      *uuid.UUID         `gorm:"type:uuid;index" json:"parentTask"`
	SubtaskIDs        UUIDList           `gorm:"type:jsonb" json:"-"`
	Attachments       AttachmentList     `gorm:"type:jsonb" json:"attachments"`
	Notes             NoteList           `gorm:"type:jsonb" json:"notes"`
	TimeSpent         int                `gorm:"default:0" json:"timeSpent"`
	EstimatedTime     *int               `json:"estimatedTime"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`

	// Populated at read time, never stored.
	Assignee     *AssigneeInfo `gorm:"-" json:"assignedTo"`
	Subtasks     []Task        `gorm:"-" json:"subtasks"`
	IsOverdue    bool          `gorm:"-" json:"isOverdue"`
	DaysUntilDue *int          `gorm:"-" json:"daysUntilDue"`
}

// OverdueAt reports whether the task's due date has passed without the
// task being completed.
func (t *Task) OverdueAt(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

// DaysUntilDueAt returns the calendar-day difference between now and the
// due date, rounded up; nil when there is no due date.
func (t *Task) DaysUntilDueAt(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	days := int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
	return &days
}

// Decorate fills the derived fields serialized alongside the stored ones.
func (t *Task) Decorate(now time.Time) {
	t.IsOverdue = t.OverdueAt(now)
	t.DaysUntilDue = t.DaysUntilDueAt(now)
	if t.Subtasks == nil {
		t.Subtasks = []Task{}
	}
	if t.Tags == nil {
		t.Tags = StringList{}
	}
	if t.Notes == nil {
		t.Notes = NoteList{}
	}
	if t.Attachments == nil {
		t.Attachments = AttachmentList{}
	}
}
