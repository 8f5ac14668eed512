package broker

type EventType string

// Event types double as NATS subjects, in <resource>.<action> format.
const (
	TaskCreated   EventType = "task.created"
	TaskUpdated   EventType = "task.updated"
	TaskDeleted   EventType = "task.deleted"
	TaskNoteAdded EventType = "task.note_added"

	UserRegistered EventType = "user.registered"
	UserUpdated    EventType = "user.updated"
)
