package broker

// NATS subjects for entity lifecycle events.
const (
	TaskEventsSubject = "task.>"
	UserEventsSubject = "user.>"
)
