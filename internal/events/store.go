package events

// MessagePosted is emitted after a message was added to the entity store.
type MessagePosted struct {
	ID     string
	UserID string
}

// MessageDeleted is emitted after a message was removed from the entity store.
type MessageDeleted struct {
	ID string
}
