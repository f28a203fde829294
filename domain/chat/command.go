package chat

// GetMessagesCommand asks for one page of a session history, newest first.
// Cursor is the opaque value returned by the previous page.
type GetMessagesCommand struct {
	SessionID string
	Viewer    UserID
	Cursor    *string
}

// MarkReadCommand is the read receipt of a viewer on a session.
type MarkReadCommand struct {
	SessionID string
	Viewer    UserID
}
