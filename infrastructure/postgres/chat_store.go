package postgres

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const selectSession = `
SELECT s.id, s.user_low, s.user_high, s.status, s.created_at, s.last_activity,
       s.message_count, s.unread_low, s.unread_high,
       m.id, m.sender, m.content, m.kind, m.created_at, m.is_read
FROM chat_sessions s
LEFT JOIN chat_messages m ON m.id = s.last_message_id`

// ChatStore keeps sessions and messages in PostgreSQL.
// The UNIQUE (user_low, user_high) constraint is the one-session-per-pair guarantee.
type ChatStore struct {
	db            *sql.DB
	log           *slog.Logger
	limitMessages *int
}

func NewChatStore(db *sql.DB, log *slog.Logger, limitMessages *int) *ChatStore {
	return &ChatStore{db: db, log: log, limitMessages: limitMessages}
}

var _ repositories.IChatRepository = (*ChatStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ChatStore) FindSession(ctx context.Context, pair chat.Pair) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx, selectSession+` WHERE s.user_low = $1 AND s.user_high = $2`,
		pair.Low.String(), pair.High.String())
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, pair.Key())
	}
	if err != nil {
		return chat.Session{}, persistence("failed to find session", err)
	}
	return session, nil
}

func (s *ChatStore) CreateSession(ctx context.Context, pair chat.Pair, at time.Time) (chat.Session, error) {
	session := chat.NewSession(uuid.NewString(), pair, at)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_low, user_high, status, created_at, last_activity)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, pair.Low.String(), pair.High.String(), string(session.Status),
		session.CreatedAt, session.LastActivity,
	)
	if isUniqueViolation(err) {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionAlreadyExists, pair.Key())
	}
	if err != nil {
		return chat.Session{}, persistence("failed to insert session", err)
	}
	s.log.Debug("Chat session created", "session_id", session.ID, "pair", pair.Key())
	return session, nil
}

func (s *ChatStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	session, err := scanSession(s.db.QueryRowContext(ctx, selectSession+` WHERE s.id = $1`, sessionID))
	if err == sql.ErrNoRows {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return chat.Session{}, persistence("failed to get session", err)
	}
	return session, nil
}

// AppendMessage locks the session row so that concurrent appends serialize on the summary.
func (s *ChatStore) AppendMessage(ctx context.Context, sessionID string, message chat.Message) (chat.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	message.SessionID = sessionID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Session{}, persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	session, err := scanSession(tx.QueryRowContext(ctx, selectSession+` WHERE s.id = $1 FOR UPDATE OF s`, sessionID))
	if err == sql.ErrNoRows {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return chat.Session{}, persistence("failed to lock session", err)
	}
	if err = session.Append(message); err != nil {
		return chat.Session{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, sender, content, kind, created_at, is_read)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		message.ID.String(), sessionID, message.Sender.String(), message.Content,
		string(message.Kind), message.CreatedAt, message.Read,
	)
	if err != nil {
		return chat.Session{}, persistence("failed to insert message", err)
	}
	if err = updateSummary(ctx, tx, session); err != nil {
		return chat.Session{}, err
	}
	if err = tx.Commit(); err != nil {
		return chat.Session{}, persistence("failed to commit transaction", err)
	}
	return session, nil
}

func (s *ChatStore) SetAllRead(ctx context.Context, sessionID string, reader chat.UserID) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	session, err := scanSession(tx.QueryRowContext(ctx, selectSession+` WHERE s.id = $1 FOR UPDATE OF s`, sessionID))
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return persistence("failed to lock session", err)
	}
	if err = session.MarkRead(reader); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE chat_messages SET is_read = TRUE
		 WHERE session_id = $1 AND sender <> $2 AND NOT is_read`,
		sessionID, reader.String(),
	)
	if err != nil {
		return persistence("failed to mark messages as read", err)
	}
	if err = updateSummary(ctx, tx, session); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return persistence("failed to commit transaction", err)
	}
	marked, _ := result.RowsAffected()
	s.log.Debug("Messages marked as read", "session_id", sessionID, "reader", reader, "count", marked)
	return nil
}

func (s *ChatStore) ListSessionsForUser(ctx context.Context, userID chat.UserID) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		selectSession+` WHERE s.user_low = $1 OR s.user_high = $1 ORDER BY s.last_activity DESC, s.id`,
		userID.String())
	if err != nil {
		return nil, persistence("failed to list sessions", err)
	}
	defer rows.Close()

	var sessions []chat.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, persistence("failed to scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("failed to iterate sessions", err)
	}
	return sessions, nil
}

// GetMessages pages the history newest first. The cursor has the same shape as
// the badger one, "{unix nanos %019d}:{message id}".
func (s *ChatStore) GetMessages(ctx context.Context, sessionID string, cursor *string) ([]chat.Message, *string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	var limit sql.NullInt64
	if s.limitMessages != nil {
		// One more row tells whether another page exists
		limit = sql.NullInt64{Int64: int64(*s.limitMessages) + 1, Valid: true}
	}

	var rows *sql.Rows
	var err error
	switch cursor {
	case nil:
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, session_id, sender, content, kind, created_at, is_read FROM chat_messages
			 WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
			sessionID, limit)
	default:
		at, id, parseErr := parseCursor(*cursor)
		if parseErr != nil {
			return nil, nil, parseErr
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, session_id, sender, content, kind, created_at, is_read FROM chat_messages
			 WHERE session_id = $1 AND (created_at, id) < ($2, $3::uuid)
			 ORDER BY created_at DESC, id DESC LIMIT $4`,
			sessionID, at, id, limit)
	}
	if err != nil {
		return nil, nil, persistence("failed to query messages", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		var id, sender, kind string
		if err := rows.Scan(&id, &m.SessionID, &sender, &m.Content, &kind, &m.CreatedAt, &m.Read); err != nil {
			return nil, nil, persistence("failed to scan message", err)
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, nil, persistence("invalid message id", err)
		}
		m.Sender, m.Kind, m.CreatedAt = chat.UserID(sender), chat.Kind(kind), m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, persistence("failed to iterate messages", err)
	}

	if s.limitMessages == nil || len(messages) <= *s.limitMessages {
		return messages, nil, nil
	}
	messages = messages[:*s.limitMessages]
	last := messages[len(messages)-1]
	next := fmt.Sprintf("%019d:%s", last.CreatedAt.UnixNano(), last.ID)
	return messages, &next, nil
}

func parseCursor(cursor string) (time.Time, string, error) {
	nanos, id, ok := strings.Cut(cursor, ":")
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: cursor %q", errors.ErrMalformedPayload, cursor)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: cursor %q", errors.ErrMalformedPayload, cursor)
	}
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, "", fmt.Errorf("%w: cursor %q", errors.ErrMalformedPayload, cursor)
	}
	return time.Unix(0, n).UTC(), id, nil
}

func updateSummary(ctx context.Context, tx *sql.Tx, session chat.Session) error {
	var lastID sql.NullString
	if session.LastMessage != nil {
		lastID = sql.NullString{String: session.LastMessage.ID.String(), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions
		 SET last_activity = $2, message_count = $3, unread_low = $4, unread_high = $5, last_message_id = $6
		 WHERE id = $1`,
		session.ID, session.LastActivity, session.MessageCount,
		session.UnreadFor(session.Participants.Low), session.UnreadFor(session.Participants.High), lastID,
	)
	if err != nil {
		return persistence("failed to update session", err)
	}
	return nil
}

func scanSession(row rowScanner) (chat.Session, error) {
	var (
		session             chat.Session
		low, high, status   string
		unreadLow, unreadHi int
		msgID, msgSender    sql.NullString
		msgContent, msgKind sql.NullString
		msgCreatedAt        sql.NullTime
		msgRead             sql.NullBool
	)
	err := row.Scan(&session.ID, &low, &high, &status, &session.CreatedAt, &session.LastActivity,
		&session.MessageCount, &unreadLow, &unreadHi,
		&msgID, &msgSender, &msgContent, &msgKind, &msgCreatedAt, &msgRead)
	if err != nil {
		return chat.Session{}, err
	}
	session.Participants = chat.Pair{Low: chat.UserID(low), High: chat.UserID(high)}
	session.Status = chat.Status(status)
	session.CreatedAt = session.CreatedAt.UTC()
	session.LastActivity = session.LastActivity.UTC()
	session.Unread = map[chat.UserID]int{session.Participants.Low: unreadLow, session.Participants.High: unreadHi}

	if msgID.Valid {
		id, err := uuid.Parse(msgID.String)
		if err != nil {
			return chat.Session{}, err
		}
		session.LastMessage = &chat.Message{
			ID:        id,
			SessionID: session.ID,
			Sender:    chat.UserID(msgSender.String),
			Content:   msgContent.String,
			Kind:      chat.Kind(msgKind.String),
			CreatedAt: msgCreatedAt.Time.UTC(),
			Read:      msgRead.Bool,
		}
	}
	return session, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func persistence(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", errors.ErrPersistence, msg, err)
}
