//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// maxConflictRetries bounds the optimistic retries of AppendMessage and SetAllRead.
// Writers of a same session are serialized in process, a conflict left here
// comes from badger's key fingerprints colliding across sessions.
const maxConflictRetries = 5

// IChatRepository is the persistent chat store.
// The store guarantees a single session per sorted pair of participants.
type IChatRepository interface {
	FindSession(ctx context.Context, pair chat.Pair) (chat.Session, error)
	CreateSession(ctx context.Context, pair chat.Pair, at time.Time) (chat.Session, error)
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, sessionID string, message chat.Message) (chat.Session, error)
	SetAllRead(ctx context.Context, sessionID string, reader chat.UserID) error
	ListSessionsForUser(ctx context.Context, userID chat.UserID) ([]chat.Session, error)
	GetMessages(ctx context.Context, sessionID string, cursor *string) ([]chat.Message, *string, error)
}

// ChatRepository is the badger chat store. Badger is embedded, so the process
// owning the DB is the only writer and per-session locks are enough to order appends.
type ChatRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	locks         *sessionLocks
}

func NewChatRepository(db *badger.DB, log *slog.Logger, limitMessages *int) ChatRepository {
	return ChatRepository{db: db, log: log, limitMessages: limitMessages, locks: newSessionLocks()}
}

// Key layout:
//
//	session:{id}                          -> diskSession
//	pair:{low}:{high}                     -> session id (uniqueness constraint)
//	user:{id}:session:{session id}        -> empty (listing index)
//	msg:{session id}:{nanos %019d}:{uuid} -> diskMessage
func sessionKey(id string) []byte { return []byte("session:" + id) }

func pairKey(pair chat.Pair) []byte { return []byte("pair:" + pair.Key()) }

func userSessionPrefix(userID chat.UserID) string {
	return fmt.Sprintf("user:%s:session:", userID)
}

func messagePrefix(sessionID string) string { return fmt.Sprintf("msg:%s:", sessionID) }

// messageKey sorts chronologically thanks to the 19 digits zero padding,
// the uuid breaks ties between two messages of the same nanosecond.
func messageKey(m chat.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix(m.SessionID), m.CreatedAt.UnixNano(), m.ID))
}

type diskMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type diskSession struct {
	ID           string         `json:"id"`
	Low          string         `json:"low"`
	High         string         `json:"high"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	MessageCount int            `json:"message_count"`
	LastMessage  *diskMessage   `json:"last_message,omitempty"`
	Unread       map[string]int `json:"unread"`
}

// FindSession looks the session up through the pair index.
func (r ChatRepository) FindSession(ctx context.Context, pair chat.Pair) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	var session chat.Session
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getValue(txn, pairKey(pair))
		if err != nil {
			return err
		}
		session, err = readSession(txn, string(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, pair.Key())
	}
	if err != nil {
		return chat.Session{}, persistence(err)
	}
	return session, nil
}

// CreateSession inserts a new session for pair.
// Two concurrent creations of the same pair both read the pair key, badger
// detects the conflict at commit and only the first one wins.
func (r ChatRepository) CreateSession(ctx context.Context, pair chat.Pair, at time.Time) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	session := chat.NewSession(uuid.NewString(), pair, at)
	data, err := json.Marshal(fromSession(session))
	if err != nil {
		return chat.Session{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(pairKey(pair))
		if err == nil {
			return errors.ErrSessionAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(pairKey(pair), []byte(session.ID)); err != nil {
			return err
		}
		if err := txn.Set(sessionKey(session.ID), data); err != nil {
			return err
		}
		for _, userID := range pair.Participants() {
			if err := txn.Set([]byte(userSessionPrefix(userID)+session.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
		r.log.Debug("Chat session created", "session_id", session.ID, "pair", pair.Key())
		return session, nil
	case errors.Is(err, errors.ErrSessionAlreadyExists), errors.Is(err, badger.ErrConflict):
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionAlreadyExists, pair.Key())
	default:
		return chat.Session{}, persistence(err)
	}
}

func (r ChatRepository) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	var session chat.Session
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		session, err = readSession(txn, sessionID)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return chat.Session{}, persistence(err)
	}
	return session, nil
}

// AppendMessage stores the message and updates the session summary atomically.
func (r ChatRepository) AppendMessage(ctx context.Context, sessionID string, message chat.Message) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	message.SessionID = sessionID
	data, err := json.Marshal(fromMessage(message))
	if err != nil {
		return chat.Session{}, err
	}

	unlock := r.locks.lock(sessionID)
	defer unlock()

	var session chat.Session
	err = r.retryOnConflict(func(txn *badger.Txn) error {
		var err error
		session, err = readSession(txn, sessionID)
		if err != nil {
			return err
		}
		if err = session.Append(message); err != nil {
			return err
		}
		if err = txn.Set(messageKey(message), data); err != nil {
			return err
		}
		return writeSession(txn, session)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return chat.Session{}, persistence(err)
	}
	return session, nil
}

// SetAllRead flags as read every message of the session not authored by reader
// and resets the reader's unread counter. The reader's own messages are left untouched.
func (r ChatRepository) SetAllRead(ctx context.Context, sessionID string, reader chat.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.locks.lock(sessionID)
	defer unlock()

	marked := 0
	err := r.retryOnConflict(func(txn *badger.Txn) error {
		session, err := readSession(txn, sessionID)
		if err != nil {
			return err
		}
		if err = session.MarkRead(reader); err != nil {
			return err
		}

		updates, err := unreadFrom(txn, sessionID, reader)
		if err != nil {
			return err
		}
		for key, data := range updates {
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		marked = len(updates)
		return writeSession(txn, session)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return persistence(err)
	}
	r.log.Debug("Messages marked as read", "session_id", sessionID, "reader", reader, "count", marked)
	return nil
}

// ListSessionsForUser returns the sessions of userID, most recent activity first.
func (r ChatRepository) ListSessionsForUser(ctx context.Context, userID chat.UserID) ([]chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sessions []chat.Session
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userSessionPrefix(userID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false // the index lives in the keys
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			sessionID := string(it.Item().Key()[len(prefix):])
			session, err := readSession(txn, sessionID)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Warn("Dangling session index", "user_id", userID, "session_id", sessionID)
				continue
			}
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}
	slices.SortStableFunc(sessions, func(a, b chat.Session) int {
		return b.LastActivity.Compare(a.LastActivity)
	})
	return sessions, nil
}

// GetMessages returns one page of the session history, newest first, using a reverse prefix scan.
// The returned cursor points after the last message of the page, it is nil once the history is exhausted.
func (r ChatRepository) GetMessages(ctx context.Context, sessionID string, cursor *string) ([]chat.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var messages []chat.Message
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(sessionID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Past the newest possible key, then walk backwards
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefixStr):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(messages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d message reached", *r.limitMessages))
				return nil
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			var m diskMessage
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
				return err
			}
			message, err := toMessage(m)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		// History exhausted
		lastKey = ""
		return nil
	})
	if err != nil {
		return nil, nil, persistence(err)
	}
	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// retryOnConflict runs fn in a read-write transaction, retrying when a concurrent writer won the commit.
func (r ChatRepository) retryOnConflict(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("Transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

// unreadFrom collects, flagged as read, the unread messages of the session not authored by reader.
func unreadFrom(txn *badger.Txn, sessionID string, reader chat.UserID) (map[string][]byte, error) {
	prefix := []byte(messagePrefix(sessionID))
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	updates := make(map[string][]byte)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var m diskMessage
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
			return nil, err
		}
		if m.Read || chat.UserID(m.Sender) == reader {
			continue
		}
		m.Read = true
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		updates[string(item.Key())] = data
	}
	return updates, nil
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readSession(txn *badger.Txn, sessionID string) (chat.Session, error) {
	data, err := getValue(txn, sessionKey(sessionID))
	if err != nil {
		return chat.Session{}, err
	}
	var ds diskSession
	if err := json.Unmarshal(data, &ds); err != nil {
		return chat.Session{}, err
	}
	return toSession(ds)
}

func writeSession(txn *badger.Txn, session chat.Session) error {
	data, err := json.Marshal(fromSession(session))
	if err != nil {
		return err
	}
	return txn.Set(sessionKey(session.ID), data)
}

// persistence keeps domain errors as they are and flags everything else as a storage failure.
func persistence(err error) error {
	if errors.Is(err, errors.ErrValidation) || errors.Is(err, errors.ErrNotFound) ||
		errors.Is(err, errors.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
}

func fromMessage(m chat.Message) diskMessage {
	return diskMessage{
		ID:        m.ID.String(),
		SessionID: m.SessionID,
		Sender:    m.Sender.String(),
		Content:   m.Content,
		Kind:      string(m.Kind),
		CreatedAt: m.CreatedAt.UTC(),
		Read:      m.Read,
	}
}

func toMessage(d diskMessage) (chat.Message, error) {
	parsedID, err := uuid.Parse(d.ID)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        parsedID,
		SessionID: d.SessionID,
		Sender:    chat.UserID(d.Sender),
		Content:   d.Content,
		Kind:      chat.Kind(d.Kind),
		CreatedAt: d.CreatedAt.UTC(),
		Read:      d.Read,
	}, nil
}

func fromSession(s chat.Session) diskSession {
	ds := diskSession{
		ID:           s.ID,
		Low:          s.Participants.Low.String(),
		High:         s.Participants.High.String(),
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt.UTC(),
		LastActivity: s.LastActivity.UTC(),
		MessageCount: s.MessageCount,
		Unread:       make(map[string]int, len(s.Unread)),
	}
	for userID, n := range s.Unread {
		ds.Unread[userID.String()] = n
	}
	if s.LastMessage != nil {
		last := fromMessage(*s.LastMessage)
		ds.LastMessage = &last
	}
	return ds
}

func toSession(ds diskSession) (chat.Session, error) {
	s := chat.Session{
		ID:           ds.ID,
		Participants: chat.Pair{Low: chat.UserID(ds.Low), High: chat.UserID(ds.High)},
		Status:       chat.Status(ds.Status),
		CreatedAt:    ds.CreatedAt.UTC(),
		LastActivity: ds.LastActivity.UTC(),
		MessageCount: ds.MessageCount,
		Unread:       make(map[chat.UserID]int, len(ds.Unread)),
	}
	for userID, n := range ds.Unread {
		s.Unread[chat.UserID(userID)] = n
	}
	if ds.LastMessage != nil {
		last, err := toMessage(*ds.LastMessage)
		if err != nil {
			return chat.Session{}, err
		}
		s.LastMessage = &last
	}
	return s, nil
}
