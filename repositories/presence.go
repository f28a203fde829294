//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Presence is the last known connectivity state of a user.
type Presence struct {
	UserID   chat.UserID
	Online   bool
	LastSeen time.Time
}

type IPresenceRepository interface {
	SetPresence(ctx context.Context, presence Presence) error
	GetPresence(ctx context.Context, userID chat.UserID) (Presence, error)
}

type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) PresenceRepository {
	return PresenceRepository{db: db}
}

type diskPresence struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

func presenceKey(userID chat.UserID) []byte { return []byte("presence:" + userID.String()) }

// SetPresence overwrites the record, last writer wins.
func (p PresenceRepository) SetPresence(ctx context.Context, presence Presence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(diskPresence{Online: presence.Online, LastSeen: presence.LastSeen.UTC()})
	if err != nil {
		return err
	}
	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(presence.UserID), data)
	})
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (p PresenceRepository) GetPresence(ctx context.Context, userID chat.UserID) (Presence, error) {
	if err := ctx.Err(); err != nil {
		return Presence{}, err
	}
	var dp diskPresence
	err := p.db.View(func(txn *badger.Txn) error {
		data, err := getValue(txn, presenceKey(userID))
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &dp)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Presence{}, fmt.Errorf("%w: %s", errors.ErrPresenceNotFound, userID)
	}
	if err != nil {
		return Presence{}, persistence(err)
	}
	return Presence{UserID: userID, Online: dp.Online, LastSeen: dp.LastSeen.UTC()}, nil
}
