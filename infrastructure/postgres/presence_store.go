package postgres

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"database/sql"
	"fmt"
)

var _ repositories.IPresenceRepository = (*PresenceStore)(nil)

type PresenceStore struct {
	db *sql.DB
}

func NewPresenceStore(db *sql.DB) *PresenceStore {
	return &PresenceStore{db: db}
}

func (p *PresenceStore) SetPresence(ctx context.Context, presence repositories.Presence) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_presence (user_id, online, last_seen) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET online = EXCLUDED.online, last_seen = EXCLUDED.last_seen`,
		presence.UserID.String(), presence.Online, presence.LastSeen.UTC(),
	)
	if err != nil {
		return persistence("failed to upsert presence", err)
	}
	return nil
}

func (p *PresenceStore) GetPresence(ctx context.Context, userID chat.UserID) (repositories.Presence, error) {
	presence := repositories.Presence{UserID: userID}
	err := p.db.QueryRowContext(ctx,
		`SELECT online, last_seen FROM user_presence WHERE user_id = $1`, userID.String(),
	).Scan(&presence.Online, &presence.LastSeen)
	if err == sql.ErrNoRows {
		return repositories.Presence{}, fmt.Errorf("%w: %s", errors.ErrPresenceNotFound, userID)
	}
	if err != nil {
		return repositories.Presence{}, persistence("failed to get presence", err)
	}
	presence.LastSeen = presence.LastSeen.UTC()
	return presence, nil
}
