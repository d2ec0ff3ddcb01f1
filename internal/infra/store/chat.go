package store

import (
	"context"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	"mcpmarket/internal/domain"
)

// Chat history lives in one nested bucket per session, keyed by sequence so
// cursor order is insertion order.

func (s *Store) AppendChatTurn(ctx context.Context, turn domain.ChatTurn) (domain.ChatTurn, error) {
	sessionID := strings.TrimSpace(turn.SessionID)
	if sessionID == "" {
		return domain.ChatTurn{}, fmt.Errorf("chat session id: %w", domain.ErrInvalidRequest)
	}
	out := turn
	out.SessionID = sessionID
	err := s.update(ctx, func(tx *bolt.Tx) error {
		chat, err := bucket(tx, chatBucketName)
		if err != nil {
			return err
		}
		session, err := chat.CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return fmt.Errorf("%w: create chat session %s: %v", domain.ErrStore, sessionID, err)
		}
		id, err := nextID(session)
		if err != nil {
			return err
		}
		out.ID = id
		if out.CreatedAt.IsZero() {
			out.CreatedAt = s.timestamp()
		}
		return putJSON(session, id, out)
	})
	if err != nil {
		return domain.ChatTurn{}, err
	}
	return out, nil
}

// RecentChatTurns returns at most limit of the latest turns of a session in
// chronological order. A non-positive limit returns the whole history.
func (s *Store) RecentChatTurns(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	var out []domain.ChatTurn
	err := s.view(ctx, func(tx *bolt.Tx) error {
		chat, err := bucket(tx, chatBucketName)
		if err != nil {
			return err
		}
		session := chat.Bucket([]byte(strings.TrimSpace(sessionID)))
		if session == nil {
			return nil
		}
		cursor := session.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var turn domain.ChatTurn
			if err := decode(k, v, &turn); err != nil {
				return err
			}
			out = append(out, turn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ChatHistory returns every turn of a session, oldest first.
func (s *Store) ChatHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return s.RecentChatTurns(ctx, sessionID, 0)
}

// DeleteChatHistory drops a session. It reports false when nothing was stored.
func (s *Store) DeleteChatHistory(ctx context.Context, sessionID string) (bool, error) {
	deleted := false
	err := s.update(ctx, func(tx *bolt.Tx) error {
		chat, err := bucket(tx, chatBucketName)
		if err != nil {
			return err
		}
		name := []byte(strings.TrimSpace(sessionID))
		if chat.Bucket(name) == nil {
			return nil
		}
		if err := chat.DeleteBucket(name); err != nil {
			return fmt.Errorf("%w: delete chat session %s: %v", domain.ErrStore, sessionID, err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}
