package session

import "context"

// Source loads a session by id.
type Source interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Name() string
}
