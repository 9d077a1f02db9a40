package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ProfileStore holds master profiles. The pipeline only reads profiles; saving is
// done by the server layer.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, userID string, p *Profile) error
}

// ErrProfileNotFound is returned by GetProfile for an unknown user.
var ErrProfileNotFound = errors.New("profile not found")

// Store is the combined persistence surface the server uses.
type Store interface {
	ProfileStore
	ApplicationStore
	Close() error
}

// encodeProfile validates p and serialises it for storage.
func encodeProfile(userID string, p *Profile) ([]byte, error) {
	if userID == "" {
		return nil, validationErr("user_id", "user id is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	return b, nil
}

func decodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return &p, nil
}
