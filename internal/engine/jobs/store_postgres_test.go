//go:build integration

package jobs

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/engine/jobs/
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := ConnectPostgresStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	user := "test-" + uuid.NewString()

	_, err = s.GetProfile(ctx, user)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	require.NoError(t, s.SaveProfile(ctx, user, acmeProfile()))
	got, err := s.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, acmeProfile(), got)

	id, err := s.AddApplication(ctx, Application{UserID: user, Title: "Backend Engineer", Score: 0.88, Label: LabelExcellent})
	require.NoError(t, err)
	require.NoError(t, s.UpdateApplication(ctx, ApplicationUpdate{ID: id, UserID: user, Status: "applied"}))

	apps, total, err := s.ListApplications(ctx, ApplicationFilter{UserID: user, Status: "applied"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, apps, 1)
	assert.Equal(t, StatusApplied, apps[0].Status)
	assert.InDelta(t, 0.88, apps[0].Score, 1e-9)

	err = s.UpdateApplication(ctx, ApplicationUpdate{ID: id, UserID: "someone-else", Notes: "x"})
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}
