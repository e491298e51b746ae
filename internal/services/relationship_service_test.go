package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
)

// fakeRelationshipRepo is an in-memory RelationshipRepository for service
// tests.
type fakeRelationshipRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RelationshipStatus // by user id
}

func newFakeRelationshipRepo() *fakeRelationshipRepo {
	return &fakeRelationshipRepo{rows: make(map[string]*models.RelationshipStatus)}
}

func (r *fakeRelationshipRepo) GetByUserID(_ context.Context, userID string) (*models.RelationshipStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRelationshipRepo) GetByID(_ context.Context, id string) (*models.RelationshipStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRelationshipRepo) PendingForPartner(_ context.Context, partnerID string) ([]models.RelationshipStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.RelationshipStatus{}
	for _, row := range r.rows {
		if row.PartnerID != nil && *row.PartnerID == partnerID && !row.PartnerAccepted {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRelationshipRepo) Save(_ context.Context, status *models.RelationshipStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[status.UserID]; ok {
		status.ID = existing.ID
	} else if status.ID == "" {
		status.ID = uuid.NewString()
	}
	cp := *status
	r.rows[status.UserID] = &cp
	return nil
}

func (r *fakeRelationshipRepo) MarkAccepted(_ context.Context, userID, partnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok && row.PartnerID != nil && *row.PartnerID == partnerID {
		row.PartnerAccepted = true
	}
	return nil
}

func (r *fakeRelationshipRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

func (r *fakeRelationshipRepo) DeletePair(_ context.Context, userID, partnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok && row.PartnerID != nil && *row.PartnerID == partnerID {
		delete(r.rows, userID)
	}
	return nil
}

func (r *fakeRelationshipRepo) DeleteUnaccepted(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok && !row.PartnerAccepted {
		delete(r.rows, userID)
	}
	return nil
}

func actorFor(id string) live.ActorProfile {
	return live.ActorProfile{ID: id, Username: id, DisplayName: id}
}

func newRelationshipFixture(t *testing.T) (*fixture, *RelationshipService) {
	t.Helper()
	f := newFixture(t)
	svc := NewRelationshipService(newFakeRelationshipRepo(), NewStatusHub(), f.fanout)
	return f, svc
}

func TestSetValidatesInput(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()
	alice := actorFor("alice")

	err := svc.Set(ctx, alice, models.SetRelationshipRequest{StatusType: "polycule"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = svc.Set(ctx, alice, models.SetRelationshipRequest{StatusType: models.StatusMarried})
	assert.ErrorIs(t, err, ErrPartnerRequired)

	err = svc.Set(ctx, alice, models.SetRelationshipRequest{StatusType: models.StatusMarried, PartnerID: "alice"})
	assert.ErrorIs(t, err, ErrSelfTarget)
}

func TestSoloStatusIsImmediatelyAuthoritative(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{StatusType: models.StatusSingle}))

	row, err := svc.Current(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.StatusSingle, row.StatusType)
	assert.Nil(t, row.PartnerID)
}

func TestPartneredStatusIsPendingUntilAccepted(t *testing.T) {
	f, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusEngaged,
		PartnerID:  "bob",
	}))

	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].UserID)
	assert.False(t, pending[0].PartnerAccepted)

	// The partner is notified of the proposal.
	require.Eventually(t, func() bool {
		items, err := f.notifications.List(ctx, "bob")
		return err == nil && len(items) == 1 && items[0].Value.Type == models.NotificationRelationship
	}, time.Second, time.Millisecond)

	// bob has no status of his own yet.
	row, err := svc.Current(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAcceptMirrorsAndMarksBothSides(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusMarried,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Accept(ctx, actorFor("bob"), pending[0].ID))

	aliceRow, err := svc.Current(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, aliceRow)
	assert.True(t, aliceRow.PartnerAccepted)

	bobRow, err := svc.Current(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, bobRow)
	assert.Equal(t, models.StatusMarried, bobRow.StatusType)
	assert.True(t, bobRow.PartnerAccepted)
	require.NotNil(t, bobRow.PartnerID)
	assert.Equal(t, "alice", *bobRow.PartnerID)

	// Accepting again is a no-op, and the request list is empty.
	require.NoError(t, svc.Accept(ctx, actorFor("bob"), pending[0].ID))
	left, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestAcceptIsPartnerOnly(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusEngaged,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	err = svc.Accept(ctx, actorFor("mallory"), pending[0].ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Accept(ctx, actorFor("bob"), "no-such-request")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectDropsTheProposal(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusEngaged,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Reject(ctx, "bob", pending[0].ID))

	row, err := svc.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, row, "a rejected proposal removes the proposer's pending row")
}

func TestRejectAfterAcceptIsRefusedAndKeepsTheRow(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusEngaged,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, svc.Accept(ctx, actorFor("bob"), pending[0].ID))

	err = svc.Reject(ctx, "bob", pending[0].ID)
	assert.ErrorIs(t, err, ErrForbidden)

	row, err := svc.Current(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, row, "an accepted status must survive a late reject")
	assert.True(t, row.PartnerAccepted)
}

func TestClearRemovesBothSides(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusMarried,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, actorFor("bob"), pending[0].ID))

	require.NoError(t, svc.Clear(ctx, "alice"))

	aliceRow, err := svc.Current(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, aliceRow)
	bobRow, err := svc.Current(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, bobRow, "the partner's mirrored row goes with it")
}

func TestSwitchingToSoloOrphansDropsPartnerMirror(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusMarried,
		PartnerID:  "bob",
	}))
	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, actorFor("bob"), pending[0].ID))

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{StatusType: models.StatusSingle}))

	bobRow, err := svc.Current(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, bobRow, "bob's row claiming alice must not survive alice going single")
}

func TestWatchSignalsOnMutation(t *testing.T) {
	_, svc := newRelationshipFixture(t)
	ctx := context.Background()

	ch, cancel := svc.Watch("bob")
	defer cancel()

	require.NoError(t, svc.Set(ctx, actorFor("alice"), models.SetRelationshipRequest{
		StatusType: models.StatusEngaged,
		PartnerID:  "bob",
	}))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal for the named partner")
	}
}
