package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessLevelOrdering(t *testing.T) {
	require.True(t, AccessLevelApprove.Allows(AccessLevelView))
	require.True(t, AccessLevelReview.Allows(AccessLevelComment))
	require.False(t, AccessLevelComment.Allows(AccessLevelReview))
	require.False(t, AccessLevel("owner").Allows(AccessLevelView))
}

func TestNewDeliverableGrantValidates(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	_, err := NewDeliverableGrant(DeliverableGrantInput{
		DeliverableID:   "deliverable-1",
		GrantedByUserID: "user-1",
		GranteeUserID:   "user-1",
		ExpiresAt:       &past,
	}, now)
	require.ErrorIs(t, err, ErrInvalidGrant)
	fieldErrors, _ := FieldErrorsOf(err)
	require.Equal(t, FieldErrorInvalidValue, fieldErrors["grantee_user_id"])
	require.Equal(t, FieldErrorInPast, fieldErrors["expires_at"])
}

func TestDeliverableGrantLifecycle(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(48 * time.Hour)

	grant, err := NewDeliverableGrant(DeliverableGrantInput{
		DeliverableID:   "deliverable-1",
		GrantedByUserID: "user-1",
		GranteeUserID:   "user-2",
		AccessLevel:     string(AccessLevelComment),
		ExpiresAt:       &expiresAt,
	}, now)
	require.NoError(t, err)
	require.True(t, grant.Permits(AccessLevelView, now))
	require.False(t, grant.Permits(AccessLevelApprove, now))
	require.False(t, grant.IsActive(expiresAt))

	grant.Revoke(now)
	firstRevocation := *grant.RevokedAt
	grant.Revoke(now.Add(time.Hour))
	require.Equal(t, firstRevocation, *grant.RevokedAt)
	require.False(t, grant.IsActive(now))
}

func TestNewDeliverableGrantDefaultsToView(t *testing.T) {
	grant, err := NewDeliverableGrant(DeliverableGrantInput{
		DeliverableID:   "deliverable-1",
		GrantedByUserID: "user-1",
		GranteeUserID:   "user-2",
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, AccessLevelView, grant.AccessLevel)
	require.Nil(t, grant.ExpiresAt)
}
