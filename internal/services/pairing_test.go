package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestSendValidatesBeforeResolving(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	svc := f.pairing()

	_, err := svc.Send(as("AAA"), "   ", nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, f.resolver.Calls())
}

func TestSendRequiresIdentity(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")

	_, err := f.pairing().Send(context.Background(), "BBB", nil)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestSendNormalizesInput(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	svc := f.pairing()

	req, err := svc.Send(as("AAA"), "  BBB ", strPtr("  "))
	require.NoError(t, err)
	assert.Nil(t, req.Message)
	assert.Equal(t, models.CoupleRequestPending, req.Status)
	assert.Equal(t, userID("BBB"), req.RecipientID)

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, NotifyRequestReceived, sent[0].Kind)
	assert.Equal(t, userID("BBB"), sent[0].UserID)
}

func TestSendProviderRejectionIsRemote(t *testing.T) {
	f := newFixture(t, "AAA")

	_, err := f.pairing().Send(as("AAA"), "NOPE", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsRemote(err))
	assert.ErrorIs(t, err, repository.ErrRecipientNotFound)
	assert.Equal(t, repository.ErrRecipientNotFound.Error(), err.Error())
}

func TestPairingLifecycle(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	svc := f.pairing()

	req, err := svc.Send(as("AAA"), "BBB", strPtr("hi"))
	require.NoError(t, err)

	views, err := svc.List(as("AAA"))
	require.NoError(t, err)
	assert.Empty(t, views.Incoming)
	require.Len(t, views.Outgoing, 1)
	assert.Equal(t, req.ID, views.Outgoing[0].ID)

	views, err = svc.List(as("BBB"))
	require.NoError(t, err)
	require.Len(t, views.Incoming, 1)
	assert.Empty(t, views.Outgoing)

	coupleID, err := svc.Accept(as("BBB"), req.ID)
	require.NoError(t, err)
	require.NotEmpty(t, coupleID)

	views, err = svc.List(as("BBB"))
	require.NoError(t, err)
	assert.Empty(t, views.Incoming)
	require.Len(t, views.History, 1)
	assert.Equal(t, models.CoupleRequestAccepted, views.History[0].Status)

	last := f.notifier.Sent()[len(f.notifier.Sent())-1]
	assert.Equal(t, NotifyRequestAccepted, last.Kind)
	assert.Equal(t, userID("AAA"), last.UserID)
	assert.Equal(t, coupleID, last.CoupleID)
}

func TestTransitionsRequireRequestID(t *testing.T) {
	f := newFixture(t, "AAA")
	svc := f.pairing()

	_, err := svc.Accept(as("AAA"), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorIs(t, svc.Decline(as("AAA"), " "), apperr.ErrValidation)
	assert.ErrorIs(t, svc.Cancel(as("AAA"), ""), apperr.ErrValidation)
	assert.Zero(t, f.resolver.Calls())
}

func TestTransitionRoleChecks(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	svc := f.pairing()

	req, err := svc.Send(as("AAA"), "BBB", nil)
	require.NoError(t, err)

	_, err = svc.Accept(as("AAA"), req.ID)
	assert.ErrorIs(t, err, repository.ErrNotRecipient)
	assert.ErrorIs(t, svc.Cancel(as("BBB"), req.ID), repository.ErrNotRequester)

	require.NoError(t, svc.Decline(as("BBB"), req.ID))
	require.NoError(t, svc.Decline(as("BBB"), req.ID))
	assert.ErrorIs(t, svc.Cancel(as("AAA"), req.ID), repository.ErrNotPending)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, "AAA", "BBB")
	f.notifier.err = errors.New("push down")

	_, err := f.pairing().Send(as("AAA"), "BBB", nil)
	assert.NoError(t, err)
}

func TestPartition(t *testing.T) {
	rows := []*models.CoupleRequest{
		{ID: "1", RequesterID: "me", RecipientID: "x", Status: models.CoupleRequestPending},
		{ID: "2", RequesterID: "y", RecipientID: "me", Status: models.CoupleRequestPending},
		{ID: "3", RequesterID: "me", RecipientID: "z", Status: models.CoupleRequestDeclined},
		{ID: "4", RequesterID: "w", RecipientID: "me", Status: models.CoupleRequestExpired},
	}

	views := Partition("me", rows)
	require.Len(t, views.Outgoing, 1)
	assert.Equal(t, "1", views.Outgoing[0].ID)
	require.Len(t, views.Incoming, 1)
	assert.Equal(t, "2", views.Incoming[0].ID)
	assert.Len(t, views.History, 4)

	empty := Partition("me", nil)
	assert.NotNil(t, empty.Incoming)
	assert.NotNil(t, empty.Outgoing)
	assert.NotNil(t, empty.History)
}

// TestPairingRandomOperations applies random operations and checks that
// membership and pending uniqueness hold after every step.
func TestPairingRandomOperations(t *testing.T) {
	handles := []string{"AAA", "BBB", "CCC", "DDD", "EEE"}
	f := newFixture(t, handles...)
	svc := f.pairing()
	rng := rand.New(rand.NewSource(42))

	var ids []string
	terminal := map[string]models.CoupleRequestStatus{}

	for step := 0; step < 400; step++ {
		actor := handles[rng.Intn(len(handles))]
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			target := handles[rng.Intn(len(handles))]
			if req, err := svc.Send(as(actor), target, nil); err == nil {
				ids = append(ids, req.ID)
			}
		case op == 1:
			_, _ = svc.Accept(as(actor), ids[rng.Intn(len(ids))])
		case op == 2:
			_ = svc.Decline(as(actor), ids[rng.Intn(len(ids))])
		default:
			_ = svc.Cancel(as(actor), ids[rng.Intn(len(ids))])
		}

		couples := map[string]string{}
		for _, h := range handles {
			coupleID, err := f.store.Couples.CoupleIDForUser(context.Background(), userID(h))
			if err == nil {
				couples[userID(h)] = coupleID
			}

			views, err := svc.List(as(h))
			require.NoError(t, err)
			require.Len(t, views.History, len(views.Incoming)+len(views.Outgoing)+countTerminal(views.History))
			for _, req := range views.History {
				if req.Status == models.CoupleRequestPending {
					continue
				}
				if prev, ok := terminal[req.ID]; ok {
					require.Equal(t, prev, req.Status, "terminal status changed at step %d", step)
				}
				terminal[req.ID] = req.Status
			}
		}

		for _, id := range ids {
			req, err := f.store.CoupleRequests.GetByID(context.Background(), id)
			require.NoError(t, err)
			if req.Status == models.CoupleRequestAccepted {
				require.Equal(t, couples[req.RequesterID], couples[req.RecipientID],
					fmt.Sprintf("accepted request %s does not link one couple", id))
			}
		}

		counts := map[string]int{}
		for _, id := range ids {
			req, _ := f.store.CoupleRequests.GetByID(context.Background(), id)
			if req.Status != models.CoupleRequestPending {
				continue
			}
			a, b := req.RequesterID, req.RecipientID
			if a > b {
				a, b = b, a
			}
			counts[a+"|"+b]++
			require.LessOrEqual(t, counts[a+"|"+b], 1, "two pending requests between %s and %s", a, b)
		}

		members := map[string]int{}
		for _, coupleID := range couples {
			members[coupleID]++
		}
		for coupleID, n := range members {
			require.Equal(t, 2, n, "couple %s has %d members", coupleID, n)
		}
	}
}

func countTerminal(rows []*models.CoupleRequest) int {
	n := 0
	for _, r := range rows {
		if r.Status.Terminal() {
			n++
		}
	}
	return n
}
