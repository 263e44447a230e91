package repository

import (
	"testing"

	"bloom-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	pending := func() *models.CoupleRequest {
		return &models.CoupleRequest{ID: "r1", RequesterID: "a", RecipientID: "b", Status: models.CoupleRequestPending}
	}

	tests := []struct {
		name    string
		status  models.CoupleRequestStatus
		caller  string
		action  RequestAction
		done    bool
		wantErr error
	}{
		{"recipient accepts", models.CoupleRequestPending, "b", ActionAccept, false, nil},
		{"recipient declines", models.CoupleRequestPending, "b", ActionDecline, false, nil},
		{"requester cancels", models.CoupleRequestPending, "a", ActionCancel, false, nil},
		{"requester cannot accept", models.CoupleRequestPending, "a", ActionAccept, false, ErrNotRecipient},
		{"recipient cannot cancel", models.CoupleRequestPending, "b", ActionCancel, false, ErrNotRequester},
		{"stranger cannot decline", models.CoupleRequestPending, "c", ActionDecline, false, ErrNotRecipient},
		{"accept retry", models.CoupleRequestAccepted, "b", ActionAccept, true, nil},
		{"cancel retry", models.CoupleRequestCanceled, "a", ActionCancel, true, nil},
		{"decline after accept", models.CoupleRequestAccepted, "b", ActionDecline, false, ErrNotPending},
		{"accept after expiry", models.CoupleRequestExpired, "b", ActionAccept, false, ErrNotPending},
		{"cancel after decline", models.CoupleRequestDeclined, "a", ActionCancel, false, ErrNotPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := pending()
			req.Status = tt.status

			done, err := CheckTransition(req, tt.caller, tt.action)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.done, done)
		})
	}
}

func TestCheckTransitionUnknownAction(t *testing.T) {
	req := &models.CoupleRequest{RequesterID: "a", RecipientID: "b", Status: models.CoupleRequestPending}
	_, err := CheckTransition(req, "a", RequestAction("reopen"))
	assert.Error(t, err)
}
