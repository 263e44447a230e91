package postgres

import (
	"context"
	"testing"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID(uuid.New().String()))
	assert.False(t, isUUID(""))
	assert.False(t, isUUID("q1"))
	assert.False(t, isUUID("1; DROP TABLE answers"))
}

// Malformed ids are answered as missing rows before any query runs, so
// these repositories are built without a pool.
func TestMalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	caller := uuid.New().String()

	answers := NewAnswerRepository(nil)
	_, err := answers.ListByQuestion(ctx, caller, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrQuestionNotFound)
	_, err = answers.Upsert(ctx, &models.Answer{QuestionID: "not-a-uuid", UserID: caller, Content: "hi"})
	assert.ErrorIs(t, err, repository.ErrQuestionNotFound)

	requests := NewCoupleRequestRepository(nil)
	_, err = requests.GetByID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrRequestNotFound)
	_, err = requests.Accept(ctx, caller, "r1")
	assert.ErrorIs(t, err, repository.ErrRequestNotFound)
	assert.ErrorIs(t, requests.Decline(ctx, caller, "r1"), repository.ErrRequestNotFound)
	assert.ErrorIs(t, requests.Cancel(ctx, caller, "r1"), repository.ErrRequestNotFound)

	journals := NewJournalRepository(nil)
	_, err = journals.GetByID(ctx, "j1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, journals.Update(ctx, &models.Journal{ID: "j1", UserID: caller}), repository.ErrNotFound)
	assert.ErrorIs(t, journals.SetAISummary(ctx, "j1", "short"), repository.ErrNotFound)
	summaries, err := journals.ListSummaries(ctx, "j1")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	_, err = NewPromptRepository(nil).GetByID(ctx, "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
