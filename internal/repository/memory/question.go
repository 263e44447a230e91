package memory

import (
	"context"
	"sort"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
)

type questionRepository struct {
	db *DB
}

func cloneQuestion(q *models.Question) *models.Question {
	cp := *q
	cp.PromptID = cloneString(q.PromptID)
	cp.CoupleID = cloneString(q.CoupleID)
	cp.ScheduledFor = cloneString(q.ScheduledFor)
	cp.CreatedBy = cloneString(q.CreatedBy)
	cp.ModelSource = cloneString(q.ModelSource)
	return &cp
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if question.CoupleID != nil && question.ScheduledFor != nil {
		for _, q := range r.db.questions {
			if q.CoupleID != nil && q.ScheduledFor != nil &&
				*q.CoupleID == *question.CoupleID && *q.ScheduledFor == *question.ScheduledFor {
				return repository.ErrDuplicateDate
			}
		}
	}
	if question.ID == "" {
		question.ID = uuid.New().String()
	}
	question.CreatedAt = r.db.tick()
	r.db.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (r *questionRepository) GetForDate(ctx context.Context, coupleID, date string) (*models.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, q := range r.db.questions {
		if q.CoupleID != nil && q.ScheduledFor != nil && *q.CoupleID == coupleID && *q.ScheduledFor == date {
			return cloneQuestion(q), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *questionRepository) CompletedDates(ctx context.Context, coupleID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	members := r.db.membersOf(coupleID)
	if len(members) < 2 {
		return nil, nil
	}

	var dates []string
	for _, q := range r.db.questions {
		if q.CoupleID == nil || q.ScheduledFor == nil || *q.CoupleID != coupleID {
			continue
		}
		complete := true
		for _, m := range members {
			if _, ok := r.db.answers[answerKey(q.ID, m.UserID)]; !ok {
				complete = false
				break
			}
		}
		if complete {
			dates = append(dates, *q.ScheduledFor)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

type answerRepository struct {
	db *DB
}

func answerKey(questionID, userID string) string {
	return questionID + "/" + userID
}

func cloneAnswer(a *models.Answer) *models.Answer {
	cp := *a
	if a.Mood != nil {
		cp.Mood = make(map[string]any, len(a.Mood))
		for k, v := range a.Mood {
			cp.Mood[k] = v
		}
	}
	return &cp
}

// canSee reports whether viewerID belongs to the couple owning questionID.
// Caller holds db.mu.
func (db *DB) canSee(viewerID, questionID string) bool {
	q, ok := db.questions[questionID]
	if !ok || q.CoupleID == nil {
		return false
	}
	return db.isMember(*q.CoupleID, viewerID)
}

func (r *answerRepository) ListByQuestion(ctx context.Context, viewerID, questionID string) ([]*models.Answer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.canSee(viewerID, questionID) {
		return nil, repository.ErrQuestionNotFound
	}
	var out []*models.Answer
	for _, a := range r.db.answers {
		if a.QuestionID == questionID {
			out = append(out, cloneAnswer(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *answerRepository) Upsert(ctx context.Context, answer *models.Answer) (*models.Answer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.db.canSee(answer.UserID, answer.QuestionID) {
		return nil, repository.ErrQuestionNotFound
	}

	now := r.db.tick()
	key := answerKey(answer.QuestionID, answer.UserID)
	if existing, ok := r.db.answers[key]; ok {
		existing.Content = answer.Content
		existing.Mood = cloneAnswer(answer).Mood
		existing.UpdatedAt = now
		return cloneAnswer(existing), nil
	}

	stored := cloneAnswer(answer)
	stored.ID = uuid.New().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.db.answers[key] = stored
	return cloneAnswer(stored), nil
}
