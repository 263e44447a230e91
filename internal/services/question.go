package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/metrics"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// DateLayout is the ISO calendar date layout used for scheduled_for
const DateLayout = "2006-01-02"

// QuestionService resolves the couple's daily question and gates the
// disclosure of the partner's answer.
type QuestionService struct {
	identity  identity.Resolver
	couples   repository.CoupleRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	notifier  Notifier
	location  *time.Location
	now       func() time.Time
}

// NewQuestionService creates a new question service. Today's date is taken in loc.
func NewQuestionService(
	resolver identity.Resolver,
	couples repository.CoupleRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	notifier Notifier,
	loc *time.Location,
) *QuestionService {
	if loc == nil {
		loc = time.UTC
	}
	return &QuestionService{
		identity:  resolver,
		couples:   couples,
		questions: questions,
		answers:   answers,
		notifier:  notifier,
		location:  loc,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *QuestionService) SetClock(now func() time.Time) {
	s.now = now
}

// Today returns today's date in the service location
func (s *QuestionService) Today() string {
	return s.now().In(s.location).Format(DateLayout)
}

// TodayIn returns today's date in loc
func (s *QuestionService) TodayIn(loc *time.Location) string {
	return s.now().In(loc).Format(DateLayout)
}

// AnswerView is the caller's view of the answers to one question.
// Partner is nil whenever Mine is nil.
type AnswerView struct {
	QuestionID string         `json:"question_id"`
	Mine       *models.Answer `json:"mine"`
	Partner    *models.Answer `json:"partner"`
	// PartnerRevealed is true once the caller has answered. Partner can
	// still be nil when the partner has not answered yet.
	PartnerRevealed bool `json:"partner_revealed"`
}

// PartitionAnswers splits rows into the caller's answer and the partner's,
// withholding the partner's answer until the caller has one.
func PartitionAnswers(userID, questionID string, rows []*models.Answer) *AnswerView {
	view := &AnswerView{QuestionID: questionID}
	var partner *models.Answer
	for _, a := range rows {
		if a.UserID == userID {
			if view.Mine == nil {
				view.Mine = a
			}
		} else if partner == nil {
			partner = a
		}
	}
	if view.Mine != nil {
		view.PartnerRevealed = true
		view.Partner = partner
	}
	return view
}

// ResolveToday returns the couple's question for today, or nil when none is scheduled
func (s *QuestionService) ResolveToday(ctx context.Context) (*models.Question, error) {
	return s.ResolveForDate(ctx, s.Today())
}

// ResolveForDate returns the couple's question for date, or nil when none is scheduled
func (s *QuestionService) ResolveForDate(ctx context.Context, date string) (q *models.Question, err error) {
	ctx, span := startSpan(ctx, "questions.Resolve")
	defer func() { endSpan(span, err) }()

	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, apperr.Validation("date must be formatted as YYYY-MM-DD")
	}

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	coupleID, err := requireCouple(ctx, s.couples, callerID)
	if err != nil {
		return nil, err
	}

	q, err = s.questions.GetForDate(ctx, coupleID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Remote(err)
	}
	return q, nil
}

// LoadAnswers returns the caller's view of the answers to questionID
func (s *QuestionService) LoadAnswers(ctx context.Context, questionID string) (view *AnswerView, err error) {
	ctx, span := startSpan(ctx, "questions.LoadAnswers")
	defer func() {
		metrics.AnswerOps.WithLabelValues("load", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	if strings.TrimSpace(questionID) == "" {
		return nil, apperr.Validation("question id is required")
	}
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.loadView(ctx, callerID, questionID)
}

func (s *QuestionService) loadView(ctx context.Context, callerID, questionID string) (*AnswerView, error) {
	rows, err := s.answers.ListByQuestion(ctx, callerID, questionID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return PartitionAnswers(callerID, questionID, rows), nil
}

// SubmitOrUpdateAnswer records the caller's answer and returns the refreshed view.
// A resubmission replaces content and mood and keeps the original created_at.
func (s *QuestionService) SubmitOrUpdateAnswer(ctx context.Context, questionID, content string, mood map[string]any) (view *AnswerView, err error) {
	ctx, span := startSpan(ctx, "questions.SubmitOrUpdateAnswer")
	defer func() {
		metrics.AnswerOps.WithLabelValues("submit", metrics.Result(err)).Inc()
		endSpan(span, err)
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("answer content is required")
	}
	if strings.TrimSpace(questionID) == "" {
		return nil, apperr.Validation("question id is required")
	}

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	answer, err := s.answers.Upsert(ctx, &models.Answer{
		QuestionID: questionID,
		UserID:     callerID,
		Content:    content,
		Mood:       mood,
	})
	if err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().
		Str("question_id", questionID).
		Str("answer_id", answer.ID).
		Str("user_id", callerID).
		Msg("Answer recorded")

	s.notifyPartner(ctx, callerID, questionID)
	return s.loadView(ctx, callerID, questionID)
}

func (s *QuestionService) notifyPartner(ctx context.Context, callerID, questionID string) {
	if s.notifier == nil {
		return
	}
	coupleID, err := s.couples.CoupleIDForUser(ctx, callerID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", callerID).Msg("Failed to resolve couple for notification")
		return
	}
	partnerID, err := partnerOf(ctx, s.couples, coupleID, callerID)
	if err != nil {
		log.Warn().Err(err).Str("couple_id", coupleID).Msg("Failed to resolve partner for notification")
		return
	}
	notify(ctx, s.notifier, Notification{
		Kind:       NotifyPartnerAnswered,
		UserID:     partnerID,
		ActorID:    callerID,
		CoupleID:   coupleID,
		QuestionID: questionID,
	})
}

// CreateQuestionRequest represents a request to schedule a question
type CreateQuestionRequest struct {
	Text         string  `json:"text"`
	ScheduledFor string  `json:"scheduled_for,omitempty"`
	ModelSource  *string `json:"model_source,omitempty"`
}

// CreateQuestion schedules a question for the caller's couple. An empty
// scheduledFor means today.
func (s *QuestionService) CreateQuestion(ctx context.Context, text, scheduledFor string, modelSource *string) (q *models.Question, err error) {
	ctx, span := startSpan(ctx, "questions.Create")
	defer func() { endSpan(span, err) }()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("question text is required")
	}
	if scheduledFor == "" {
		scheduledFor = s.Today()
	}
	if _, err := time.Parse(DateLayout, scheduledFor); err != nil {
		return nil, apperr.Validation("scheduled_for must be formatted as YYYY-MM-DD")
	}

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	coupleID, err := requireCouple(ctx, s.couples, callerID)
	if err != nil {
		return nil, err
	}

	q = &models.Question{
		CoupleID:     &coupleID,
		ScheduledFor: &scheduledFor,
		CreatedBy:    &callerID,
		Text:         text,
		ModelSource:  modelSource,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().
		Str("question_id", q.ID).
		Str("couple_id", coupleID).
		Str("scheduled_for", scheduledFor).
		Msg("Question scheduled")
	return q, nil
}

// Streak returns the number of consecutive days on which both members answered
func (s *QuestionService) Streak(ctx context.Context) (n int, err error) {
	ctx, span := startSpan(ctx, "questions.Streak")
	defer func() { endSpan(span, err) }()

	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return 0, err
	}
	coupleID, err := requireCouple(ctx, s.couples, callerID)
	if err != nil {
		return 0, err
	}
	dates, err := s.questions.CompletedDates(ctx, coupleID)
	if err != nil {
		return 0, apperr.Remote(err)
	}
	return CountStreak(dates, s.Today()), nil
}

// CountStreak counts consecutive days in dates (newest first) ending today,
// or ending yesterday when today is not complete yet.
func CountStreak(dates []string, today string) int {
	day, err := time.Parse(DateLayout, today)
	if err != nil || len(dates) == 0 {
		return 0
	}
	if dates[0] != today {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for _, d := range dates {
		if d != day.Format(DateLayout) {
			break
		}
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}
