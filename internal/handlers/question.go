package handlers

import (
	"net/http"
	"time"

	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// QuestionHandler handles daily question and answer HTTP requests
type QuestionHandler struct {
	questionService *services.QuestionService
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(questionService *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
	}
}

// TodayResponse wraps the question of the day; Question is null when none is scheduled
type TodayResponse struct {
	Date     string           `json:"date"`
	Question *models.Question `json:"question"`
}

// Today handles GET /api/v1/questions/today. The client's local date is
// taken from ?date=YYYY-MM-DD or derived from ?tz=<IANA zone>.
func (h *QuestionHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := r.URL.Query().Get("date")
	if date == "" {
		if tz := r.URL.Query().Get("tz"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				respondError(w, "invalid tz", http.StatusBadRequest)
				return
			}
			date = h.questionService.TodayIn(loc)
		} else {
			date = h.questionService.Today()
		}
	}

	q, err := h.questionService.ResolveForDate(ctx, date)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Str("date", date).Msg("Failed to resolve question")
		respondServiceError(w, err, "Failed to resolve question")
		return
	}

	respondJSON(w, http.StatusOK, TodayResponse{Date: date, Question: q})
}

// Create handles POST /api/v1/questions
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.CreateQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	q, err := h.questionService.CreateQuestion(ctx, req.Text, req.ScheduledFor, req.ModelSource)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Msg("Failed to create question")
		respondServiceError(w, err, "Failed to create question")
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

// Answers handles GET /api/v1/questions/{question_id}/answers
func (h *QuestionHandler) Answers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionID := chi.URLParam(r, "question_id")

	view, err := h.questionService.LoadAnswers(ctx, questionID)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Str("question_id", questionID).Msg("Failed to load answers")
		respondServiceError(w, err, "Failed to load answers")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// SubmitAnswerRequest represents the request body for answering a question
type SubmitAnswerRequest struct {
	Content string         `json:"content"`
	Mood    map[string]any `json:"mood,omitempty"`
}

// SubmitAnswer handles PUT /api/v1/questions/{question_id}/answer
func (h *QuestionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionID := chi.URLParam(r, "question_id")

	var req SubmitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.questionService.SubmitOrUpdateAnswer(ctx, questionID, req.Content, req.Mood)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID(ctx)).Str("question_id", questionID).Msg("Failed to submit answer")
		respondServiceError(w, err, "Failed to submit answer")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Streak handles GET /api/v1/streak
func (h *QuestionHandler) Streak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.questionService.Streak(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to compute streak")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"streak": streak})
}
