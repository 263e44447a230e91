package services

import (
	"context"
	"errors"
	"strings"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// JournalService handles journals and their AI summaries
type JournalService struct {
	identity   identity.Resolver
	journals   repository.JournalRepository
	couples    repository.CoupleRepository
	summarizer Summarizer
}

// NewJournalService creates a new journal service
func NewJournalService(resolver identity.Resolver, journals repository.JournalRepository, couples repository.CoupleRepository, summarizer Summarizer) *JournalService {
	return &JournalService{
		identity:   resolver,
		journals:   journals,
		couples:    couples,
		summarizer: summarizer,
	}
}

// JournalInput represents the editable fields of a journal
type JournalInput struct {
	Title      *string                  `json:"title,omitempty"`
	Content    string                   `json:"content"`
	Visibility models.JournalVisibility `json:"visibility,omitempty"`
}

func (in *JournalInput) normalize() error {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return apperr.Validation("journal content is required")
	}
	switch in.Visibility {
	case "":
		in.Visibility = models.JournalPrivate
	case models.JournalPrivate, models.JournalPartner:
	default:
		return apperr.Validation("visibility must be %q or %q", models.JournalPrivate, models.JournalPartner)
	}
	return nil
}

// Create creates a journal owned by the caller
func (s *JournalService) Create(ctx context.Context, in JournalInput) (*models.Journal, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	journal := &models.Journal{
		UserID:     callerID,
		Title:      in.Title,
		Content:    in.Content,
		Visibility: in.Visibility,
	}
	if err := s.journals.Create(ctx, journal); err != nil {
		return nil, apperr.Remote(err)
	}
	return journal, nil
}

// Update replaces a journal owned by the caller
func (s *JournalService) Update(ctx context.Context, journalID string, in JournalInput) (*models.Journal, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	journal := &models.Journal{
		ID:         journalID,
		UserID:     callerID,
		Title:      in.Title,
		Content:    in.Content,
		Visibility: in.Visibility,
	}
	if err := s.journals.Update(ctx, journal); err != nil {
		return nil, apperr.Remote(err)
	}
	return journal, nil
}

// List returns the caller's journals
func (s *JournalService) List(ctx context.Context) ([]*models.Journal, error) {
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	journals, err := s.journals.ListByUser(ctx, callerID, nil)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return journals, nil
}

// ListShared returns the journals the partner shared with the caller
func (s *JournalService) ListShared(ctx context.Context) ([]*models.Journal, error) {
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	coupleID, err := requireCouple(ctx, s.couples, callerID)
	if err != nil {
		return nil, err
	}
	partnerID, err := partnerOf(ctx, s.couples, coupleID, callerID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	if partnerID == "" {
		return []*models.Journal{}, nil
	}

	visibility := models.JournalPartner
	journals, err := s.journals.ListByUser(ctx, partnerID, &visibility)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return journals, nil
}

// Get returns a journal the caller owns or one the partner shared
func (s *JournalService) Get(ctx context.Context, journalID string) (*models.Journal, error) {
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.visibleJournal(ctx, callerID, journalID)
}

func (s *JournalService) visibleJournal(ctx context.Context, callerID, journalID string) (*models.Journal, error) {
	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	if journal.UserID == callerID {
		return journal, nil
	}
	if journal.Visibility == models.JournalPartner {
		coupleID, err := s.couples.CoupleIDForUser(ctx, callerID)
		if err == nil {
			partnerID, err := partnerOf(ctx, s.couples, coupleID, callerID)
			if err == nil && partnerID == journal.UserID {
				return journal, nil
			}
		}
	}
	return nil, apperr.Remote(repository.ErrNotFound)
}

// Summaries returns the summaries of a journal visible to the caller, newest first
func (s *JournalService) Summaries(ctx context.Context, journalID string) ([]*models.JournalSummary, error) {
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleJournal(ctx, callerID, journalID); err != nil {
		return nil, err
	}
	summaries, err := s.journals.ListSummaries(ctx, journalID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	return summaries, nil
}

// Summarize generates a summary of a journal owned by the caller, appends it
// and mirrors it onto the journal. A journal that does not exist or belongs
// to someone else yields repository.ErrNotFound.
func (s *JournalService) Summarize(ctx context.Context, journalID string) (summary *models.JournalSummary, err error) {
	ctx, span := startSpan(ctx, "journals.Summarize")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(journalID) == "" {
		return nil, apperr.Validation("journal_id is required")
	}
	callerID, err := requireCaller(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	journal, err := s.journals.GetByID(ctx, journalID)
	if err != nil {
		return nil, apperr.Remote(err)
	}
	if journal.UserID != callerID {
		return nil, apperr.Remote(repository.ErrNotFound)
	}
	if s.summarizer == nil {
		return nil, apperr.Remote(errors.New("summarizer is not configured"))
	}

	text := journal.Content
	if journal.Title != nil && *journal.Title != "" {
		text = *journal.Title + "\n\n" + text
	}
	content, model, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		return nil, apperr.Remote(err)
	}

	summary = &models.JournalSummary{
		JournalID:   journal.ID,
		GeneratedBy: &callerID,
		Summary:     content,
		Model:       &model,
	}
	if err := s.journals.AddSummary(ctx, summary); err != nil {
		return nil, apperr.Remote(err)
	}
	if err := s.journals.SetAISummary(ctx, journal.ID, content); err != nil {
		return nil, apperr.Remote(err)
	}

	log.Info().
		Str("journal_id", journal.ID).
		Str("user_id", callerID).
		Str("model", model).
		Msg("Journal summarized")
	return summary, nil
}
