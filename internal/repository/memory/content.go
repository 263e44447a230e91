package memory

import (
	"context"
	"sort"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository"

	"github.com/google/uuid"
)

type promptRepository struct {
	db *DB
}

func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	prompt.CreatedAt = r.db.tick()
	cp := *prompt
	r.db.prompts[prompt.ID] = &cp
	return nil
}

func (r *promptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.prompts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type postRepository struct {
	db *DB
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	post.CreatedAt = r.db.tick()
	cp := *post
	r.db.posts[post.ID] = &cp
	return nil
}

func (r *postRepository) ListByCouple(ctx context.Context, coupleID string, limit, offset int) ([]*models.Post, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var all []*models.Post
	for _, p := range r.db.posts {
		if p.CoupleID == coupleID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type journalRepository struct {
	db *DB
}

func cloneJournal(j *models.Journal) *models.Journal {
	cp := *j
	cp.Title = cloneString(j.Title)
	cp.AISummary = cloneString(j.AISummary)
	return &cp
}

func (r *journalRepository) Create(ctx context.Context, journal *models.Journal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if journal.ID == "" {
		journal.ID = uuid.New().String()
	}
	now := r.db.tick()
	journal.CreatedAt = now
	journal.UpdatedAt = now
	r.db.journals[journal.ID] = cloneJournal(journal)
	return nil
}

func (r *journalRepository) Update(ctx context.Context, journal *models.Journal) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.journals[journal.ID]
	if !ok || existing.UserID != journal.UserID {
		return repository.ErrNotFound
	}
	existing.Title = cloneString(journal.Title)
	existing.Content = journal.Content
	existing.Visibility = journal.Visibility
	existing.UpdatedAt = r.db.tick()
	journal.CreatedAt = existing.CreatedAt
	journal.UpdatedAt = existing.UpdatedAt
	journal.AISummary = cloneString(existing.AISummary)
	return nil
}

func (r *journalRepository) GetByID(ctx context.Context, id string) (*models.Journal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.journals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneJournal(j), nil
}

func (r *journalRepository) ListByUser(ctx context.Context, userID string, visibility *models.JournalVisibility) ([]*models.Journal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.Journal
	for _, j := range r.db.journals {
		if j.UserID != userID {
			continue
		}
		if visibility != nil && j.Visibility != *visibility {
			continue
		}
		out = append(out, cloneJournal(j))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *journalRepository) AddSummary(ctx context.Context, summary *models.JournalSummary) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.journals[summary.JournalID]; !ok {
		return repository.ErrNotFound
	}
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	summary.CreatedAt = r.db.tick()
	cp := *summary
	r.db.summaries[summary.JournalID] = append(r.db.summaries[summary.JournalID], &cp)
	return nil
}

func (r *journalRepository) SetAISummary(ctx context.Context, journalID, summary string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	j, ok := r.db.journals[journalID]
	if !ok {
		return repository.ErrNotFound
	}
	j.AISummary = &summary
	return nil
}

func (r *journalRepository) ListSummaries(ctx context.Context, journalID string) ([]*models.JournalSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	list := r.db.summaries[journalID]
	out := make([]*models.JournalSummary, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}

type pushTokenRepository struct {
	db *DB
}

func (r *pushTokenRepository) Upsert(ctx context.Context, token *models.PushToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	token.UpdatedAt = r.db.tick()
	cp := *token
	cp.Platform = cloneString(token.Platform)
	r.db.pushTokens[token.Token] = &cp
	return nil
}

func (r *pushTokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.PushToken
	for _, t := range r.db.pushTokens {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *pushTokenRepository) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.pushTokens, token)
	return nil
}
