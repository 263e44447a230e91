package models

import "time"

// User represents a user profile linked to an auth identity
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	TokenVersion int       `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds the editable parts of a user row
type Profile struct {
	Handle      *string `json:"handle,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Couple is the unit that owns shared prompts, questions, answers and posts
type Couple struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CoupleMember links a user to a couple
type CoupleMember struct {
	CoupleID string    `json:"couple_id"`
	UserID   string    `json:"user_id"`
	Role     *string   `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// CoupleRequestStatus is the lifecycle state of a couple request
type CoupleRequestStatus string

const (
	CoupleRequestPending  CoupleRequestStatus = "pending"
	CoupleRequestAccepted CoupleRequestStatus = "accepted"
	CoupleRequestDeclined CoupleRequestStatus = "declined"
	CoupleRequestCanceled CoupleRequestStatus = "canceled"
	CoupleRequestExpired  CoupleRequestStatus = "expired"
)

// Terminal reports whether no further transition is allowed from s
func (s CoupleRequestStatus) Terminal() bool {
	switch s {
	case CoupleRequestAccepted, CoupleRequestDeclined, CoupleRequestCanceled, CoupleRequestExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status
func (s CoupleRequestStatus) Valid() bool {
	return s == CoupleRequestPending || s.Terminal()
}

// CoupleRequest is a pairing request from requester to recipient
type CoupleRequest struct {
	ID          string              `json:"id"`
	RequesterID string              `json:"requester_id"`
	RecipientID string              `json:"recipient_id"`
	Status      CoupleRequestStatus `json:"status"`
	Message     *string             `json:"message,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}

// PromptKind distinguishes question prompts from dual-photo prompts
type PromptKind string

const (
	PromptQuestion PromptKind = "question"
	PromptPhoto    PromptKind = "photo"
)

// Prompt is a scheduled activity for a couple
type Prompt struct {
	ID          string     `json:"id"`
	CoupleID    string     `json:"couple_id"`
	Kind        PromptKind `json:"kind"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   *string    `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Question is the daily question of a couple
type Question struct {
	ID           string    `json:"id"`
	PromptID     *string   `json:"prompt_id,omitempty"`
	CoupleID     *string   `json:"couple_id,omitempty"`
	ScheduledFor *string   `json:"scheduled_for,omitempty"` // ISO calendar date
	CreatedBy    *string   `json:"created_by,omitempty"`
	Text         string    `json:"text"`
	ModelSource  *string   `json:"model_source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Answer is a user's answer to a question, unique per (question, user)
type Answer struct {
	ID         string         `json:"id"`
	QuestionID string         `json:"question_id"`
	UserID     string         `json:"user_id"`
	Content    string         `json:"content"`
	Mood       map[string]any `json:"mood,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// JournalVisibility controls whether the partner may read a journal
type JournalVisibility string

const (
	JournalPrivate JournalVisibility = "private"
	JournalPartner JournalVisibility = "partner"
)

// Journal is a journal entry owned by one user
type Journal struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Title      *string           `json:"title,omitempty"`
	Content    string            `json:"content"`
	AISummary  *string           `json:"ai_summary,omitempty"`
	Visibility JournalVisibility `json:"visibility"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// JournalSummary is an append-only AI summary of a journal
type JournalSummary struct {
	ID          string    `json:"id"`
	JournalID   string    `json:"journal_id"`
	GeneratedBy *string   `json:"generated_by,omitempty"`
	Summary     string    `json:"summary"`
	Model       *string   `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is the final stitched image for a photo prompt
type Post struct {
	ID        string    `json:"id"`
	CoupleID  string    `json:"couple_id"`
	PromptID  string    `json:"prompt_id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	IsLate    bool      `json:"is_late"`
	CreatedAt time.Time `json:"created_at"`
}

// PushToken is a device token used for push notifications
type PushToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  *string   `json:"platform,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
