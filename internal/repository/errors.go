package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not visible to the caller
var ErrNotFound = errors.New("not found")

// Couple request procedure rejections. The messages reach API clients verbatim.
var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSelfRequest       = errors.New("cannot send a couple request to yourself")
	ErrAlreadyPaired     = errors.New("you are already paired")
	ErrRecipientPaired   = errors.New("recipient is already paired")
	ErrRequesterPaired   = errors.New("requester is already paired")
	ErrDuplicatePending  = errors.New("a pending request already exists between these users")
	ErrRequestNotFound   = errors.New("couple request not found")
	ErrNotRecipient      = errors.New("only the recipient can respond to this request")
	ErrNotRequester      = errors.New("only the requester can cancel this request")
	ErrNotPending        = errors.New("couple request is not pending")
)

// Other rejections
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrDuplicateDate    = errors.New("a question is already scheduled for this date")
	ErrHandleTaken      = errors.New("handle is already taken")
	ErrEmailTaken       = errors.New("email is already registered")
)
