package services

import "errors"

// Validation errors returned to callers as explicit failures. Controllers map
// these to 4xx responses; anything else is a consistency failure and surfaces
// as a generic 500 (safe to retry, every operation is idempotent).
var (
	ErrInvalidDate        = errors.New("invalid calendar date")
	ErrInvalidBaseline    = errors.New("baseline values must not be negative")
	ErrInvalidStatus      = errors.New("unknown verification status")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeNotActive = errors.New("challenge is not active")
	ErrNotYourChallenge   = errors.New("challenge belongs to another user")
	ErrOutsideWindow      = errors.New("date is outside the challenge window")
	ErrFutureDate         = errors.New("date is in the future")
	ErrDuplicateEvidence  = errors.New("evidence already exists for this date")
	ErrRestQuotaExhausted = errors.New("no rest days left this week")
	ErrUploadNotFound     = errors.New("upload not found")
)
