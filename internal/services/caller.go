package services

import (
	"context"
	"errors"

	"bloom-backend/internal/apperr"
	"bloom-backend/internal/identity"
	"bloom-backend/internal/repository"
	"bloom-backend/internal/tracing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// requireCaller resolves the caller ID or fails with ErrNotAuthenticated
func requireCaller(ctx context.Context, resolver identity.Resolver) (string, error) {
	id, err := resolver.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", apperr.Remote(err)
	}
	if id == nil || id.UserID == "" {
		return "", apperr.ErrNotAuthenticated
	}
	return id.UserID, nil
}

// requireCouple resolves the caller's couple or fails with ErrNoCouple
func requireCouple(ctx context.Context, couples repository.CoupleRepository, userID string) (string, error) {
	coupleID, err := couples.CoupleIDForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.ErrNoCouple
		}
		return "", apperr.Remote(err)
	}
	return coupleID, nil
}

// partnerOf returns the other member of coupleID, or "" when there is none
func partnerOf(ctx context.Context, couples repository.CoupleRepository, coupleID, userID string) (string, error) {
	members, err := couples.Members(ctx, coupleID)
	if err != nil {
		return "", err
	}
	for _, m := range members {
		if m.UserID != userID {
			return m.UserID, nil
		}
	}
	return "", nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
