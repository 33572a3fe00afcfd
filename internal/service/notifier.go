package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"transferx/internal/repository"
)

// Notifier delivers fire-and-forget messages to clubs. Implementations
// must be safe to call after the financial transaction has committed; a
// failed notification is logged and never rolls anything back.
type Notifier interface {
	Notify(ctx context.Context, recipientClubID uuid.UUID, kind, message, link string, relatedPlayerID *uuid.UUID)
}

// RepoNotifier persists notifications through the notification
// repository.
type RepoNotifier struct {
	repo *repository.NotificationRepository
}

// NewRepoNotifier creates a new RepoNotifier instance.
func NewRepoNotifier(repo *repository.NotificationRepository) *RepoNotifier {
	return &RepoNotifier{repo: repo}
}

// Notify writes the notification row, logging on failure.
func (n *RepoNotifier) Notify(ctx context.Context, recipientClubID uuid.UUID, kind, message, link string, relatedPlayerID *uuid.UUID) {
	if _, err := n.repo.Create(ctx, recipientClubID, kind, message, link, relatedPlayerID); err != nil {
		log.Error().
			Err(err).
			Str("recipient", recipientClubID.String()).
			Str("kind", kind).
			Msg("Failed to deliver notification")
	}
}

// NopNotifier discards all notifications. Useful in tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, uuid.UUID, string, string, string, *uuid.UUID) {}
