package service

import (
	"context"

	"github.com/google/uuid"

	"transferx/internal/model"
	"transferx/internal/repository"
)

// ClubService covers club onboarding and the club-facing reads that
// sit outside the auction state machine: squad, deal history, and the
// notification inbox.
type ClubService struct {
	clubRepo         *repository.ClubRepository
	playerRepo       *repository.PlayerRepository
	dealRepo         *repository.DealRepository
	notificationRepo *repository.NotificationRepository
}

// NewClubService creates a new ClubService instance.
func NewClubService(
	clubRepo *repository.ClubRepository,
	playerRepo *repository.PlayerRepository,
	dealRepo *repository.DealRepository,
	notificationRepo *repository.NotificationRepository,
) *ClubService {
	return &ClubService{
		clubRepo:         clubRepo,
		playerRepo:       playerRepo,
		dealRepo:         dealRepo,
		notificationRepo: notificationRepo,
	}
}

// Register creates a new club in UNVERIFIED status.
func (s *ClubService) Register(ctx context.Context, name, country, city, leagueName string) (*model.Club, error) {
	return s.clubRepo.Create(ctx, name, country, city, leagueName)
}

// GetClub retrieves a club by its identity.
func (s *ClubService) GetClub(ctx context.Context, id uuid.UUID) (*model.Club, error) {
	return s.clubRepo.GetByID(ctx, id)
}

// Verify marks a club as verified, allowing it to participate in the
// market.
func (s *ClubService) Verify(ctx context.Context, id uuid.UUID) error {
	return s.clubRepo.UpdateVerifiedStatus(ctx, id, model.ClubVerified)
}

// RegisterPlayer creates a player, optionally registered with a club.
func (s *ClubService) RegisterPlayer(ctx context.Context, name string, age int, position string, currentClubID *uuid.UUID) (*model.Player, error) {
	return s.playerRepo.Create(ctx, name, age, position, currentClubID)
}

// Squad lists the players currently registered with a club.
func (s *ClubService) Squad(ctx context.Context, clubID uuid.UUID) ([]*model.Player, error) {
	return s.playerRepo.ListByClub(ctx, clubID)
}

// Deals lists the transfers a club participated in, newest first.
func (s *ClubService) Deals(ctx context.Context, clubID uuid.UUID, limit int) ([]*model.Deal, error) {
	return s.dealRepo.ListByClub(ctx, clubID, limit)
}

// Notifications lists a club's notification inbox, newest first.
func (s *ClubService) Notifications(ctx context.Context, clubID uuid.UUID, limit int) ([]*model.Notification, error) {
	return s.notificationRepo.ListByRecipient(ctx, clubID, limit)
}

// MarkNotificationRead marks one notification as read.
func (s *ClubService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
