package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foxncici/mincici/internal/models"
)

// RelationshipRepository persists relationship status rows. Each user owns
// at most one row; a partnered status is mirrored as a second row owned by
// the partner and stays a pending request until PartnerAccepted flips on
// both.
type RelationshipRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.RelationshipStatus, error)
	GetByID(ctx context.Context, id string) (*models.RelationshipStatus, error)
	PendingForPartner(ctx context.Context, partnerID string) ([]models.RelationshipStatus, error)
	Save(ctx context.Context, status *models.RelationshipStatus) error
	MarkAccepted(ctx context.Context, userID, partnerID string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeletePair(ctx context.Context, userID, partnerID string) error
	DeleteUnaccepted(ctx context.Context, userID string) error
}

// PostgresRelationshipRepository implements RelationshipRepository with
// GORM over PostgreSQL.
type PostgresRelationshipRepository struct {
	db *gorm.DB
}

// NewPostgresRelationshipRepository builds the repository over an open
// connection.
func NewPostgresRelationshipRepository(db *gorm.DB) *PostgresRelationshipRepository {
	return &PostgresRelationshipRepository{db: db}
}

// GetByUserID returns the row owned by userID, or nil when the user has
// never set a status.
func (r *PostgresRelationshipRepository) GetByUserID(ctx context.Context, userID string) (*models.RelationshipStatus, error) {
	var status models.RelationshipStatus
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetByID returns one row by primary key, or nil when absent.
func (r *PostgresRelationshipRepository) GetByID(ctx context.Context, id string) (*models.RelationshipStatus, error) {
	var status models.RelationshipStatus
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// PendingForPartner lists unaccepted rows naming partnerID, i.e. incoming
// relationship requests, newest first.
func (r *PostgresRelationshipRepository) PendingForPartner(ctx context.Context, partnerID string) ([]models.RelationshipStatus, error) {
	statuses := []models.RelationshipStatus{}
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND partner_accepted = ?", partnerID, false).
		Order("created_at DESC").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// Save upserts the row for status.UserID, assigning an id on first insert.
func (r *PostgresRelationshipRepository) Save(ctx context.Context, status *models.RelationshipStatus) error {
	existing, err := r.GetByUserID(ctx, status.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		if status.ID == "" {
			status.ID = uuid.NewString()
		}
		return r.db.WithContext(ctx).Create(status).Error
	}
	status.ID = existing.ID
	status.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(status).Error
}

// MarkAccepted flips PartnerAccepted on the row userID owns about
// partnerID.
func (r *PostgresRelationshipRepository) MarkAccepted(ctx context.Context, userID, partnerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.RelationshipStatus{}).
		Where("user_id = ? AND partner_id = ?", userID, partnerID).
		Update("partner_accepted", true).Error
}

// DeleteByUserID removes the row owned by userID.
func (r *PostgresRelationshipRepository) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RelationshipStatus{}).Error
}

// DeletePair removes the row owned by userID that names partnerID.
func (r *PostgresRelationshipRepository) DeletePair(ctx context.Context, userID, partnerID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND partner_id = ?", userID, partnerID).
		Delete(&models.RelationshipStatus{}).Error
}

// DeleteUnaccepted removes userID's own row while it is still a pending
// request.
func (r *PostgresRelationshipRepository) DeleteUnaccepted(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND partner_accepted = ?", userID, false).
		Delete(&models.RelationshipStatus{}).Error
}
