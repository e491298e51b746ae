package services

import (
	"context"

	"github.com/foxncici/mincici/internal/live"
	"github.com/foxncici/mincici/internal/models"
	"github.com/foxncici/mincici/internal/repositories"
)

// RelationshipService manages relationship status rows in the relational
// store. A solo status is a single authoritative row. A partnered status
// starts as the proposer's row naming the partner; it is a pending request
// until the partner accepts, at which point the partner gets a mirrored row
// and both carry PartnerAccepted. Change signals go through the hub because
// the relational store has no native subscription feed.
type RelationshipService struct {
	repo   repositories.RelationshipRepository
	hub    *StatusHub
	fanout *live.Fanout
}

// NewRelationshipService wires the relationship service.
func NewRelationshipService(repo repositories.RelationshipRepository, hub *StatusHub, fanout *live.Fanout) *RelationshipService {
	return &RelationshipService{repo: repo, hub: hub, fanout: fanout}
}

// Set replaces the actor's status. A partnered kind requires a partner and
// creates a pending request the partner must accept; a solo kind clears any
// previous partner pairing, including the partner's mirrored row.
func (s *RelationshipService) Set(ctx context.Context, actor live.ActorProfile, req models.SetRelationshipRequest) error {
	if !models.ValidStatusKind(req.StatusType) {
		return ErrInvalidStatus
	}
	needsPartner := models.StatusNeedsPartner(req.StatusType)
	if needsPartner && req.PartnerID == "" {
		return ErrPartnerRequired
	}
	if req.PartnerID == actor.ID {
		return ErrSelfTarget
	}

	prev, err := s.repo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return err
	}

	row := &models.RelationshipStatus{
		UserID:     actor.ID,
		StatusType: req.StatusType,
	}
	if needsPartner {
		partnerID := req.PartnerID
		row.PartnerID = &partnerID
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return err
	}

	// Dropping a previously paired partner orphans their mirror row.
	if prev != nil && prev.PartnerID != nil && (!needsPartner || *prev.PartnerID != req.PartnerID) {
		if err := s.repo.DeletePair(ctx, *prev.PartnerID, actor.ID); err != nil {
			return err
		}
		s.hub.Notify(*prev.PartnerID)
	}

	if needsPartner {
		s.fanout.Go(live.Notice{
			RecipientID: req.PartnerID,
			Type:        models.NotificationRelationship,
			Actor:       actor,
		})
		s.hub.Notify(actor.ID, req.PartnerID)
	} else {
		s.hub.Notify(actor.ID)
	}
	return nil
}

// Current returns the caller's own status row, nil when none is set.
func (s *RelationshipService) Current(ctx context.Context, userID string) (*models.RelationshipStatus, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Pending lists incoming relationship requests naming userID as partner.
func (s *RelationshipService) Pending(ctx context.Context, userID string) ([]models.RelationshipStatus, error) {
	return s.repo.PendingForPartner(ctx, userID)
}

// Accept confirms an incoming request: the proposer's row is marked
// accepted and the acceptor gets a mirrored row, replacing whatever status
// they held before. Accepting an already-accepted request is a no-op.
func (s *RelationshipService) Accept(ctx context.Context, actor live.ActorProfile, requestID string) error {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}
	if req.PartnerID == nil || *req.PartnerID != actor.ID {
		return ErrForbidden
	}
	if req.PartnerAccepted {
		return nil
	}

	if err := s.repo.MarkAccepted(ctx, req.UserID, actor.ID); err != nil {
		return err
	}
	proposerID := req.UserID
	mirror := &models.RelationshipStatus{
		UserID:          actor.ID,
		StatusType:      req.StatusType,
		PartnerID:       &proposerID,
		PartnerAccepted: true,
	}
	if err := s.repo.Save(ctx, mirror); err != nil {
		return err
	}

	s.fanout.Go(live.Notice{
		RecipientID: proposerID,
		Type:        models.NotificationRelationship,
		Actor:       actor,
	})
	s.hub.Notify(proposerID, actor.ID)
	return nil
}

// Reject declines an incoming request by deleting the proposer's pending
// row. The delete only touches an unaccepted row, so a request accepted
// between the read and the delete survives. The proposer is left with no
// status, mirroring a withdrawn proposal.
func (s *RelationshipService) Reject(ctx context.Context, userID, requestID string) error {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return ErrNotFound
	}
	if req.PartnerID == nil || *req.PartnerID != userID || req.PartnerAccepted {
		return ErrForbidden
	}
	if err := s.repo.DeleteUnaccepted(ctx, req.UserID); err != nil {
		return err
	}
	s.hub.Notify(req.UserID, userID)
	return nil
}

// Clear removes the caller's status. A paired partner's mirrored row is
// removed with it so neither side keeps claiming the other.
func (s *RelationshipService) Clear(ctx context.Context, userID string) error {
	own, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if own == nil {
		return nil
	}
	if own.PartnerID != nil {
		if err := s.repo.DeletePair(ctx, *own.PartnerID, userID); err != nil {
			return err
		}
	}
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	if own.PartnerID != nil {
		s.hub.Notify(userID, *own.PartnerID)
	} else {
		s.hub.Notify(userID)
	}
	return nil
}

// Watch registers for change signals on userID's rows. The caller re-reads
// Current or Pending on each signal and must call cancel on teardown.
func (s *RelationshipService) Watch(userID string) (<-chan struct{}, func()) {
	return s.hub.Watch(userID)
}
