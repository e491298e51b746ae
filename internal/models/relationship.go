package models

import "time"

// Relationship status kinds, as persisted in the relational store.
const (
	StatusSingle              = "single"
	StatusInRelationship      = "in_relationship"
	StatusEngaged             = "engaged"
	StatusMarried             = "married"
	StatusCivilUnion          = "civil_union"
	StatusDomesticPartnership = "domestic_partnership"
	StatusWidowed             = "widowed"
	StatusDivorced            = "divorced"
	StatusSeparated           = "separated"
	StatusComplicated         = "its_complicated"
)

// RelationshipStatusKinds enumerates every accepted status value.
var RelationshipStatusKinds = []string{
	StatusSingle, StatusInRelationship, StatusEngaged, StatusMarried,
	StatusCivilUnion, StatusDomesticPartnership, StatusWidowed,
	StatusDivorced, StatusSeparated, StatusComplicated,
}

// StatusNeedsPartner reports whether a status kind requires a partner; a
// status with a partner is a pending request until the partner accepts.
func StatusNeedsPartner(kind string) bool {
	switch kind {
	case StatusInRelationship, StatusEngaged, StatusMarried,
		StatusCivilUnion, StatusDomesticPartnership:
		return true
	}
	return false
}

// ValidStatusKind reports whether kind is one of the accepted values.
func ValidStatusKind(kind string) bool {
	for _, k := range RelationshipStatusKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// RelationshipStatus is a row in the relationship_statuses table
// (PostgreSQL). Each side of a partnered status owns its own row; the pair
// is mirrored and only authoritative once PartnerAccepted is true on both.
type RelationshipStatus struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	UserID          string    `json:"user_id" gorm:"size:128;uniqueIndex"`
	StatusType      string    `json:"status_type" gorm:"size:32"`
	PartnerID       *string   `json:"partner_id" gorm:"size:128;index"`
	PartnerAccepted bool      `json:"partner_accepted" gorm:"default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName keeps the table name aligned with the original schema.
func (RelationshipStatus) TableName() string { return "relationship_statuses" }

// SetRelationshipRequest defines the payload for setting one's status.
type SetRelationshipRequest struct {
	StatusType string `json:"status_type" validate:"required"`
	PartnerID  string `json:"partner_id,omitempty"`
}
