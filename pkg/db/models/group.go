package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/pkg/enums"
)

// Group belongs to a Service and carries its own join records.
type Group struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ServiceID       uuid.UUID            `gorm:"column:service_id;type:uuid;not null;uniqueIndex:idx_groups_service_name" json:"service_id"`
	Name            string               `gorm:"column:name;not null;uniqueIndex:idx_groups_service_name" json:"name"`
	Slug            string               `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description     string               `gorm:"column:description" json:"description"`
	ImageURL        string               `gorm:"column:image_url" json:"image_url,omitempty"`
	ImagePublicID   string               `gorm:"column:image_public_id" json:"image_public_id,omitempty"`
	AdminID         uuid.UUID            `gorm:"column:admin_id;type:uuid;not null" json:"admin_id"`
	CreatedByID     uuid.UUID            `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:approval_status;type:text;not null;default:pending" json:"approval_status"`
	ApprovedByID    *uuid.UUID           `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time           `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectionReason string               `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	IsActive        bool                 `gorm:"column:is_active;not null" json:"is_active"`
	IsPrivate       bool                 `gorm:"column:is_private;not null;default:false" json:"is_private"`
	MembersCount    int                  `gorm:"column:members_count;not null;default:0" json:"members_count"`
	Members         []GroupMember        `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsJoinable reports whether new join records may be created.
func (g Group) IsJoinable() bool {
	return g.IsActive && g.ApprovalStatus == enums.ApprovalStatusApproved
}

// GroupMember is a single join record for a (group, user) pair.
type GroupMember struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GroupID   uuid.UUID              `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"group_id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_group_members_group_user" json:"user_id"`
	Status    enums.MembershipStatus `gorm:"column:status;type:text;not null" json:"status"`
	Role      enums.MemberRole       `gorm:"column:role;type:text;not null;default:member" json:"role"`
	JoinedAt  time.Time              `gorm:"column:joined_at;not null" json:"joined_at"`
	DecidedAt *time.Time             `gorm:"column:decided_at" json:"decided_at,omitempty"`
	DecidedBy *uuid.UUID             `gorm:"column:decided_by;type:uuid" json:"decided_by,omitempty"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
