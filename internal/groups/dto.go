package groups

import (
	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

type CreateInput struct {
	ServiceID   uuid.UUID
	Name        string
	Description string
	IsPrivate   bool
	AdminID     *uuid.UUID
	Image       []byte
}

type UpdateInput struct {
	Name        *string
	Description *string
	IsPrivate   *bool
	AdminID     *uuid.UUID
	Image       []byte
}

type ListFilter struct {
	ServiceID      *uuid.UUID
	ApprovalStatus *enums.ApprovalStatus
	IsActive       *bool
	IsPrivate      *bool
	Search         string
	Sort           repo.Sort
	Page           pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"name":          "name",
	"created_at":    "created_at",
	"members_count": "members_count",
}

type MemberFilter struct {
	Status *enums.MembershipStatus
	Page   pagination.Params
}

// JoinResult is returned to the caller after a join attempt.
type JoinResult struct {
	Membership   models.GroupMember `json:"membership"`
	MembersCount int                `json:"members_count"`
}

// Stat aggregates membership and product figures per group.
type Stat struct {
	GroupID         uuid.UUID `json:"group_id"`
	Name            string    `json:"name"`
	ServiceID       uuid.UUID `json:"service_id"`
	ApprovedMembers int64     `json:"approved_members"`
	PendingMembers  int64     `json:"pending_members"`
	Products        int64     `json:"products"`
}
