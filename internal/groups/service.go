package groups

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/media"
	"github.com/circlemart/circlemart-backend/internal/notifications"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
	"github.com/circlemart/circlemart-backend/pkg/slug"
)

// Service exposes group management and the join workflow.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Group, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Group], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Group, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Group, error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Group, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*models.Group, error)

	Join(ctx context.Context, userID, groupID uuid.UUID) (*JoinResult, error)
	ApproveRequest(ctx context.Context, actor auth.Actor, groupID, userID uuid.UUID) (*models.GroupMember, error)
	RejectRequest(ctx context.Context, actor auth.Actor, groupID, userID uuid.UUID) (*models.GroupMember, error)
	Leave(ctx context.Context, userID, groupID uuid.UUID) error
	Members(ctx context.Context, actor auth.Actor, groupID uuid.UUID, filter MemberFilter) (*pagination.Page[models.GroupMember], error)
	Stats(ctx context.Context, serviceID *uuid.UUID) ([]Stat, error)
}

type service struct {
	client   *db.Client
	repo     *Repository
	uploader media.Uploader
	notifier notifications.Notifier
	linkBase string
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires group dependencies. linkBase prefixes the group links in emails.
func NewService(client *db.Client, uploader media.Uploader, notifier notifications.Notifier, linkBase string, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "media uploader required")
	}
	if notifier == nil {
		notifier = notifications.Discard{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		client:   client,
		repo:     NewRepository(client.DB()),
		uploader: uploader,
		notifier: notifier,
		linkBase: strings.TrimRight(linkBase, "/"),
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	owner, err := s.repo.FindService(ctx, input.ServiceID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	if !owner.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "service is not active")
	}
	taken, err := s.repo.NameTaken(ctx, owner.ID, name, uuid.Nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check group name")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a group with this name already exists in the service")
	}

	adminID := actor.UserID
	if input.AdminID != nil && *input.AdminID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only platform admins can assign another group admin")
		}
		if _, err := s.repo.FindUser(ctx, *input.AdminID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group admin user not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group admin")
		}
		adminID = *input.AdminID
	}

	groupSlug, err := slug.Unique(ctx, name, s.repo.SlugTaken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
	}

	now := s.now().UTC()
	group := &models.Group{
		ID:             uuid.New(),
		ServiceID:      owner.ID,
		Name:           name,
		Slug:           groupSlug,
		Description:    strings.TrimSpace(input.Description),
		AdminID:        adminID,
		CreatedByID:    actor.UserID,
		ApprovalStatus: enums.ApprovalStatusPending,
		IsActive:       true,
		IsPrivate:      input.IsPrivate,
	}
	if actor.IsAdmin() {
		group.ApprovalStatus = enums.ApprovalStatusApproved
		group.ApprovedByID = &actor.UserID
		group.ApprovedAt = &now
	}

	var image *media.Asset
	if len(input.Image) > 0 {
		if image, err = s.uploader.Upload(ctx, input.Image, media.FolderGroups); err != nil {
			return nil, err
		}
		group.ImageURL = image.URL
		group.ImagePublicID = image.PublicID
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Create(ctx, group); err != nil {
			return err
		}
		decidedBy := actor.UserID
		if err := r.CreateMember(ctx, &models.GroupMember{
			ID:        uuid.New(),
			GroupID:   group.ID,
			UserID:    adminID,
			Status:    enums.MembershipStatusApproved,
			Role:      enums.MemberRoleAdmin,
			JoinedAt:  now,
			DecidedAt: &now,
			DecidedBy: &decidedBy,
		}); err != nil {
			return err
		}
		count, err := r.RecountMembers(ctx, group.ID)
		if err != nil {
			return err
		}
		group.MembersCount = count
		return services.Recompute(ctx, tx, group.ServiceID)
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, image)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a group with this name already exists in the service")
		}
		return nil, asDependency(err, "create group")
	}
	return group, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Group], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list groups")
	}
	return &pagination.Page[models.Group]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "group not found", "load group")
	}
	return group, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*models.Group, error) {
	group, err := s.repo.FindVisibleBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, notFoundOr(err, "group not found", "load group")
	}
	return group, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Group, error) {
	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, group) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the group admin can edit this group")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		if !strings.EqualFold(name, group.Name) {
			taken, err := s.repo.NameTaken(ctx, group.ServiceID, name, group.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check group name")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a group with this name already exists in the service")
			}
		}
		if name != group.Name {
			if group.Slug, err = slug.Rename(ctx, name, group.Slug, s.repo.SlugTaken); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
			}
			group.Name = name
		}
	}
	if input.Description != nil {
		group.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsPrivate != nil {
		group.IsPrivate = *input.IsPrivate
	}

	previousAdmin := group.AdminID
	if input.AdminID != nil && *input.AdminID != group.AdminID {
		if !actor.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only platform admins can reassign the group admin")
		}
		if _, err := s.repo.FindUser(ctx, *input.AdminID); err != nil {
			return nil, notFoundOr(err, "group admin user not found", "load group admin")
		}
		group.AdminID = *input.AdminID
	}

	oldImage := group.ImagePublicID
	var image *media.Asset
	if len(input.Image) > 0 {
		if image, err = s.uploader.Upload(ctx, input.Image, media.FolderGroups); err != nil {
			return nil, err
		}
		group.ImageURL = image.URL
		group.ImagePublicID = image.PublicID
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Save(ctx, group); err != nil {
			return err
		}
		if group.AdminID == previousAdmin {
			return nil
		}
		if err := s.promoteAdmin(ctx, r, group, previousAdmin, actor.UserID); err != nil {
			return err
		}
		count, err := r.RecountMembers(ctx, group.ID)
		if err != nil {
			return err
		}
		group.MembersCount = count
		return services.Recompute(ctx, tx, group.ServiceID)
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, image)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a group with this name already exists in the service")
		}
		return nil, asDependency(err, "update group")
	}
	if image != nil {
		media.DeleteAll(ctx, s.uploader, s.logg, oldImage)
	}
	return group, nil
}

// promoteAdmin gives the new admin an approved admin record and demotes the previous one.
func (s *service) promoteAdmin(ctx context.Context, r *Repository, group *models.Group, previousAdmin, decidedBy uuid.UUID) error {
	now := s.now().UTC()
	member, err := r.FindMember(ctx, group.ID, group.AdminID)
	switch {
	case err == nil:
		member.Status = enums.MembershipStatusApproved
		member.Role = enums.MemberRoleAdmin
		member.DecidedAt = &now
		member.DecidedBy = &decidedBy
		if err := r.SaveMember(ctx, member); err != nil {
			return err
		}
	case db.IsNotFound(err):
		if err := r.CreateMember(ctx, &models.GroupMember{
			ID:        uuid.New(),
			GroupID:   group.ID,
			UserID:    group.AdminID,
			Status:    enums.MembershipStatusApproved,
			Role:      enums.MemberRoleAdmin,
			JoinedAt:  now,
			DecidedAt: &now,
			DecidedBy: &decidedBy,
		}); err != nil {
			return err
		}
	default:
		return err
	}

	old, err := r.FindMember(ctx, group.ID, previousAdmin)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return err
	}
	old.Role = enums.MemberRoleMember
	return r.SaveMember(ctx, old)
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	group, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, group) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the group admin can delete this group")
	}
	products, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if products > 0 {
		return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "group has %d products; delete them first", products)
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return services.Recompute(ctx, tx, group.ServiceID)
	})
	if err != nil {
		return asDependency(err, "delete group")
	}
	media.DeleteAll(ctx, s.uploader, s.logg, group.ImagePublicID)
	return nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Group, error) {
	return s.saveAndRecompute(ctx, id, func(group *models.Group) error {
		group.IsActive = active
		return nil
	})
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Group, error) {
	return s.saveAndRecompute(ctx, id, func(group *models.Group) error {
		if group.ApprovalStatus != enums.ApprovalStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "group is already %s", group.ApprovalStatus)
		}
		now := s.now().UTC()
		group.ApprovalStatus = enums.ApprovalStatusApproved
		group.ApprovedByID = &actor.UserID
		group.ApprovedAt = &now
		group.RejectionReason = ""
		return nil
	})
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*models.Group, error) {
	return s.saveAndRecompute(ctx, id, func(group *models.Group) error {
		if group.ApprovalStatus != enums.ApprovalStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "group is already %s", group.ApprovalStatus)
		}
		group.ApprovalStatus = enums.ApprovalStatusRejected
		group.RejectionReason = strings.TrimSpace(reason)
		return nil
	})
}

func (s *service) saveAndRecompute(ctx context.Context, id uuid.UUID, mutate func(*models.Group) error) (*models.Group, error) {
	var group *models.Group
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		var err error
		if group, err = r.FindByID(ctx, id); err != nil {
			return notFoundOr(err, "group not found", "load group")
		}
		if err := mutate(group); err != nil {
			return err
		}
		if err := r.Save(ctx, group); err != nil {
			return err
		}
		return services.Recompute(ctx, tx, group.ServiceID)
	})
	if err != nil {
		return nil, asDependency(err, "update group")
	}
	return group, nil
}

func (s *service) Join(ctx context.Context, userID, groupID uuid.UUID) (*JoinResult, error) {
	var result JoinResult
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		group, err := r.FindByID(ctx, groupID)
		if err != nil {
			return notFoundOr(err, "group not found", "load group")
		}
		if !group.IsJoinable() {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "group is not accepting members")
		}

		existing, err := r.FindMember(ctx, groupID, userID)
		if err == nil {
			return duplicateJoinError(existing.Status)
		}
		if !db.IsNotFound(err) {
			return err
		}

		now := s.now().UTC()
		member := models.GroupMember{
			ID:       uuid.New(),
			GroupID:  groupID,
			UserID:   userID,
			Status:   enums.MembershipStatusApproved,
			Role:     enums.MemberRoleMember,
			JoinedAt: now,
		}
		if group.IsPrivate {
			member.Status = enums.MembershipStatusPending
		} else {
			member.DecidedAt = &now
		}
		if err := r.CreateMember(ctx, &member); err != nil {
			return err
		}
		count, err := r.RecountMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if err := services.Recompute(ctx, tx, group.ServiceID); err != nil {
			return err
		}
		result = JoinResult{Membership: member, MembersCount: count}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you already have a join record for this group")
		}
		return nil, asDependency(err, "join group")
	}
	return &result, nil
}

func duplicateJoinError(status enums.MembershipStatus) error {
	switch status {
	case enums.MembershipStatusPending:
		return pkgerrors.New(pkgerrors.CodeConflict, "your join request is pending approval")
	case enums.MembershipStatusApproved:
		return pkgerrors.New(pkgerrors.CodeConflict, "you are already a member of this group")
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "your join request was rejected")
	}
}

func (s *service) ApproveRequest(ctx context.Context, actor auth.Actor, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	member, group, user, err := s.decide(ctx, actor, groupID, userID, enums.MembershipStatusApproved)
	if err != nil {
		return nil, err
	}
	if user != nil {
		s.notifier.SendGroupApproval(ctx, user.FullName, user.Email, group.Name, s.groupLink(group))
	}
	return member, nil
}

func (s *service) RejectRequest(ctx context.Context, actor auth.Actor, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	member, group, user, err := s.decide(ctx, actor, groupID, userID, enums.MembershipStatusRejected)
	if err != nil {
		return nil, err
	}
	if user != nil {
		s.notifier.SendGroupRejection(ctx, user.FullName, user.Email, group.Name)
	}
	return member, nil
}

func (s *service) decide(ctx context.Context, actor auth.Actor, groupID, userID uuid.UUID, next enums.MembershipStatus) (*models.GroupMember, *models.Group, *models.User, error) {
	var (
		member *models.GroupMember
		group  *models.Group
		user   *models.User
	)
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		var err error
		if group, err = r.FindByID(ctx, groupID); err != nil {
			return notFoundOr(err, "group not found", "load group")
		}
		if !canManage(actor, group) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the group admin can review join requests")
		}
		if member, err = r.FindMember(ctx, groupID, userID); err != nil {
			return notFoundOr(err, "join request not found", "load join request")
		}
		if member.Status.Decided() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "join request is already %s", member.Status)
		}

		now := s.now().UTC()
		member.Status = next
		member.DecidedAt = &now
		member.DecidedBy = &actor.UserID
		if err := r.SaveMember(ctx, member); err != nil {
			return err
		}
		if group.MembersCount, err = r.RecountMembers(ctx, groupID); err != nil {
			return err
		}
		if err := services.Recompute(ctx, tx, group.ServiceID); err != nil {
			return err
		}
		if user, err = r.FindUser(ctx, userID); err != nil {
			if db.IsNotFound(err) {
				user = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, asDependency(err, "review join request")
	}
	return member, group, user, nil
}

func (s *service) Leave(ctx context.Context, userID, groupID uuid.UUID) error {
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		group, err := r.FindByID(ctx, groupID)
		if err != nil {
			return notFoundOr(err, "group not found", "load group")
		}
		if group.AdminID == userID {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "the group admin cannot leave the group")
		}
		member, err := r.FindMember(ctx, groupID, userID)
		if err != nil {
			return notFoundOr(err, "you are not a member of this group", "load membership")
		}
		if err := r.DeleteMember(ctx, member.ID); err != nil {
			return err
		}
		if _, err := r.RecountMembers(ctx, groupID); err != nil {
			return err
		}
		return services.Recompute(ctx, tx, group.ServiceID)
	})
	return asDependency(err, "leave group")
}

func (s *service) Members(ctx context.Context, actor auth.Actor, groupID uuid.UUID, filter MemberFilter) (*pagination.Page[models.GroupMember], error) {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	approvedOnly := filter.Status != nil && *filter.Status == enums.MembershipStatusApproved
	if !approvedOnly && !canManage(actor, group) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the group admin can view join requests")
	}
	rows, total, err := s.repo.ListMembers(ctx, groupID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return &pagination.Page[models.GroupMember]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Stats(ctx context.Context, serviceID *uuid.UUID) ([]Stat, error) {
	stats, err := s.repo.Stats(ctx, serviceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "group stats")
	}
	return stats, nil
}

func (s *service) groupLink(group *models.Group) string {
	if s.linkBase == "" {
		return ""
	}
	return s.linkBase + "/groups/" + group.Slug
}

func canManage(actor auth.Actor, group *models.Group) bool {
	return actor.IsAdmin() || (actor.UserID != uuid.Nil && actor.UserID == group.AdminID)
}

func notFoundOr(err error, notFound, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// asDependency keeps typed errors and wraps everything else.
func asDependency(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
