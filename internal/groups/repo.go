package groups

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
)

const table = "groups"

// Repository handles groups and their join records.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, group *models.Group) error {
	return r.DB(ctx).Omit("Members").Create(group).Error
}

func (r *Repository) Save(ctx context.Context, group *models.Group) error {
	return r.DB(ctx).Omit("Members").Save(group).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := r.DB(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// FindVisibleBySlug returns an active, approved group.
func (r *Repository) FindVisibleBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := r.DB(ctx).
		Where("slug = ? AND is_active = ? AND approval_status = ?", slug, true, enums.ApprovalStatusApproved).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *Repository) FindService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := r.DB(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// NameTaken checks the (service, name) scope case-insensitively.
func (r *Repository) NameTaken(ctx context.Context, serviceID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.Group{}).
		Where("service_id = ? AND LOWER(name) = ?", serviceID, strings.ToLower(strings.TrimSpace(name)))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, table, "slug", slug, uuid.Nil, false)
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Group, int64, error) {
	q := r.DB(ctx).Model(&models.Group{})
	if filter.ServiceID != nil {
		q = q.Where("service_id = ?", *filter.ServiceID)
	}
	if filter.ApprovalStatus != nil {
		q = q.Where("approval_status = ?", *filter.ApprovalStatus)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsPrivate != nil {
		q = q.Where("is_private = ?", *filter.IsPrivate)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Group
	err := filter.Sort.Apply(filter.Page.Scope(q), "created_at DESC").Find(&rows).Error
	return rows, total, err
}

// Delete removes the group and its join records.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Where("group_id = ?", id).Delete(&models.GroupMember{}).Error; err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.Group{}, "id = ?", id).Error
}

func (r *Repository) CountProducts(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}

func (r *Repository) FindMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := r.DB(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *Repository) CreateMember(ctx context.Context, member *models.GroupMember) error {
	return r.DB(ctx).Create(member).Error
}

func (r *Repository) SaveMember(ctx context.Context, member *models.GroupMember) error {
	return r.DB(ctx).Save(member).Error
}

func (r *Repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.GroupMember{}, "id = ?", id).Error
}

func (r *Repository) ListMembers(ctx context.Context, groupID uuid.UUID, filter MemberFilter) ([]models.GroupMember, int64, error) {
	q := r.DB(ctx).Model(&models.GroupMember{}).Where("group_id = ?", groupID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.GroupMember
	err := filter.Page.Scope(q).Order("joined_at ASC").Find(&rows).Error
	return rows, total, err
}

// RecountMembers stores COUNT(approved join records) on the group.
func (r *Repository) RecountMembers(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int64
	err := r.DB(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ?", groupID, enums.MembershipStatusApproved).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	err = r.DB(ctx).Model(&models.Group{}).Where("id = ?", groupID).Update("members_count", count).Error
	return int(count), err
}

func (r *Repository) Stats(ctx context.Context, serviceID *uuid.UUID) ([]Stat, error) {
	q := r.DB(ctx).
		Table(`"groups" AS g`).
		Select(`g.id AS group_id, g.name AS name, g.service_id AS service_id,
			(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id AND m.status = ?) AS approved_members,
			(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id AND m.status = ?) AS pending_members,
			(SELECT COUNT(*) FROM products p WHERE p.group_id = g.id) AS products`,
			enums.MembershipStatusApproved, enums.MembershipStatusPending)
	if serviceID != nil {
		q = q.Where("g.service_id = ?", *serviceID)
	}
	var rows []Stat
	err := q.Order("g.name ASC").Scan(&rows).Error
	return rows, err
}
