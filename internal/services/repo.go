package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
)

const table = "services"

// Repository handles service persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, svc *models.Service) error {
	return r.DB(ctx).Create(svc).Error
}

func (r *Repository) Save(ctx context.Context, svc *models.Service) error {
	return r.DB(ctx).Save(svc).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var svc models.Service
	if err := r.DB(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Service, error) {
	var svc models.Service
	if err := r.DB(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Repository) FindDefault(ctx context.Context) (*models.Service, error) {
	var svc models.Service
	if err := r.DB(ctx).Where("is_default = ?", true).Order("created_at ASC").First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *Repository) FindByTitle(ctx context.Context, title string) (*models.Service, error) {
	var svc models.Service
	if err := r.DB(ctx).Where("LOWER(title) = ?", strings.ToLower(title)).First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

// ClearDefault unflags every service except keepID.
func (r *Repository) ClearDefault(ctx context.Context, keepID uuid.UUID) error {
	return r.DB(ctx).Model(&models.Service{}).
		Where("is_default = ? AND id <> ?", true, keepID).
		Update("is_default", false).Error
}

func (r *Repository) TitleTaken(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	return r.Exists(ctx, table, "title", title, excludeID, true)
}

func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, table, "slug", slug, uuid.Nil, false)
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Service, int64, error) {
	q := r.DB(ctx).Model(&models.Service{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Service
	err := filter.Sort.Apply(filter.Page.Scope(q), "title ASC").Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Service{}, "id = ?", id).Error
}

// CountLiveGroups counts active, approved groups of a service.
func (r *Repository) CountLiveGroups(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Group{}).
		Where("service_id = ? AND is_active = ? AND approval_status = ?", serviceID, true, enums.ApprovalStatusApproved).
		Count(&count).Error
	return count, err
}

// CountGroups counts every group of a service regardless of status.
func (r *Repository) CountGroups(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Group{}).Where("service_id = ?", serviceID).Count(&count).Error
	return count, err
}

func (r *Repository) CountBlogs(ctx context.Context, serviceID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Blog{}).Where("service_id = ?", serviceID).Count(&count).Error
	return count, err
}

type aggregate struct {
	GroupCount  int64
	MemberCount int64
}

// Recompute rewrites total_groups/total_members from the live groups.
func (r *Repository) Recompute(ctx context.Context, serviceID uuid.UUID) error {
	var agg aggregate
	err := r.DB(ctx).Model(&models.Group{}).
		Select("COUNT(*) AS group_count, COALESCE(SUM(members_count), 0) AS member_count").
		Where("service_id = ? AND is_active = ? AND approval_status = ?", serviceID, true, enums.ApprovalStatusApproved).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return r.DB(ctx).Model(&models.Service{}).
		Where("id = ?", serviceID).
		Updates(map[string]any{
			"total_groups":  agg.GroupCount,
			"total_members": agg.MemberCount,
		}).Error
}

func (r *Repository) IDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.Service{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) Stats(ctx context.Context) ([]Stat, error) {
	var rows []Stat
	err := r.DB(ctx).
		Table("services AS s").
		Select(`s.id AS service_id, s.title AS title,
			COUNT(g.id) AS group_count,
			COALESCE(SUM(CASE WHEN g.approval_status = ? THEN 1 ELSE 0 END), 0) AS approved_groups,
			COALESCE(SUM(CASE WHEN g.approval_status = ? THEN 1 ELSE 0 END), 0) AS pending_groups,
			COALESCE(SUM(g.members_count), 0) AS members`,
			enums.ApprovalStatusApproved, enums.ApprovalStatusPending).
		Joins(`LEFT JOIN "groups" AS g ON g.service_id = s.id`).
		Group("s.id, s.title").
		Order("s.title ASC").
		Scan(&rows).Error
	return rows, err
}
