package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

// Service covers profile edits and platform administration of accounts.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[UserDTO], error)
	SetRole(ctx context.Context, actor auth.Actor, id uuid.UUID, role enums.UserRole) (*UserDTO, error)
	SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*UserDTO, error)
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(client *db.Client, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: NewRepository(client.DB()), logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name cannot be empty")
		}
		user.FullName = name
	}
	if input.Username != nil {
		username := NormalizeUsername(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		if username != user.Username {
			taken, err := s.repo.UsernameTaken(ctx, username, user.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
			}
			user.Username = username
		}
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone cannot be empty")
		}
		if phone != user.Phone {
			taken, err := s.repo.PhoneTaken(ctx, phone, user.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check phone")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			}
			user.Phone = phone
		}
	}
	if err := s.repo.Save(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or phone already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[UserDTO], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return &pagination.Page[UserDTO]{Items: FromModels(rows), Meta: pagination.NewMeta(filter.Page, total)}, nil
}

// SetRole changes a platform role. Admins cannot demote themselves.
func (s *service) SetRole(ctx context.Context, actor auth.Actor, id uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}
	if actor.UserID == id && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "you cannot remove your own admin role")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	user.Role = role
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"target_user_id": id.String(), "role": string(role)}), "users.role_changed")
	return FromModel(user), nil
}

// SetActive soft-activates or deactivates an account.
func (s *service) SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*UserDTO, error) {
	if actor.UserID == id && !active {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "you cannot deactivate your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	user.IsActive = active
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
	}
	return FromModel(user), nil
}

func notFoundOr(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
