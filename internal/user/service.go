package user

import (
	"context"
	"log/slog"
	"strings"

	"github.com/frahmantamala/pos-admin/internal"
	"github.com/frahmantamala/pos-admin/internal/auth"
	userDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/pos-admin/internal/core/events"
	coreUser "github.com/frahmantamala/pos-admin/internal/core/user"
	"github.com/frahmantamala/pos-admin/internal/iam"
)

var (
	ErrNotFound      = internal.ErrNotFound.WithMessage("User not found")
	ErrDuplicateUser = internal.ErrDuplicateName.WithMessage("A user with this email or username already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	Create(ctx context.Context, user *userDatamodel.User) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateRole(ctx context.Context, id int64, roleID *int64) error
}

// RoleLookup confirms a role exists before it is assigned.
type RoleLookup interface {
	GetRole(ctx context.Context, id int64) (*iam.Role, error)
}

type Service struct {
	repo       Repository
	roles      RoleLookup
	publisher  events.Publisher
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, roles RoleLookup, publisher events.Publisher, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		roles:      roles,
		publisher:  publisher,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, userID int64, object string, objectID int64) {
	if s.publisher == nil {
		return
	}
	evt := events.NewIAMEvent(eventType, internal.ActorIDFromContext(ctx), "user", userID, object, objectID)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish user event", "type", eventType, "error", err)
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return FromDataModel(u), nil
}

// Register creates an account. New accounts are pending unless a status is
// given explicitly.
func (s *Service) Register(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(dto.Email))

	if existing, err := s.repo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateUser
	}
	if existing, err := s.repo.GetByUsername(ctx, dto.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateUser
	}

	if dto.RoleID != nil {
		if _, err := s.roles.GetRole(ctx, *dto.RoleID); err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("Failed to hash password", err)
	}

	status := dto.Status
	if status == "" {
		status = string(coreUser.StatusPending)
	}

	model := &userDatamodel.User{
		Username:     dto.Username,
		Email:        email,
		Name:         strings.TrimSpace(dto.Name),
		PasswordHash: hash,
		Status:       status,
		RoleID:       dto.RoleID,
	}
	if err := s.repo.Create(ctx, model); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", model.ID, "username", model.Username)
	if model.RoleID != nil {
		s.publish(ctx, events.EventTypeUserRoleAssigned, model.ID, "role", *model.RoleID)
	}
	return FromDataModel(model), nil
}

func (s *Service) ChangeStatus(ctx context.Context, userID int64, dto ChangeStatusDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status == dto.Status {
		return u, nil
	}

	if err := s.repo.UpdateStatus(ctx, userID, dto.Status); err != nil {
		return nil, err
	}

	s.logger.Info("user status changed", "user_id", userID, "from", u.Status, "to", dto.Status)
	s.publish(ctx, events.EventTypeUserStatusChanged, userID, "", 0)
	u.Status = dto.Status
	return u, nil
}

// AssignRole gives the user a role, replacing any previous one. A nil role
// leaves the user without a role and so without permissions.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleID *int64) (*User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roleID != nil {
		if _, err := s.roles.GetRole(ctx, *roleID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateRole(ctx, userID, roleID); err != nil {
		return nil, err
	}

	var object int64
	if roleID != nil {
		object = *roleID
	}
	s.publish(ctx, events.EventTypeUserRoleAssigned, userID, "role", object)
	u.RoleID = roleID
	return u, nil
}

// EnsureSuperuser creates an active superuser holding roleID unless an
// account with that email already exists.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string, roleID int64) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.logger.Info("admin account already present", "user_id", existing.ID)
		return false, nil
	}

	username, _, _ := strings.Cut(email, "@")
	dto := CreateUserDTO{
		Username: username,
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Status:   string(coreUser.StatusActive),
	}
	if roleID > 0 {
		dto.RoleID = &roleID
	}
	if err := dto.Validate(); err != nil {
		return false, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, internal.NewInternalError("Failed to hash password", err)
	}
	model := &userDatamodel.User{
		Username:     dto.Username,
		Email:        email,
		Name:         dto.Name,
		PasswordHash: hash,
		Status:       dto.Status,
		IsSuperuser:  true,
		RoleID:       dto.RoleID,
	}
	if err := s.repo.Create(ctx, model); err != nil {
		return false, err
	}

	s.logger.Info("admin account created", "user_id", model.ID, "email", email)
	return true, nil
}
