package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/listing"
)

// UserService manages facility users and the login identity upsert.
type UserService struct {
	deps  *Deps
	perms *Permissions
}

func NewUserService(d *Deps, perms *Permissions) *UserService {
	return &UserService{deps: d, perms: perms}
}

// Identity is what the SSO proxy tells about the caller.
type Identity struct {
	Email         string
	FirstName     string
	LastName      string
	Telephone     string
	Mobile        string
	Department    string
	HomeInstitute string
}

func (id Identity) phone() string {
	if id.Mobile != "" {
		return id.Mobile
	}
	return id.Telephone
}

// Login upserts the caller by lower-cased email and stamps last_login.
func (s *UserService) Login(ctx context.Context, id Identity) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, ErrPermissionDenied
	}
	repo := s.deps.Repos.Users
	u, err := repo.GetUserByEmail(ctx, email)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		u = &domain.User{
			Email:     email,
			Name:      domain.NullString(id.FirstName),
			Surname:   domain.NullString(id.LastName),
			Telephone: domain.NullString(id.phone()),
			Role:      domain.RoleUser,
		}
		if _, err := repo.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.deps.Logger.Info("Registered new user", zap.String("email", email), zap.Int64("user_id", u.ID))
	}

	u.DBTelephone = domain.NullString(id.phone())
	if id.Department != "" {
		u.Department = domain.NullString(id.Department)
	}
	if id.HomeInstitute != "" {
		u.HomeInstitute = domain.NullString(id.HomeInstitute)
	}
	u.LastLogin = s.deps.now()
	if err := repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// UserRow is a user in the users list.
type UserRow struct {
	User              map[string]any `json:"user"`
	ExperimentsNumber int            `json:"experiments_number"`
}

func userFields(u *domain.User) []string {
	return []string{u.Email, u.Name.String, u.Surname.String, u.Role, u.Department.String, u.HomeInstitute.String}
}

// List is the admin users list with the number of experiments of each user.
func (s *UserService) List(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[UserRow], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	users, err := s.deps.Repos.Users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	counts, err := s.deps.Repos.Experiments.CountUserExperiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count user experiments: %w", err)
	}
	users = listing.Filter(users, req.Query, userFields)
	rows := make([]UserRow, len(users))
	for i, u := range users {
		rows[i] = UserRow{User: u.ToJSON(), ExperimentsNumber: counts[u.ID]}
	}
	p := pageRows(rows, req)
	return &p, nil
}

// UserInput is the editable part of a user.
type UserInput struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Telephone     string `json:"telephone"`
	Department    string `json:"department"`
	HomeInstitute string `json:"home_institute"`
	Role          string `json:"role"`
}

func (in UserInput) validate() error {
	if !strings.Contains(in.Email, "@") {
		return invalid(MsgInvalid)
	}
	if in.Role != "" && !domain.Contains(domain.Roles, in.Role) && in.Role != domain.RoleAdmin {
		return invalid(MsgInvalid)
	}
	return nil
}

func (in UserInput) apply(u *domain.User) {
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Name = domain.NullString(in.Name)
	u.Surname = domain.NullString(in.Surname)
	u.Telephone = domain.NullString(in.Telephone)
	u.Department = domain.NullString(in.Department)
	u.HomeInstitute = domain.NullString(in.HomeInstitute)
	u.Role = in.Role
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
}

func (s *UserService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	if actor != nil && actor.ID == id {
		return actor, nil
	}
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	u, err := s.deps.Repos.Users.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (s *UserService) Create(ctx context.Context, actor *domain.User, in UserInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.deps.Repos.Users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, invalid(MsgInvalid)
	} else if !isNoRows(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u := &domain.User{}
	in.apply(u)
	if _, err := s.deps.Repos.Users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return done(MsgUserCreated, u.ToJSON()), nil
}

func (s *UserService) Update(ctx context.Context, actor *domain.User, id int64, in UserInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.deps.Repos.Users.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	if other, err := s.deps.Repos.Users.GetUserByEmail(ctx, in.Email); err == nil && other.ID != id {
		return nil, invalid(MsgInvalid)
	}
	in.apply(u)
	if err := s.deps.Repos.Users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return done(MsgUserUpdated, u.ToJSON()), nil
}

func (s *UserService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Users.GetUser); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.Users.DeleteUser(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete user %d: %w", id, err)
		}
	}
	return done(MsgUserDeleted, nil), nil
}
