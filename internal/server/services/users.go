// Package services contains server-side business logic. UserService handles
// registration, login and the user management operations behind the token
// gate.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/validate"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

type UserService struct {
	repo    users.Repository
	hasher  cryptox.PasswordHasher
	tokens  auth.Issuer
	logger  logging.Logger
	metrics *metrics.Metrics

	hideUserExistence bool
	dummyDigest       func() (string, error)
}

type Option func(*UserService)

func WithLogger(l logging.Logger) Option {
	return func(s *UserService) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *UserService) { s.metrics = m }
}

// WithHiddenUserExistence makes Login answer an unknown email exactly like a
// wrong password, spending the same hashing work on both paths.
func WithHiddenUserExistence(hide bool) Option {
	return func(s *UserService) { s.hideUserExistence = hide }
}

func NewUserService(repo users.Repository, hasher cryptox.PasswordHasher, tokens auth.Issuer, opts ...Option) *UserService {
	s := &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "services.users")
	s.dummyDigest = sync.OnceValues(func() (string, error) {
		return hasher.Hash("timing-equaliser")
	})
	return s
}

func invalid(field string) error {
	return fmt.Errorf("%w: invalid %s", common.ErrorValidation, field)
}

// Register stores a new credential. It does not log the caller in.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (_ *models.User, err error) {
	defer func() { s.metrics.AuthRequest(metrics.OpRegister, err) }()

	email, role, err := checkNew(req)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, "register", email, req.Password, role)
}

// Create is the management variant of Register, reached only through the
// token gate. It follows the same rules.
func (s *UserService) Create(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email, role, err := checkNew(req)
	if err != nil {
		return nil, err
	}

	return s.create(ctx, "create", email, req.Password, role)
}

func checkNew(req RegisterRequest) (email, role string, err error) {
	if !validate.Email(req.Email) {
		return "", "", invalid("email")
	}
	if !validate.Password(req.Password) {
		return "", "", invalid("password")
	}
	if !validate.Role(req.Role) {
		return "", "", invalid("role")
	}
	email, role = req.Email, req.Role
	if role == "" {
		role = common.DefaultRole
	}
	return email, role, nil
}

func (s *UserService) create(ctx context.Context, op, email, password, role string) (*models.User, error) {
	_, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrEmailTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "store", op, err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal(ctx, "hash", op, err)
	}

	// the store's unique constraint settles concurrent registrations
	c, err := s.repo.Create(ctx, &models.Credential{Email: email, PasswordHash: digest, Role: role})
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, s.internal(ctx, "store", op, err)
	}

	s.logger.Info(ctx, "user created", "operation", op, "user_id", c.ID)

	u := c.Public()
	return &u, nil
}

// Login returns a signed token for the credential matching req.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (token string, err error) {
	defer func() { s.metrics.AuthRequest(metrics.OpLogin, err) }()

	email := req.Email
	if !validate.Email(email) {
		return "", invalid("email")
	}
	if req.Password == "" {
		return "", invalid("password")
	}

	c, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return "", s.internal(ctx, "store", "login", err)
		}
		if s.hideUserExistence {
			s.burnVerify(req.Password)
			return "", common.ErrInvalidCredentials
		}
		return "", common.ErrUserNotFound
	}

	match, err := s.hasher.Verify(req.Password, c.PasswordHash)
	if err != nil {
		// a digest we cannot parse never counts as a match
		s.logger.Warn(ctx, "stored digest unreadable", "user_id", c.ID, "error", err)
		return "", common.ErrInvalidCredentials
	}
	if !match {
		return "", common.ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(c.ID, c.Role)
	if err != nil {
		return "", s.internal(ctx, "token", "login", err)
	}

	return token, nil
}

func (s *UserService) burnVerify(password string) {
	digest, err := s.dummyDigest()
	if err != nil {
		return
	}
	_, _ = s.hasher.Verify(password, digest)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	cs, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "store", "list", err)
	}

	out := make([]models.User, 0, len(cs))
	for i := range cs {
		out = append(out, cs[i].Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	id, ok := validate.ID(id)
	if !ok {
		return nil, invalid("id")
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, s.internal(ctx, "store", "get", err)
	}

	u := c.Public()
	return &u, nil
}

// Update rewrites the record. Tokens issued before the change stay valid
// until they expire.
func (s *UserService) Update(ctx context.Context, id string, req UpdateRequest) (*models.User, error) {
	id, ok := validate.ID(id)
	if !ok {
		return nil, invalid("id")
	}

	var upd models.CredentialUpdate

	if req.Email != nil {
		if !validate.Email(*req.Email) {
			return nil, invalid("email")
		}
		upd.Email = req.Email
	}
	if req.Role != nil {
		if *req.Role == "" || !validate.Role(*req.Role) {
			return nil, invalid("role")
		}
		upd.Role = req.Role
	}
	if req.Password != nil {
		if !validate.Password(*req.Password) {
			return nil, invalid("password")
		}
		digest, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, s.internal(ctx, "hash", "update", err)
		}
		upd.PasswordHash = &digest
	}

	c, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.ErrUserNotFound
		case errors.Is(err, common.ErrEmailTaken):
			return nil, common.ErrEmailTaken
		}
		return nil, s.internal(ctx, "store", "update", err)
	}

	s.logger.Info(ctx, "user updated", "user_id", c.ID)

	u := c.Public()
	return &u, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	id, ok := validate.ID(id)
	if !ok {
		return invalid("id")
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return s.internal(ctx, "store", "delete", err)
	}
	if !deleted {
		return common.ErrUserNotFound
	}

	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

func (s *UserService) internal(ctx context.Context, code, op string, cause error) error {
	err := common.Internal(code, op, cause)
	s.logger.Error(ctx, "operation failed", "operation", op, "error", err)
	return err
}
