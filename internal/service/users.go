package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"entityvault/internal/domain"
	"entityvault/internal/mapper"
	"entityvault/internal/repository"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository is what UserService needs from storage. *repository.Users
// satisfies it.
type UserRepository interface {
	repository.Repository[domain.UserID, *domain.User]
	FindByEmail(ctx context.Context, email domain.Email) (*domain.User, bool, error)
	EnsureEmailAvailable(ctx context.Context, email domain.Email, owner domain.UserID) error
	Mapper() *mapper.Mapper[*domain.User, domain.UserDTO]
}

// UserServiceConfig tunes UserService.
type UserServiceConfig struct {
	// CheckEmailUniqueness looks the address up before writing. The unique
	// constraint still decides races.
	CheckEmailUniqueness bool
	BcryptCost           int
	Logger               *slog.Logger
}

// UserService provides business logic for user accounts
type UserService struct {
	repo     UserRepository
	eventBus *EventBus
	cfg      UserServiceConfig
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(repo UserRepository, eventBus *EventBus, cfg UserServiceConfig) *UserService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UserService{repo: repo, eventBus: eventBus, cfg: cfg, logger: logger}
}

// RegisterInput is the raw registration request.
type RegisterInput struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

var registerFields = map[string]mapper.ValueObjectMapping{
	"name":     {Factory: mapper.VO(domain.NewUserName)},
	"email":    {Factory: mapper.VO(domain.NewEmail)},
	"password": {Factory: newPassword},
}

// newPassword checks the plaintext password policy. bcrypt reads at most
// 72 bytes, so longer inputs are rejected rather than silently truncated.
func newPassword(raw any) (any, error) {
	s, _ := raw.(string)
	switch {
	case s == "":
		return nil, domain.NewValidationError("password", "cannot be empty")
	case utf8.RuneCountInString(s) < 8:
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	case len(s) > 72:
		return nil, domain.NewValidationError("password", "must be at most 72 bytes")
	}
	return s, nil
}

// Register validates every field at once, hashes the password and stores a
// new user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	vos, err := mapper.CreateValueObjects(mapper.Record{
		"name":     in.Name,
		"email":    in.Email,
		"password": in.Password,
	}, registerFields)
	if err != nil {
		return nil, err
	}

	r := mapper.NewReader(vos)
	name := mapper.Read[domain.UserName](r, "name")
	email := mapper.Read[domain.Email](r, "email")
	password := mapper.Read[string](r, "password")
	if err := r.Err(); err != nil {
		return nil, err
	}

	if s.cfg.CheckEmailUniqueness {
		if err := s.repo.EnsureEmailAvailable(ctx, email, domain.UserID{}); err != nil {
			return nil, err
		}
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, domain.NewUser(domain.NewUserParams{Name: name, Email: email, PasswordHash: hash}))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", saved.ID().Value())
	s.eventBus.Publish(Event{
		Type:    EventUserCreated,
		Payload: map[string]string{"user_id": saved.ID().Value()},
	})
	return saved, nil
}

func (s *UserService) hash(password string) (domain.PasswordHash, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return domain.PasswordHash{}, fmt.Errorf("failed to hash password: %w", err)
	}
	hash, err := domain.NewPasswordHash(string(raw))
	if err != nil {
		return domain.PasswordHash{}, err
	}
	return hash, nil
}

// Get retrieves a single user by ID
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	uid, err := domain.ParseUserID(id)
	if err != nil {
		return nil, err
	}
	u, found, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("user %s: %w", uid, domain.ErrNotFound)
	}
	return u, nil
}

// List returns a page of users ordered by ID.
func (s *UserService) List(ctx context.Context, page repository.Page) ([]*domain.User, error) {
	return s.repo.FindAll(ctx, page)
}

// Rename replaces a user's display name.
func (s *UserService) Rename(ctx context.Context, id, name string) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := domain.NewUserName(name)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, u.WithName(n))
}

// ChangeEmail moves a user to a new address.
func (s *UserService) ChangeEmail(ctx context.Context, id, email string) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err := domain.NewEmail(email)
	if err != nil {
		return nil, err
	}
	if s.cfg.CheckEmailUniqueness {
		if err := s.repo.EnsureEmailAvailable(ctx, e, u.ID()); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, u.WithEmail(e))
}

func (s *UserService) update(ctx context.Context, u *domain.User) (*domain.User, error) {
	saved, err := s.repo.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	s.eventBus.Publish(Event{
		Type:    EventUserUpdated,
		Payload: map[string]string{"user_id": saved.ID().Value()},
	})
	return saved, nil
}

// Delete removes a user that must exist.
func (s *UserService) Delete(ctx context.Context, id string) error {
	uid, err := domain.ParseUserID(id)
	if err != nil {
		return err
	}
	exists, err := s.repo.Exists(ctx, uid)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %s: %w", uid, domain.ErrNotFound)
	}
	if err := s.repo.Delete(ctx, uid); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", uid.Value())
	s.eventBus.Publish(Event{
		Type:    EventUserDeleted,
		Payload: map[string]string{"user_id": uid.Value()},
	})
	return nil
}

// Authenticate returns the user holding email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	e, err := domain.NewEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, found, err := s.repo.FindByEmail(ctx, e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash().Value()), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// DTO renders u in its outbound shape.
func (s *UserService) DTO(u *domain.User) (domain.UserDTO, error) {
	return s.repo.Mapper().ToDTO(u)
}

// DTOs renders users in their outbound shape.
func (s *UserService) DTOs(users []*domain.User) ([]domain.UserDTO, error) {
	return s.repo.Mapper().ToDTOs(users)
}
