package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username is taken")
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

type UserStore interface {
	Create(ctx context.Context, user model.User, passwordHash string) error
	GetByUsername(ctx context.Context, username string) (model.User, string, error)
	Get(ctx context.Context, userID string) (model.User, error)
}

type Service struct {
	users UserStore
	jwt   *JWTManager
	now   func() time.Time
}

func NewService(users UserStore, jwt *JWTManager) *Service {
	return &Service{
		users: users,
		jwt:   jwt,
		now:   time.Now,
	}
}

type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Age         int
	Gender      string
}

type Session struct {
	User        model.User
	AccessToken string
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (Session, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || len(input.Password) < 8 || input.Age < 18 {
		return Session{}, ErrValidation
	}
	if s.users == nil || s.jwt == nil {
		return Session{}, fmt.Errorf("auth dependencies are not configured")
	}

	if _, _, err := s.users.GetByUsername(ctx, username); err == nil {
		return Session{}, ErrUsernameTaken
	} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Age:          input.Age,
		Gender:       strings.TrimSpace(input.Gender),
		PhotoURLs:    []string{},
		Interests:    []string{},
		LastActiveAt: now,
		AgeMin:       18,
		AgeMax:       99,
		CreatedAt:    now,
	}

	if err := s.users.Create(ctx, user, hash); err != nil {
		return Session{}, err
	}

	token, err := s.jwt.Issue(user.ID, user.Username)
	if err != nil {
		return Session{}, err
	}

	return Session{User: user, AccessToken: token}, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return Session{}, ErrValidation
	}
	if s.users == nil || s.jwt == nil {
		return Session{}, fmt.Errorf("auth dependencies are not configured")
	}

	user, hash, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ok, err := verifyPassword(password, hash)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.jwt.Issue(user.ID, user.Username)
	if err != nil {
		return Session{}, err
	}

	return Session{User: user, AccessToken: token}, nil
}

func (s *Service) ValidateAccessToken(_ context.Context, token string) (Claims, error) {
	if s.jwt == nil {
		return Claims{}, fmt.Errorf("jwt manager is not configured")
	}
	return s.jwt.Validate(token)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed password hash")
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("parse password hash params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
