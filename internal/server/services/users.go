package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/cryptox"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/auth"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/repomanager"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Identity *models.Identity
	Tokens   *TokenPair
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       cryptox.PasswordHasher
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService wires the service. hasher produces every new password hash;
// stored hashes of other schemes are still verified and replaced on login.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, hasher cryptox.PasswordHasher, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		log:                          log.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// NormalizeEmail trims and case-folds an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(in *RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleClient
	}

	if in.Name == "" {
		return common.Validation("name is required")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return common.Validation("invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		return common.Validation("password must be at least %d characters", MinPasswordLength)
	}
	if !in.Role.Valid() {
		return common.Validation("role must be %q or %q", models.RoleClient, models.RoleLawyer)
	}
	return nil
}

// Register creates a user with a freshly hashed password.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validateRegistration(&in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, common.Internal(err, "error hashing password")
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}

	repo := s.repomanager.Users(s.db)

	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Conflict("email already registered")
		}
		return nil, common.Internal(err, "error creating user")
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// Authenticate checks email and password and returns the caller's identity.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid email or password")
		}
		return nil, common.Internal(err, "error loading user")
	}

	ok, err := cryptox.Verify(user.PasswordHash, []byte(password))
	if err != nil {
		s.log.Warn(ctx, "unverifiable password hash", "user_id", user.ID, "error", err)
		return nil, common.Unauthorized("invalid email or password")
	}
	if !ok {
		return nil, common.Unauthorized("invalid email or password")
	}

	if cryptox.NeedsRehash(user.PasswordHash, s.hasher) {
		s.rehash(ctx, user.ID, password)
	}

	return user.Identity(), nil
}

// rehash moves a user to the configured scheme. Failures are logged only;
// the login itself already succeeded.
func (s *UserService) rehash(ctx context.Context, userID, password string) {
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		s.log.Error(ctx, "rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.log.Error(ctx, "rehash failed", "user_id", userID, "error", err)
		return
	}
	s.log.Info(ctx, "password hash migrated", "user_id", userID, "scheme", s.hasher.Scheme())
}

// Login authenticates and issues a token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).DeleteExpired(ctx, identity.ID); err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, tx, identity)
		return err
	})
	if err != nil {
		return nil, common.Internal(err, "error issuing tokens")
	}

	return &LoginResult{Identity: identity, Tokens: pair}, nil
}

// RefreshToken rotates refreshToken: the old token is deleted and a new
// pair issued in the same transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {

	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid refresh token")
		}
		return nil, common.Internal(err, "error searching refresh token")
	}

	if token.Expires.Before(time.Now()) {
		return nil, &common.Error{Kind: common.KindUnauthorized, Message: "refresh token expired", Err: common.ErrRefreshTokenExpired}
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid refresh token")
		}
		return nil, common.Internal(err, "error loading user")
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.Unauthorized("invalid refresh token")
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, user.Identity())
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		return nil
	})

	if err != nil {
		var cerr *common.Error
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, common.Internal(err, "error refreshing token")
	}

	return tokenPair, nil
}

// Identity returns the current identity of userID.
func (s *UserService) Identity(ctx context.Context, userID string) (*models.Identity, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("unknown user")
		}
		return nil, common.Internal(err, "error loading user")
	}
	return user.Identity(), nil
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, tx dbx.DBTX, identity *models.Identity) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(identity, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.RefreshTokens(tx).Create(ctx, identity.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
