package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
	"github.com/flowsmith/flowsmith-backend/internal/requestdata"
)

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	AccessTTL() time.Duration
}

type authClaims struct {
	Capabilities []string `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	users      repos.UserRepo
	tokens     repos.UserTokenRepo
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	users repos.UserRepo,
	tokens repos.UserTokenRepo,
	jwtSecret string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:         db,
		log:        log.With("service", "AuthService"),
		users:      users,
		tokens:     tokens,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (as *authService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.New(http.StatusBadRequest, "invalid_email", fmt.Errorf("invalid email"))
	}
	if len(password) < 8 {
		return nil, apierr.New(http.StatusBadRequest, "weak_password", fmt.Errorf("password must be at least 8 characters"))
	}

	exists, err := as.users.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apierr.New(http.StatusConflict, "email_taken", fmt.Errorf("email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	caps, _ := json.Marshal([]string{domain.CapManageRecipes})
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Password:     string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		Capabilities: caps,
	}
	created, err := as.users.Create(ctx, nil, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	as.log.Info("Registered user", "user_id", created.ID, "email", created.Email)
	return created, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.users.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid email or password"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid email or password"))
	}

	var accessToken, refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.tokens.DeleteExpired(ctx, tx, time.Now()); err != nil {
			as.log.Warn("Failed to prune expired tokens", "error", err)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return genErr
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		_, createErr := as.tokens.Create(ctx, tx, &domain.UserToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     refreshToken,
			ExpiresAt: time.Now().Add(as.refreshTTL),
		})
		return createErr
	}); err != nil {
		return "", "", fmt.Errorf("persist refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	stored, err := as.tokens.GetByToken(ctx, nil, refreshToken)
	if err != nil {
		return "", "", apierr.New(http.StatusUnauthorized, "invalid_refresh", fmt.Errorf("unknown refresh token"))
	}
	if stored.ExpiresAt.Before(time.Now()) {
		_ = as.tokens.DeleteByToken(ctx, nil, refreshToken)
		return "", "", apierr.New(http.StatusUnauthorized, "expired_refresh", fmt.Errorf("refresh token expired"))
	}
	user, err := as.users.GetByID(ctx, nil, stored.UserID)
	if err != nil {
		return "", "", fmt.Errorf("load user: %w", err)
	}

	var accessToken, newRefresh string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.tokens.DeleteByToken(ctx, tx, refreshToken); err != nil {
			return err
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return genErr
		}
		accessToken = tok
		newRefresh = uuid.New().String()
		_, createErr := as.tokens.Create(ctx, tx, &domain.UserToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			Token:     newRefresh,
			ExpiresAt: time.Now().Add(as.refreshTTL),
		})
		return createErr
	}); err != nil {
		return "", "", fmt.Errorf("rotate refresh token: %w", err)
	}
	return accessToken, newRefresh, nil
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		rd := requestdata.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			return apierr.New(http.StatusBadRequest, "missing_token", fmt.Errorf("no session to log out"))
		}
		return as.tokens.DeleteForUser(ctx, nil, rd.UserID)
	}
	return as.tokens.DeleteByToken(ctx, nil, refreshToken)
}

// SetContextFromToken validates a bearer token and attaches the caller's
// identity and capabilities to the context.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return as.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", fmt.Errorf("invalid access token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.New(http.StatusUnauthorized, "invalid_token", fmt.Errorf("invalid token subject"))
	}
	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString:  tokenString,
		UserID:       userID,
		Capabilities: claims.Capabilities,
	}), nil
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }

func (as *authService) generateAccessToken(user *domain.User) (string, error) {
	var caps []string
	if len(user.Capabilities) > 0 {
		if err := json.Unmarshal(user.Capabilities, &caps); err != nil {
			as.log.Warn("Unreadable capabilities", "user_id", user.ID, "error", err)
		}
	}
	now := time.Now()
	claims := authClaims{
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecret)
}
