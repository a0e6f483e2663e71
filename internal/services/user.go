package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/identity"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// UserService handles login, sessions and profile data
type UserService struct {
	store     repository.Store
	customers identity.Provider
	jwtSecret string
	tokenTTL  time.Duration
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, customers identity.Provider, jwtSecret string, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &UserService{
		store:     store,
		customers: customers,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// LoginResult is a user with a fresh session token
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login resolves a customer by email and signs the matching user in,
// creating the user on first login.
//
// Knowing a customer's email is enough to get a session. The storefront does
// not prove ownership of the address here, so the token only separates one
// customer's data from another's; it does not authenticate the person.
func (s *UserService) Login(ctx context.Context, email string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errorx.New(errorx.Validation, "valid email is required")
	}
	customer, err := s.customers.CustomerByEmail(ctx, email)
	if err != nil {
		return nil, customerErr(err)
	}
	return s.login(ctx, customer)
}

// LoginByCustomerID signs in the user mapped to a customer ID. Like Login it
// trusts the caller's claim to that customer.
func (s *UserService) LoginByCustomerID(ctx context.Context, customerID string) (*LoginResult, error) {
	customer, err := s.customers.CustomerByID(ctx, customerID)
	if err != nil {
		return nil, customerErr(err)
	}
	return s.login(ctx, customer)
}

func customerErr(err error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return errorx.New(errorx.NotFound, "customer not found")
	}
	return fmt.Errorf("failed to look up customer: %w", err)
}

func (s *UserService) login(ctx context.Context, customer *identity.Customer) (*LoginResult, error) {
	user, err := s.getOrCreate(ctx, customer)
	if err != nil {
		return nil, err
	}
	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token}, nil
}

func (s *UserService) getOrCreate(ctx context.Context, customer *identity.Customer) (*models.User, error) {
	user, err := s.store.GetUserByExternalID(ctx, customer.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	user = &models.User{
		ID:                 uuid.New().String(),
		Email:              customer.Email,
		Name:               customer.Name(),
		ExternalCustomerID: customer.ID,
		ShopDomain:         customer.ShopDomain,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent first login
			return s.store.GetUserByExternalID(ctx, customer.ID)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("customer_id", customer.ID).Msg("User created")
	return user, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// UpdatePushToken stores the device token used for push notifications.
// An empty token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	return storeErr(s.store.UpdatePushToken(ctx, userID, token), "user")
}
