// Package auth implements email/password accounts on top of the document
// store, with sessions and reset tokens kept in a TTL token store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/NOTMORSE-PROG/vocanova/internal/docstore"
)

const (
	accountsCollection = "accounts"

	sessionKeyPrefix = "session:"
	resetKeyPrefix   = "reset:"
)

// TokenStore keeps short-lived string values with a TTL.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns ErrTokenNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and deletes the key.
	Take(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Account is the public part of a stored account.
type Account struct {
	UID   string
	Name  string
	Email string
}

type accountDoc struct {
	UID          string `mapstructure:"uid"`
	Name         string `mapstructure:"name"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
	CreatedAt    int64  `mapstructure:"created_at"`
}

type Config struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

// Provider signs chats in and out. A chat holds at most one session.
type Provider struct {
	store    docstore.Store
	tokens   TokenStore
	mailer   Mailer
	validate *validator.Validate
	cfg      Config
	logger   *zap.Logger
}

func NewProvider(store docstore.Store, tokens TokenStore, mailer Mailer, cfg Config, logger *zap.Logger) *Provider {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Provider{
		store:    store,
		tokens:   tokens,
		mailer:   mailer,
		validate: newValidator(),
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateAccount registers a new account and signs the chat in.
func (p *Provider) CreateAccount(ctx context.Context, chatID int64, name, email, password string) (*Account, error) {
	req := signUpRequest{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := p.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	doc := accountDoc{
		UID:          uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	data, err := docstore.Encode(doc)
	if err != nil {
		return nil, err
	}

	path := accountPath(req.Email)
	err = p.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		_, err := tx.Get(ctx, path)
		if err == nil {
			return ErrEmailAlreadyInUse
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return tx.Set(ctx, path, data)
	})
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := p.startSession(ctx, chatID, doc.UID); err != nil {
		return nil, err
	}

	p.logger.Info("account created", zap.String("uid", doc.UID), zap.Int64("chat_id", chatID))

	return &Account{UID: doc.UID, Name: doc.Name, Email: doc.Email}, nil
}

// SignIn checks the password and binds the account to the chat.
func (p *Provider) SignIn(ctx context.Context, chatID int64, email, password string) (*Account, error) {
	doc, err := p.account(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := p.startSession(ctx, chatID, doc.UID); err != nil {
		return nil, err
	}

	return &Account{UID: doc.UID, Name: doc.Name, Email: doc.Email}, nil
}

// SendPasswordReset issues a one-time reset token and hands it to the mailer.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := p.account(ctx, email); err != nil {
		return err
	}

	token := uuid.NewString()
	if err := p.tokens.Set(ctx, resetKeyPrefix+token, email, p.cfg.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := p.mailer.SendPasswordReset(ctx, email, token); err != nil {
		return fmt.Errorf("send reset: %w", err)
	}

	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (p *Provider) ResetPassword(ctx context.Context, token, password string) error {
	if err := p.validate.Struct(resetRequest{Password: password}); err != nil {
		return validationError(err)
	}

	email, err := p.tokens.Take(ctx, resetKeyPrefix+token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("take reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = p.store.Update(ctx, accountPath(email), map[string]any{"password_hash": string(hash)})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrInvalidUser
		}
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (p *Provider) SignOut(ctx context.Context, chatID int64) error {
	if err := p.tokens.Delete(ctx, sessionKey(chatID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUserID returns the uid the chat is signed in as, or ErrInvalidSession.
func (p *Provider) CurrentUserID(ctx context.Context, chatID int64) (string, error) {
	uid, err := p.tokens.Get(ctx, sessionKey(chatID))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return uid, nil
}

// Refresh extends the chat session. It fails with ErrInvalidSession once
// the session has expired.
func (p *Provider) Refresh(ctx context.Context, chatID int64) error {
	err := p.tokens.Expire(ctx, sessionKey(chatID), p.cfg.SessionTTL)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidSession
		}
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

func (p *Provider) account(ctx context.Context, email string) (*accountDoc, error) {
	if err := p.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	data, err := p.store.Get(ctx, accountPath(email))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrInvalidUser
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	var doc accountDoc
	if err := docstore.Decode(data, &doc); err != nil {
		p.logger.Warn("undecodable account", zap.String("email", email), zap.Error(err))
		return nil, ErrInvalidUser
	}

	return &doc, nil
}

func (p *Provider) startSession(ctx context.Context, chatID int64, uid string) error {
	if err := p.tokens.Set(ctx, sessionKey(chatID), uid, p.cfg.SessionTTL); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func sessionKey(chatID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(chatID, 10)
}

func accountPath(email string) string {
	return docstore.Join(accountsCollection, url.PathEscape(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
