package services

import (
	"context"
	"errors"
	"strings"

	"stocks-trader/database"
	"stocks-trader/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt refuses passwords longer than this.
const maxPasswordBytes = 72

// Register creates an account holding the starting cash.
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (*models.User, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, fail(ErrValidation, "must provide username")
	case password == "":
		return nil, fail(ErrValidation, "must provide password")
	case password != confirmation:
		return nil, fail(ErrValidation, "passwords do not match")
	case len(password) > maxPasswordBytes:
		return nil, fail(ErrValidation, "password too long")
	}

	db := s.conn(ctx)
	if _, err := database.FindUserByUsername(db, username); err == nil {
		return nil, fail(ErrConflict, "username taken")
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username: username,
		Hash:     string(hash),
		Cash:     s.opts.StartingCash,
	}
	if err := database.CreateUser(db, user); err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			return nil, fail(ErrConflict, "username taken")
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Login checks the credentials and returns the matching user.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fail(ErrAuth, "must provide username")
	}
	if password == "" {
		return nil, fail(ErrAuth, "must provide password")
	}

	user, err := database.FindUserByUsername(s.conn(ctx), username)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, fail(ErrAuth, "invalid username and/or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		return nil, fail(ErrAuth, "invalid username and/or password")
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next, confirmation string) error {
	if current == "" {
		return fail(ErrValidation, "must provide current password")
	}

	db := s.conn(ctx)
	user, err := database.FindUserByID(db, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(current)); err != nil {
		return fail(ErrAuth, "invalid password")
	}

	switch {
	case next == "":
		return fail(ErrValidation, "must provide new password")
	case confirmation == "":
		return fail(ErrValidation, "must provide new password confirmation")
	case next != confirmation:
		return fail(ErrValidation, "new password and confirmation must match")
	case len(next) > maxPasswordBytes:
		return fail(ErrValidation, "password too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.opts.BcryptCost)
	if err != nil {
		return err
	}
	if err := database.UpdatePasswordHash(db, userID, string(hash)); err != nil {
		return err
	}
	s.log.Info("password changed", zap.Uint("user_id", userID))
	return nil
}

func (s *Service) User(ctx context.Context, userID uint) (*models.User, error) {
	return database.FindUserByID(s.conn(ctx), userID)
}
