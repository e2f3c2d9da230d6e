package backend

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

func (s *Service) registerUser(ctx context.Context, in *RegisterUserInput) (User, error) {
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	role := in.Role
	if role == "" {
		role = RoleUser
	}

	user, err := s.store.CreateUser(ctx, User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, ErrAlreadyExists) {
		return User{}, newError(ErrAlreadyExists, "username %q is already taken", in.Username)
	}
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

func (s *Service) getUser(ctx context.Context, in *GetUserInput) (User, error) {
	return s.lookupUser(ctx, in.UserID)
}

func (s *Service) updateUser(ctx context.Context, in *UpdateUserInput) (User, error) {
	caller, err := s.authenticate(ctx, in.Credentials, false)
	if err != nil {
		return User{}, err
	}
	if err := canModify(caller, in.UserID); err != nil {
		return User{}, err
	}

	existing, err := s.lookupUser(ctx, in.UserID)
	if err != nil {
		return User{}, err
	}
	if in.User.Role != "" && in.User.Role != existing.Role && caller.Role != RoleAdmin {
		return User{}, newError(ErrPermissionDenied, "only administrators can change roles")
	}

	hash, err := s.hashPassword(in.User.Password)
	if err != nil {
		return User{}, err
	}

	role := in.User.Role
	if role == "" {
		role = existing.Role
	}

	now := s.now().UTC()
	existing.Username = in.User.Username
	existing.Email = in.User.Email
	existing.PasswordHash = hash
	existing.Role = role
	existing.UpdatedAt = &now

	user, err := s.store.UpdateUser(ctx, existing)
	switch {
	case errors.Is(err, ErrNotFound):
		return User{}, newError(ErrNotFound, "user with id=%d not found", in.UserID)
	case errors.Is(err, ErrAlreadyExists):
		return User{}, newError(ErrAlreadyExists, "username %q is already taken", in.User.Username)
	case err != nil:
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *Service) deleteUser(ctx context.Context, in *DeleteUserInput) (User, error) {
	caller, err := s.authenticate(ctx, in.Credentials, false)
	if err != nil {
		return User{}, err
	}
	if err := canModify(caller, in.UserID); err != nil {
		return User{}, err
	}

	user, err := s.store.DeleteUser(ctx, in.UserID)
	if errors.Is(err, ErrNotFound) {
		return User{}, newError(ErrNotFound, "user with id=%d not found", in.UserID)
	}
	if err != nil {
		return User{}, fmt.Errorf("delete user: %w", err)
	}
	return user, nil
}

func (s *Service) lookupUser(ctx context.Context, id int64) (User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return User{}, newError(ErrNotFound, "user with id=%d not found", id)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// authenticate checks the credentials and, when admin is set, that the user
// is an administrator.
func (s *Service) authenticate(ctx context.Context, c Credentials, admin bool) (User, error) {
	user, err := s.store.GetUserByUsername(ctx, c.Username)
	if errors.Is(err, ErrNotFound) {
		return User{}, newError(ErrNotFound, "user not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)); err != nil {
		return User{}, newError(ErrUnauthenticated, "incorrect password")
	}

	if admin && user.Role != RoleAdmin {
		return User{}, newError(ErrPermissionDenied, "insufficient privileges")
	}

	return user, nil
}

// canModify reports whether caller may change the account with the given id.
// Administrators may change any account, everyone else only their own.
func canModify(caller User, id int64) error {
	if caller.Role == RoleAdmin || caller.ID == id {
		return nil
	}
	return newError(ErrPermissionDenied, "insufficient privileges")
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", newError(ErrInvalidArgument, "password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
