package access

import (
	"context"
	"strings"

	"study-assistant-be/internal/entity"
	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

// Verifier checks that the acting account exists before a chat cycle starts.
// Authentication happens upstream; this only validates the id it was given.
type Verifier struct {
	users contract.UserRepository
}

func NewVerifier(users contract.UserRepository) *Verifier {
	return &Verifier{users: users}
}

func (v *Verifier) VerifyAccount(ctx context.Context, userId string) (*entity.User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userId))
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	user, err := v.users.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, apperror.Store("failed to load user", err)
	}
	if user == nil || user.IsDeleted {
		return nil, apperror.Validation("user not found")
	}
	if user.Status == entity.UserStatusSuspended {
		return nil, apperror.Validation("account is suspended")
	}

	return user, nil
}
