package handler

import (
	"strconv"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// --- Request → domain ---

// toCandidate maps a validated create request onto a user candidate. The
// password stays plaintext; hashing is the identity service's job.
func toCandidate(req createUserRequest) (*domain.User, error) {
	u := &domain.User{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.TenantID != "" {
		id, err := strconv.ParseUint(req.TenantID, 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidUser
		}
		u.TenantID = id
	}
	if len(req.Roles) > 0 {
		u.Roles = make([]domain.Role, len(req.Roles))
		for i, id := range req.Roles {
			u.Roles[i] = domain.Role{ID: id}
		}
	}
	return u, nil
}

func toCredentials(req credentialsRequest) domain.Credentials {
	return domain.Credentials{Username: req.Username, Password: req.Password, Totp: req.Totp}
}

// --- domain → HTTP response ---

func toCreateUserReply(u *domain.User) createUserReply {
	return createUserReply{Result: createUserResult{ID: strconv.FormatUint(u.ID, 10)}}
}
