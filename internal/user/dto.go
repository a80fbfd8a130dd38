// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type SyncRequest struct {
	InviteCode string `json:"invite_code" validate:"omitempty,max=64"`
}

type MintInviteRequest struct {
	Role string `json:"role" validate:"required,oneof=seed_user moderator"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=new_user seed_user moderator"`
}

type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

type SyncResponse struct {
	User    UserResponse `json:"user"`
	Created bool         `json:"created"`
	Invite  string       `json:"invite"`
}

type InviteResponse struct {
	Code      string    `json:"code"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
		DeactivatedAt: u.DeactivatedAt,
	}
}
