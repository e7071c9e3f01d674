package account

import (
	"github.com/jhoicas/autoplanner-api/internal/application/dto"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

// ToUserResponse redacta hash y tokens.
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		PhoneNumber:        u.PhoneNumber,
		Image:              u.Image,
		EmailVerified:      u.EmailVerified,
		DashboardAccess:    u.DashboardAccess,
		BusinessID:         u.BusinessID,
		SubscriptionStatus: string(u.Subscription.Status),
		SubscriptionPlan:   string(u.Subscription.Plan),
		CreatedAt:          u.CreatedAt,
	}
}
