package authapi

import "marquee/cmd/identity"

const statusSuccess = "success"

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		UserID:       u.ID,
		Username:     u.DisplayName,
		Email:        u.Email,
		Admin:        u.IsAdmin,
		RegisteredOn: u.CreatedAt,
	}
}
