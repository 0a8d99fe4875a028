package authapi

import "time"

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,max=256"`
}

type userResponse struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Admin        bool      `json:"admin"`
	RegisteredOn time.Time `json:"registered_on"`
}

type authResponse struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	AuthToken string       `json:"auth_token"`
	User      userResponse `json:"user"`
}

type statusResponse struct {
	Status string       `json:"status"`
	Data   userResponse `json:"data"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
