package authapi

import "shortly/cmd/identity"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type profileRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"current_password"`
}

// authResponse is the payload returned by register, login and refresh. The
// same tokens also travel as cookies; the body keeps non-browser clients
// working.
type authResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         identity.Summary `json:"user"`
}

type meResponse struct {
	User identity.Summary `json:"user"`
}
