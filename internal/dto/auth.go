package dto

// LoginRequest carries an operator's dashboard credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse holds the bearer token a dashboard client attaches to the
// secured lead endpoints.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}
