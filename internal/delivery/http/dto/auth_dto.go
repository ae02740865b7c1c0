package dto

// TokenRequest represents the operator login payload
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse represents the issued operator token
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}
