package user

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=30,identifier"`
	Email           string `json:"email" validate:"required,email,max=120"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,identifier"`
	Bio      string `json:"bio" validate:"max=1000"`
	PublicID string `json:"public_id" validate:"required,min=3,max=50"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
