package dto

// RegisterRequest represents the request payload for user registration
type RegisterRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DateOfBirth *string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	ProfilePic  *string `json:"profile_pic,omitempty"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// UserResponse represents user data in API responses
type UserResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	Username    string   `json:"username"`
	ProfilePic  *string  `json:"profile_pic"`
	DateOfBirth *string  `json:"date_of_birth,omitempty"`
	Trips       []string `json:"trips,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// UpdateUserRequest edits the caller's profile; omitted fields stay unchanged
type UpdateUserRequest struct {
	Username    *string `json:"username"`
	ProfilePic  *string `json:"profile_pic"`
	DateOfBirth *string `json:"date_of_birth"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
