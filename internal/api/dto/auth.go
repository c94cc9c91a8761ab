package dto

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Zone        string `json:"zone"`
	BranchID    *int64 `json:"branch_id"`
}

type RegisterResponse struct {
	UserID int64 `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	Zone     string `json:"zone,omitempty"`
	BranchID int64  `json:"branch_id,omitempty"`
}

type CollectorResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

type ListCollectorsResponse struct {
	Collectors []CollectorResponse `json:"collectors"`
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}
