package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// EnrollRequest links a telegram id to a registered owner by phone.
type EnrollRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Phone      string `json:"phone"`
}

// SetLanguageRequest payload.
type SetLanguageRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Language   string `json:"language"`
}

// IdentityResponse is the resolved role for a telegram id.
type IdentityResponse struct {
	Role     string          `json:"role"`
	Language string          `json:"language"`
	Owner    *OwnerResponse  `json:"owner,omitempty"`
	Master   *MasterResponse `json:"master,omitempty"`
	Admin    *AdminResponse  `json:"admin,omitempty"`
}

// OwnerRequest payload for dashboard create/update.
type OwnerRequest struct {
	Phone              string `json:"phone"`
	FullName           string `json:"full_name"`
	ResidentialComplex string `json:"residential_complex"`
	Block              string `json:"block"`
	Entrance           string `json:"entrance"`
	Apartment          string `json:"apartment"`
	Language           string `json:"language"`
}

// OwnerResponse payload.
type OwnerResponse struct {
	ID                 int64     `json:"id"`
	Phone              string    `json:"phone"`
	FullName           string    `json:"full_name"`
	ResidentialComplex string    `json:"residential_complex"`
	Block              string    `json:"block"`
	Entrance           string    `json:"entrance"`
	Apartment          string    `json:"apartment"`
	TelegramID         *int64    `json:"telegram_id"`
	IsActive           bool      `json:"is_active"`
	Language           string    `json:"language"`
	CreatedAt          time.Time `json:"created_at"`
}

// MasterRequest payload for dashboard create/update.
type MasterRequest struct {
	TelegramID           int64  `json:"telegram_id"`
	FullName             string `json:"full_name"`
	Username             string `json:"username"`
	ResidentialComplexes string `json:"residential_complexes"`
	Language             string `json:"language"`
}

// MasterResponse payload.
type MasterResponse struct {
	ID                   int64     `json:"id"`
	TelegramID           int64     `json:"telegram_id"`
	FullName             string    `json:"full_name"`
	Username             string    `json:"username"`
	ResidentialComplexes string    `json:"residential_complexes"`
	IsActive             bool      `json:"is_active"`
	Language             string    `json:"language"`
	CreatedAt            time.Time `json:"created_at"`
}

// AdminResponse payload.
type AdminResponse struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	FullName   string `json:"full_name"`
	Language   string `json:"language"`
}

// BotTextRequest payload for the dashboard text editor.
type BotTextRequest struct {
	Key         string `json:"key"`
	Language    string `json:"language"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// BotTextResponse payload.
type BotTextResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Language    string    `json:"language"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListMeta is shared pagination metadata for dashboard lists.
type ListMeta struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}
