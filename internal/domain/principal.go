package domain

import (
	"strings"
	"time"
)

// Role enumerates chat principal roles. Resolution priority is
// admin > master > owner.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMaster Role = "master"
	RoleAdmin  Role = "admin"
)

// Owner is a resident who submits tickets. TelegramID is nil until the owner
// has enrolled by sharing their phone number.
type Owner struct {
	ID                 int64
	Phone              string
	FullName           string
	ResidentialComplex string
	Block              string
	Entrance           string
	Apartment          string
	TelegramID         *int64
	IsActive           bool
	Language           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Master is a technician serving one or more residential complexes.
// ResidentialComplexes is stored as a comma-separated list.
type Master struct {
	ID                   int64
	TelegramID           int64
	FullName             string
	Username             string
	ResidentialComplexes string
	IsActive             bool
	Language             string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ServesComplex reports whether the master's complex list contains code.
func (m *Master) ServesComplex(code string) bool {
	for _, part := range strings.Split(m.ResidentialComplexes, ",") {
		if strings.TrimSpace(part) == code {
			return true
		}
	}
	return false
}

// Admin is an oversight principal with cross-complex visibility.
type Admin struct {
	ID         int64
	TelegramID int64
	FullName   string
	Language   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
