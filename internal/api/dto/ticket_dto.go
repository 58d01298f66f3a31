package dto

import (
	"time"

	"github.com/qss-platform/resident-service/internal/domain"
)

// CreateTicketRequest payload. The gateway submits on behalf of an enrolled
// owner, identified by telegram id.
type CreateTicketRequest struct {
	OwnerTelegramID    int64                 `json:"owner_telegram_id"`
	ResidentialComplex string                `json:"residential_complex"`
	Category           domain.TicketCategory `json:"category"`
	SubCategory        string                `json:"sub_category"`
	Block              string                `json:"block"`
	Entrance           string                `json:"entrance"`
	Apartment          string                `json:"apartment"`
	Description        string                `json:"description"`
	Attachments        []string              `json:"attachments"`
	FaceIDPhotos       []string              `json:"face_id_photos"`
	CarPlate           *CarPlatePayload      `json:"car_plate"`
	CameraAccess       *CameraAccessPayload  `json:"camera_access"`
	Keys               *KeysPayload          `json:"keys"`
}

// CarPlatePayload carries the car-plate specifics.
type CarPlatePayload struct {
	Plate         string `json:"plate"`
	Gate          string `json:"gate"`
	HasParking    *bool  `json:"has_parking"`
	ParkingNumber string `json:"parking_number"`
	ParkingReason string `json:"parking_reason"`
	ContractPhoto string `json:"contract_photo"`
}

// CameraAccessPayload carries the camera access specifics.
type CameraAccessPayload struct {
	Email   string `json:"email"`
	Details string `json:"details"`
}

// KeysPayload carries the key order specifics.
type KeysPayload struct {
	Count int    `json:"count"`
	Type  string `json:"type"`
}

// ActionRequest identifies the actor for a lifecycle action.
type ActionRequest struct {
	ActorTelegramID int64 `json:"actor_telegram_id"`
}

// RateRequest payload.
type RateRequest struct {
	ActorTelegramID int64   `json:"actor_telegram_id"`
	Rating          int     `json:"rating"`
	Comment         *string `json:"comment"`
}

// ReviewRequest payload for both review stages.
type ReviewRequest struct {
	ActorTelegramID int64 `json:"actor_telegram_id"`
	Approve         bool  `json:"approve"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	ActorTelegramID int64 `json:"actor_telegram_id"`
	MasterID        int64 `json:"master_id"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                 int64                 `json:"id"`
	Code               string                `json:"code"`
	ResidentialComplex string                `json:"residential_complex"`
	Category           domain.TicketCategory `json:"category"`
	Status             domain.TicketStatus   `json:"status"`
	StatusDisplay      string                `json:"status_display"`
	Line               string                `json:"line"`
	CreatedAt          time.Time             `json:"created_at"`
}

// TicketDetailResponse provides full ticket info plus the rendered card.
type TicketDetailResponse struct {
	ID                 int64                 `json:"id"`
	Code               string                `json:"code"`
	OwnerTelegramID    int64                 `json:"owner_telegram_id"`
	OwnerPhone         string                `json:"owner_phone"`
	OwnerFullName      string                `json:"owner_full_name"`
	ResidentialComplex string                `json:"residential_complex"`
	Category           domain.TicketCategory `json:"category"`
	SubCategory        string                `json:"sub_category"`
	Block              string                `json:"block"`
	Entrance           string                `json:"entrance"`
	Apartment          string                `json:"apartment"`
	Description        string                `json:"description"`
	Attachments        []string              `json:"attachments"`
	FaceIDPhotos       []string              `json:"face_id_photos"`
	CarPlate           *CarPlatePayload      `json:"car_plate,omitempty"`
	CameraAccess       *CameraAccessPayload  `json:"camera_access,omitempty"`
	Keys               *KeysPayload          `json:"keys,omitempty"`
	Status             domain.TicketStatus   `json:"status"`
	StatusDisplay      string                `json:"status_display"`
	AssignedMasterID   *int64                `json:"assigned_master_id"`
	CompletedAt        *time.Time            `json:"completed_at"`
	Rating             *int                  `json:"rating"`
	RatingComment      *string               `json:"rating_comment"`
	Card               string                `json:"card"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one audit line.
type HistoryEntryResponse struct {
	OldStatus     *domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus  `json:"new_status"`
	ChangedByID   *int64               `json:"changed_by_id"`
	ChangedByRole *domain.Role         `json:"changed_by_role"`
	Comment       string               `json:"comment"`
	Rendered      string               `json:"rendered"`
	ChangedAt     time.Time            `json:"changed_at"`
}

// TicketPageResponse is one page of a ticket list.
type TicketPageResponse struct {
	Tickets    []TicketSummary `json:"tickets"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
}
