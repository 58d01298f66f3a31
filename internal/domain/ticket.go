package domain

import "time"

// TicketStatus enumerates lifecycle states for service requests.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusCompleted       TicketStatus = "completed"
	TicketStatusClosed          TicketStatus = "closed"
	TicketStatusCancelled       TicketStatus = "cancelled"
	TicketStatusWaitingClient   TicketStatus = "waiting_client"
	TicketStatusPendingApproval TicketStatus = "pending_approval"
	TicketStatusMasterApproved  TicketStatus = "master_approved"
	TicketStatusMasterRejected  TicketStatus = "master_rejected"
	TicketStatusApproved        TicketStatus = "approved"
	TicketStatusRejected        TicketStatus = "rejected"
)

// AllStatuses is the closed set of valid status tags.
var AllStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusCompleted,
	TicketStatusClosed,
	TicketStatusCancelled,
	TicketStatusWaitingClient,
	TicketStatusPendingApproval,
	TicketStatusMasterApproved,
	TicketStatusMasterRejected,
	TicketStatusApproved,
	TicketStatusRejected,
}

// ValidStatus reports whether s belongs to the closed status set.
func ValidStatus(s TicketStatus) bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketCategory enumerates request categories.
type TicketCategory string

const (
	CategoryCCTV         TicketCategory = "cctv"
	CategoryFaceID       TicketCategory = "face_id"
	CategoryCarPlate     TicketCategory = "car_plate"
	CategoryCameraAccess TicketCategory = "camera_access"
	CategoryIntercom     TicketCategory = "intercom"
	CategoryKeyMagnet    TicketCategory = "key_magnet"
	CategoryOther        TicketCategory = "other"
)

// InitialStatus returns the status a freshly created ticket starts in.
// Car-plate requests skip "new" and enter the dual-approval flow directly.
func (c TicketCategory) InitialStatus() TicketStatus {
	if c == CategoryCarPlate {
		return TicketStatusPendingApproval
	}
	return TicketStatusNew
}

// CarPlateDetails is the payload collected for gate-access requests.
type CarPlateDetails struct {
	Plate         string
	Gate          string
	HasParking    *bool
	ParkingNumber string
	ParkingReason string
	ContractPhoto string
}

// CameraAccessDetails is the payload for camera access requests.
type CameraAccessDetails struct {
	Email   string
	Details string
}

// KeyDetails is the payload for key/magnet programming requests.
type KeyDetails struct {
	Count int
	Type  string
}

// Ticket is the aggregate for resident service requests.
type Ticket struct {
	ID   int64
	Code string

	OwnerTelegramID int64
	OwnerPhone      string
	OwnerFullName   string

	ResidentialComplex string
	Category           TicketCategory
	SubCategory        string

	Block     string
	Entrance  string
	Apartment string

	Description  string
	Attachments  []string
	FaceIDPhotos []string
	CarPlate     *CarPlateDetails
	CameraAccess *CameraAccessDetails
	Keys         *KeyDetails

	Status           TicketStatus
	AssignedMasterID *int64

	CompletedAt   *time.Time
	Rating        *int
	RatingComment *string
	RatedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// allowedTransitions lists the reachable next states per status. Transitions
// outside this map are rejected before any store write.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:             {TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusInProgress:      {TicketStatusCompleted, TicketStatusWaitingClient, TicketStatusCancelled},
	TicketStatusWaitingClient:   {TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusCompleted:       {TicketStatusClosed},
	TicketStatusPendingApproval: {TicketStatusMasterApproved, TicketStatusMasterRejected, TicketStatusInProgress, TicketStatusRejected},
	TicketStatusMasterApproved:  {TicketStatusInProgress, TicketStatusRejected},
	TicketStatusMasterRejected:  {TicketStatusInProgress, TicketStatusRejected},
	TicketStatusApproved:        {TicketStatusInProgress, TicketStatusCompleted},
	TicketStatusClosed:          {},
	TicketStatusRejected:        {},
	TicketStatusCancelled:       {},
}

// CanTransition reports whether moving from current to next is permitted.
// A self-transition is always permitted: admin reassignment is recorded as a
// history entry with old_status == new_status.
func CanTransition(current, next TicketStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
