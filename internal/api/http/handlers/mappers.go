package handlers

import (
	"github.com/qss-platform/resident-service/internal/api/dto"
	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/format"
	"github.com/qss-platform/resident-service/internal/service"
)

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                 t.ID,
		Code:               t.Code,
		ResidentialComplex: t.ResidentialComplex,
		Category:           t.Category,
		Status:             t.Status,
		StatusDisplay:      format.Status(t.Status),
		Line:               format.TicketLine(*t),
		CreatedAt:          t.CreatedAt,
	}
}

func ticketDetail(t *domain.Ticket) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		ID:                 t.ID,
		Code:               t.Code,
		OwnerTelegramID:    t.OwnerTelegramID,
		OwnerPhone:         t.OwnerPhone,
		OwnerFullName:      t.OwnerFullName,
		ResidentialComplex: t.ResidentialComplex,
		Category:           t.Category,
		SubCategory:        t.SubCategory,
		Block:              t.Block,
		Entrance:           t.Entrance,
		Apartment:          t.Apartment,
		Description:        t.Description,
		Attachments:        t.Attachments,
		FaceIDPhotos:       t.FaceIDPhotos,
		Status:             t.Status,
		StatusDisplay:      format.Status(t.Status),
		AssignedMasterID:   t.AssignedMasterID,
		CompletedAt:        t.CompletedAt,
		Rating:             t.Rating,
		RatingComment:      t.RatingComment,
		Card:               format.TicketCard(*t),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if t.CarPlate != nil {
		resp.CarPlate = &dto.CarPlatePayload{
			Plate:         t.CarPlate.Plate,
			Gate:          t.CarPlate.Gate,
			HasParking:    t.CarPlate.HasParking,
			ParkingNumber: t.CarPlate.ParkingNumber,
			ParkingReason: t.CarPlate.ParkingReason,
			ContractPhoto: t.CarPlate.ContractPhoto,
		}
	}
	if t.CameraAccess != nil {
		resp.CameraAccess = &dto.CameraAccessPayload{
			Email:   t.CameraAccess.Email,
			Details: t.CameraAccess.Details,
		}
	}
	if t.Keys != nil {
		resp.Keys = &dto.KeysPayload{Count: t.Keys.Count, Type: t.Keys.Type}
	}
	return resp
}

func historyEntry(e domain.TicketHistoryEntry) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		OldStatus:     e.OldStatus,
		NewStatus:     e.NewStatus,
		ChangedByID:   e.ChangedByID,
		ChangedByRole: e.ChangedByRole,
		Comment:       e.Comment,
		Rendered:      format.HistoryEntry(e),
		ChangedAt:     e.ChangedAt,
	}
}

func ticketPage(page *service.TicketPage) dto.TicketPageResponse {
	items := make([]dto.TicketSummary, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, ticketSummary(&page.Tickets[i]))
	}
	return dto.TicketPageResponse{
		Tickets:    items,
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
	}
}

func ownerResponse(o *domain.Owner) dto.OwnerResponse {
	return dto.OwnerResponse{
		ID:                 o.ID,
		Phone:              o.Phone,
		FullName:           o.FullName,
		ResidentialComplex: o.ResidentialComplex,
		Block:              o.Block,
		Entrance:           o.Entrance,
		Apartment:          o.Apartment,
		TelegramID:         o.TelegramID,
		IsActive:           o.IsActive,
		Language:           o.Language,
		CreatedAt:          o.CreatedAt,
	}
}

func masterResponse(m *domain.Master) dto.MasterResponse {
	return dto.MasterResponse{
		ID:                   m.ID,
		TelegramID:           m.TelegramID,
		FullName:             m.FullName,
		Username:             m.Username,
		ResidentialComplexes: m.ResidentialComplexes,
		IsActive:             m.IsActive,
		Language:             m.Language,
		CreatedAt:            m.CreatedAt,
	}
}

func adminResponse(a *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:         a.ID,
		TelegramID: a.TelegramID,
		FullName:   a.FullName,
		Language:   a.Language,
	}
}

func botTextResponse(t domain.BotText) dto.BotTextResponse {
	return dto.BotTextResponse{
		ID:          t.ID,
		Key:         t.Key,
		Language:    t.Language,
		Value:       t.Value,
		Description: t.Description,
		UpdatedAt:   t.UpdatedAt,
	}
}
