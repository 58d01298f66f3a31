// Package format renders tickets and history entries as human-readable text
// for notifications and dashboard views.
package format

import (
	"fmt"
	"strings"

	"github.com/qss-platform/resident-service/internal/domain"
)

// StatusDisplay maps statuses to their Russian display names.
var StatusDisplay = map[domain.TicketStatus]string{
	domain.TicketStatusNew:             "Новая",
	domain.TicketStatusInProgress:      "В работе",
	domain.TicketStatusCompleted:       "Выполнена",
	domain.TicketStatusClosed:          "Закрыта",
	domain.TicketStatusCancelled:       "Отменена",
	domain.TicketStatusWaitingClient:   "Ожидает клиента",
	domain.TicketStatusPendingApproval: "Ожидает одобрения",
	domain.TicketStatusMasterApproved:  "Одобрена мастером",
	domain.TicketStatusMasterRejected:  "Отклонена мастером",
	domain.TicketStatusApproved:        "Одобрена",
	domain.TicketStatusRejected:        "Отклонена",
}

// CategoryDisplay maps categories to their Russian display names.
var CategoryDisplay = map[domain.TicketCategory]string{
	domain.CategoryCCTV:         "Видеонаблюдение",
	domain.CategoryFaceID:       "Face ID",
	domain.CategoryCarPlate:     "Госномер",
	domain.CategoryCameraAccess: "Доступ к камерам",
	domain.CategoryIntercom:     "Домофон",
	domain.CategoryKeyMagnet:    "Ключ-магнит",
	domain.CategoryOther:        "Другое",
}

// Status returns the display name for a status, falling back to the raw tag.
func Status(s domain.TicketStatus) string {
	if display, ok := StatusDisplay[s]; ok {
		return display
	}
	return string(s)
}

// Category returns the display name for a category, falling back to the raw
// tag.
func Category(c domain.TicketCategory) string {
	if display, ok := CategoryDisplay[c]; ok {
		return display
	}
	return string(c)
}

const timeLayout = "02.01.2006 15:04"

// TicketCard renders the full ticket card used in notifications and detail
// views.
func TicketCard(t domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заявка %s\n", t.Code)
	fmt.Fprintf(&b, "Категория: %s\n", Category(t.Category))
	if t.SubCategory != "" {
		fmt.Fprintf(&b, "Подкатегория: %s\n", t.SubCategory)
	}
	fmt.Fprintf(&b, "ЖК: %s\n", t.ResidentialComplex)
	if address := formatAddress(t); address != "" {
		fmt.Fprintf(&b, "Адрес: %s\n", address)
	}
	fmt.Fprintf(&b, "Заявитель: %s (%s)\n", t.OwnerFullName, t.OwnerPhone)
	fmt.Fprintf(&b, "Описание: %s\n", t.Description)
	appendPayload(&b, t)
	fmt.Fprintf(&b, "Статус: %s\n", Status(t.Status))
	fmt.Fprintf(&b, "Создана: %s", t.CreatedAt.Format(timeLayout))
	return b.String()
}

// TicketLine renders the one-line list form: code, category, status.
func TicketLine(t domain.Ticket) string {
	return fmt.Sprintf("%s · %s · %s", t.Code, Category(t.Category), Status(t.Status))
}

// HistoryEntry renders one audit line.
func HistoryEntry(e domain.TicketHistoryEntry) string {
	var b strings.Builder
	b.WriteString(e.ChangedAt.Format(timeLayout))
	b.WriteString(" — ")
	if e.OldStatus != nil && *e.OldStatus != e.NewStatus {
		fmt.Fprintf(&b, "%s → %s", Status(*e.OldStatus), Status(e.NewStatus))
	} else {
		b.WriteString(Status(e.NewStatus))
	}
	if e.Comment != "" {
		b.WriteString(": ")
		b.WriteString(e.Comment)
	}
	return b.String()
}

// History renders the full audit trail, oldest first.
func History(entries []domain.TicketHistoryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, HistoryEntry(e))
	}
	return strings.Join(lines, "\n")
}

func formatAddress(t domain.Ticket) string {
	var parts []string
	if t.Block != "" {
		parts = append(parts, "блок "+t.Block)
	}
	if t.Entrance != "" {
		parts = append(parts, "подъезд "+t.Entrance)
	}
	if t.Apartment != "" {
		parts = append(parts, "кв. "+t.Apartment)
	}
	return strings.Join(parts, ", ")
}

func appendPayload(b *strings.Builder, t domain.Ticket) {
	switch {
	case t.CarPlate != nil:
		fmt.Fprintf(b, "Госномер: %s\n", t.CarPlate.Plate)
		if t.CarPlate.Gate != "" {
			fmt.Fprintf(b, "Шлагбаум: %s\n", t.CarPlate.Gate)
		}
		if t.CarPlate.HasParking != nil {
			if *t.CarPlate.HasParking {
				fmt.Fprintf(b, "Паркоместо: %s\n", t.CarPlate.ParkingNumber)
			} else if t.CarPlate.ParkingReason != "" {
				fmt.Fprintf(b, "Без паркоместа: %s\n", t.CarPlate.ParkingReason)
			}
		}
	case t.CameraAccess != nil:
		fmt.Fprintf(b, "Email: %s\n", t.CameraAccess.Email)
		if t.CameraAccess.Details != "" {
			fmt.Fprintf(b, "Камеры: %s\n", t.CameraAccess.Details)
		}
	case t.Keys != nil:
		fmt.Fprintf(b, "Ключи: %d шт. (%s)\n", t.Keys.Count, t.Keys.Type)
	}
}
