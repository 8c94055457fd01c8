package tickets

import (
	"fmt"
	"strings"

	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/pagination"
	"github.com/olegbarsky/techstock-bot/pkg/telegram"
)

// Card renders the ticket as chat text: number, linked contract, and
// the device collection in position order.
func Card(ticket *models.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s\n", ticket.Number)
	if ticket.Contract != nil {
		fmt.Fprintf(&b, "Contract %s\n", ticket.Contract.Number)
	} else {
		b.WriteString("Contract not linked\n")
	}
	if len(ticket.Devices) == 0 {
		b.WriteString("No devices yet")
		return b.String()
	}
	b.WriteString("Devices:\n")
	for _, device := range ticket.Devices {
		b.WriteString(deviceLine(device))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func deviceLine(device models.Device) string {
	name := "device"
	if device.Type != nil {
		name = device.Type.Name
	}
	line := fmt.Sprintf("%d. %s", device.Position+1, name)
	if device.SerialNumber != nil {
		line += " " + *device.SerialNumber
	}
	if device.Defect {
		line += " (defect)"
	}
	return line
}

// CardKeyboard renders the per-device controls plus the ticket-level
// actions below them.
func CardKeyboard(ticket *models.Ticket) telegram.InlineKeyboard {
	var keyboard telegram.InlineKeyboard
	for _, device := range ticket.Devices {
		row := []telegram.InlineButton{
			{
				Text:         fmt.Sprintf("%d defect", device.Position+1),
				CallbackData: fmt.Sprintf("device:toggle:defect:%d", device.Position),
			},
			{
				Text:         fmt.Sprintf("%d remove", device.Position+1),
				CallbackData: fmt.Sprintf("device:remove:%d", device.Position),
			},
		}
		if device.Type != nil && device.Type.HasSerial && device.SerialNumber == nil {
			row = append(row, telegram.InlineButton{
				Text:         fmt.Sprintf("%d serial", device.Position+1),
				CallbackData: fmt.Sprintf("device:ask:serial_number:%d", device.Position),
			})
		}
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, []telegram.InlineButton{
		{Text: "Add device", CallbackData: "device:add"},
	})
	if ticket.ContractID == nil {
		keyboard = append(keyboard, []telegram.InlineButton{
			{Text: "Link contract", CallbackData: "contract:link"},
		})
	}
	keyboard = append(keyboard, []telegram.InlineButton{
		{Text: "Delete ticket", CallbackData: fmt.Sprintf("ticket:delete:%s", ticket.ID)},
		{Text: "Done", CallbackData: "menu"},
	})
	return keyboard
}

// TypeKeyboard lists the device catalog, one type per row.
func TypeKeyboard(types []models.DeviceType) telegram.InlineKeyboard {
	var keyboard telegram.InlineKeyboard
	for _, deviceType := range types {
		keyboard = append(keyboard, []telegram.InlineButton{{
			Text:         deviceType.Name,
			CallbackData: "device:type:" + deviceType.Slug,
		}})
	}
	keyboard = append(keyboard, []telegram.InlineButton{{
		Text:         "Cancel",
		CallbackData: "ticket:show",
	}})
	return keyboard
}

// ConfirmDeleteKeyboard asks for the second press before a ticket is
// dropped.
func ConfirmDeleteKeyboard(ticket *models.Ticket) telegram.InlineKeyboard {
	return telegram.InlineKeyboard{
		{
			{Text: "Delete", CallbackData: fmt.Sprintf("ticket:delete:confirm:%s", ticket.ID)},
			{Text: "Keep", CallbackData: "ticket:show"},
		},
	}
}

// HistoryKeyboard lists one page of tickets with pager controls.
func HistoryKeyboard(list []models.Ticket, page pagination.Page) telegram.InlineKeyboard {
	var keyboard telegram.InlineKeyboard
	for _, ticket := range list {
		keyboard = append(keyboard, []telegram.InlineButton{{
			Text:         "Ticket " + ticket.Number,
			CallbackData: fmt.Sprintf("history:ticket:%s", ticket.ID),
		}})
	}
	var pager []telegram.InlineButton
	if page.HasPrev() {
		pager = append(pager, telegram.InlineButton{
			Text:         "Back",
			CallbackData: fmt.Sprintf("history:page:%d", page.Number-1),
		})
	}
	if page.HasNext() {
		pager = append(pager, telegram.InlineButton{
			Text:         "More",
			CallbackData: fmt.Sprintf("history:page:%d", page.Number+1),
		})
	}
	if len(pager) > 0 {
		keyboard = append(keyboard, pager)
	}
	keyboard = append(keyboard, []telegram.InlineButton{{
		Text:         "Menu",
		CallbackData: "menu",
	}})
	return keyboard
}
