package bot

import (
	"github.com/olegbarsky/techstock-bot/internal/guards"
	"github.com/olegbarsky/techstock-bot/internal/router"
	"github.com/olegbarsky/techstock-bot/internal/tickets"
	"github.com/olegbarsky/techstock-bot/internal/writeoffs"
)

// Routes bundles the handler sets and the repositories the guards
// load through.
type Routes struct {
	Menu      *MenuHandlers
	Tickets   *tickets.Handlers
	Writeoffs *writeoffs.Handlers

	TicketRepo   *tickets.Repository
	WriteoffRepo *writeoffs.Repository

	MaxDevices int
}

// Register wires every command path into the engine's router. Paths
// registered here are the complete callback and free-text grammar of
// the bot.
func (e *Engine) Register(routes Routes) {
	r := e.commands
	cardLoads := []string{guards.LoadDevices, guards.LoadDeviceTypes, guards.LoadContract}

	withTicket := func(h router.HandlerFunc) router.HandlerFunc {
		return guards.RequireTicket(routes.TicketRepo, cardLoads, h)
	}
	withDevice := func(mode guards.IndexMode, h router.HandlerFunc) router.HandlerFunc {
		return withTicket(guards.RequireDeviceIndex(mode, routes.MaxDevices, h))
	}

	r.Register("menu", 0, routes.Menu.Menu)
	r.Register("user:toggle:registration", 0, routes.Menu.ToggleRegistration)

	r.Register("ticket:create", 0, guards.RequireNoTicket(routes.Tickets.StartCreate))
	r.Register("ticket:set:number", 1, guards.RequireNoTicket(routes.Tickets.SetNumber))
	r.Register("ticket:show", 0, withTicket(routes.Tickets.Show))
	r.Register("ticket:delete", 1, withTicket(routes.Tickets.AskDelete))
	r.Register("ticket:delete:confirm", 1, withTicket(routes.Tickets.ConfirmDelete))

	r.Register("device:add", 0, withTicket(routes.Tickets.StartAddDevice))
	r.Register("device:type", 1, withTicket(routes.Tickets.PickType))
	r.Register("device:ask:serial_number", 1, withDevice(guards.IndexExisting, routes.Tickets.AskSerial))
	r.Register("device:set:serial_number", 2, withDevice(guards.IndexExisting, routes.Tickets.SetSerial))
	r.Register("device:toggle:defect", 1, withDevice(guards.IndexExisting, routes.Tickets.ToggleDefect))
	r.Register("device:remove", 1, withDevice(guards.IndexExisting, routes.Tickets.RemoveDevice))

	r.Register("contract:link", 0, withTicket(routes.Tickets.StartLinkContract))
	r.Register("contract:set:number", 1, withTicket(routes.Tickets.SetContractNumber))

	r.Register("history:page", 1, routes.Tickets.HistoryPage)
	r.Register("history:ticket", 1, routes.Tickets.OpenFromHistory)

	r.Register("writeoff:add", 0, routes.Writeoffs.StartAdd)
	r.Register("writeoff:type", 1, routes.Writeoffs.PickType)
	r.Register("writeoff:set:serial_number", 1, guards.RequireWriteoff(routes.WriteoffRepo, routes.Writeoffs.SetSerial))
	r.Register("writeoff:list", 0, routes.Writeoffs.List)
	r.Register("writeoff:toggle:defect", 1, routes.Writeoffs.ToggleDefect)
	r.Register("writeoff:remove", 1, routes.Writeoffs.Remove)
}
