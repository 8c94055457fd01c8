package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/contracts"
	"github.com/olegbarsky/techstock-bot/internal/devicetypes"
	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/enums"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *models.User) {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{
		DSN:          ":memory:",
		MaxOpenConns: 1,
	}, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := client.DB()
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.DeviceType{},
		&models.Contract{},
		&models.Ticket{},
		&models.Device{},
	))

	pattern := "^[0-9A-Z]{6,12}$"
	require.NoError(t, conn.Create(&models.DeviceType{
		Slug:          "router",
		Name:          "Router",
		HasSerial:     true,
		SerialPattern: &pattern,
	}).Error)
	require.NoError(t, conn.Create(&models.DeviceType{
		Slug: "cable",
		Name: "Patch cable",
	}).Error)
	require.NoError(t, conn.Create(&models.DeviceType{
		Slug:     "splitter",
		Name:     "Splitter",
		Statuses: "installed,removed",
	}).Error)

	user := &models.User{TelegramID: 1, IsEngineer: true}
	require.NoError(t, conn.Create(user).Error)

	svc := NewService(NewRepository(), contracts.NewRepository(), devicetypes.NewRepository(), config.BotConfig{
		BotID:                 1,
		MaxDevicesPerTicket:   3,
		TicketNumberPattern:   "^[0-9]{3,10}$",
		ContractNumberPattern: "^[0-9A-Za-z/-]{3,32}$",
		HistoryPageSize:       2,
	})
	return svc, conn, user
}

func requireCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	typed := errors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestCreateValidatesNumber(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, conn, user, "ab")
	requireCode(t, err, errors.CodeValidation)

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	require.Equal(t, "12345", ticket.Number)

	// The external number is unique across users.
	_, err = svc.Create(ctx, conn, user, "12345")
	requireCode(t, err, errors.CodeValidation)
}

func TestAddDeviceAssignsPositionsAndCapsCount(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)

	first, err := svc.AddDevice(ctx, conn, ticket, "router")
	require.NoError(t, err)
	require.Equal(t, 0, first.Position)

	second, err := svc.AddDevice(ctx, conn, ticket, "cable")
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)

	_, err = svc.AddDevice(ctx, conn, ticket, "cable")
	require.NoError(t, err)

	_, err = svc.AddDevice(ctx, conn, ticket, "cable")
	requireCode(t, err, errors.CodeValidation)

	fresh, err := svc.Create(ctx, conn, user, "99999")
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, conn, fresh, "no_such_type")
	requireCode(t, err, errors.CodeNotFound)
}

func TestSetSerialValidatesPattern(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, conn, ticket, "router")
	require.NoError(t, err)

	_, err = svc.SetSerial(ctx, conn, ticket, 0, "bad serial!")
	requireCode(t, err, errors.CodeValidation)

	device, err := svc.SetSerial(ctx, conn, ticket, 0, "AB12CD34")
	require.NoError(t, err)
	require.NotNil(t, device.SerialNumber)
	require.Equal(t, "AB12CD34", *device.SerialNumber)

	// Serial-less types reject the operation outright.
	_, err = svc.AddDevice(ctx, conn, ticket, "cable")
	require.NoError(t, err)
	_, err = svc.SetSerial(ctx, conn, ticket, 1, "AB12CD34")
	requireCode(t, err, errors.CodeStateConflict)
}

func TestToggleDefectFollowsTransitions(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, conn, ticket, "router")
	require.NoError(t, err)

	device, err := svc.ToggleDefect(ctx, conn, ticket, 0)
	require.NoError(t, err)
	require.True(t, device.Defect)
	require.Equal(t, enums.DeviceStatusDefect, device.Status)

	device, err = svc.ToggleDefect(ctx, conn, ticket, 0)
	require.NoError(t, err)
	require.False(t, device.Defect)
	require.Equal(t, enums.DeviceStatusInstalled, device.Status)
}

func TestToggleDefectRespectsTypeStatuses(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, conn, ticket, "splitter")
	require.NoError(t, err)

	// Splitters never hold the defect state; the toggle is rejected
	// and the device stays untouched.
	_, err = svc.ToggleDefect(ctx, conn, ticket, 0)
	requireCode(t, err, errors.CodeStateConflict)

	reloaded, err := svc.Get(ctx, conn, ticket.ID)
	require.NoError(t, err)
	require.False(t, reloaded.Devices[0].Defect)
	require.Equal(t, enums.DeviceStatusInstalled, reloaded.Devices[0].Status)
}

func TestRemoveDeviceCompactsPositions(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = svc.AddDevice(ctx, conn, ticket, "cable")
		require.NoError(t, err)
	}

	require.NoError(t, svc.RemoveDevice(ctx, conn, ticket, 0))
	require.Len(t, ticket.Devices, 2)
	require.Equal(t, 0, ticket.Devices[0].Position)
	require.Equal(t, 1, ticket.Devices[1].Position)

	reloaded, err := svc.Get(ctx, conn, ticket.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Devices, 2)
	require.Equal(t, 0, reloaded.Devices[0].Position)
	require.Equal(t, 1, reloaded.Devices[1].Position)
}

func TestLinkContractReusesExistingNumber(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	second, err := svc.Create(ctx, conn, user, "67890")
	require.NoError(t, err)

	_, err = svc.LinkContract(ctx, conn, first, "??")
	requireCode(t, err, errors.CodeValidation)

	contractA, err := svc.LinkContract(ctx, conn, first, "C-100")
	require.NoError(t, err)
	contractB, err := svc.LinkContract(ctx, conn, second, "C-100")
	require.NoError(t, err)
	require.Equal(t, contractA.ID, contractB.ID)

	var count int64
	require.NoError(t, conn.Model(&models.Contract{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeleteCascadesDevices(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, conn, user, "12345")
	require.NoError(t, err)
	_, err = svc.AddDevice(ctx, conn, ticket, "cable")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, conn, ticket.ID))

	_, err = svc.Get(ctx, conn, ticket.ID)
	requireCode(t, err, errors.CodeNotFound)

	err = svc.Delete(ctx, conn, ticket.ID)
	requireCode(t, err, errors.CodeNotFound)
}

func TestHistoryPaginates(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	numbers := []string{"100", "200", "300", "400", "500"}
	for _, number := range numbers {
		_, err := svc.Create(ctx, conn, user, number)
		require.NoError(t, err)
	}

	list, page, err := svc.History(ctx, conn, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 3, page.Count())
	require.False(t, page.HasPrev())
	require.True(t, page.HasNext())

	list, page, err = svc.History(ctx, conn, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, page.HasNext())

	// A page number past the end lands on the last real page.
	list, page, err = svc.History(ctx, conn, user.ID, 9)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 2, page.Number)
}
