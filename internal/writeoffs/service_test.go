package writeoffs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/devicetypes"
	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
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
		&models.WriteoffDevice{},
	))

	pattern := "^[0-9A-Z]{6,12}$"
	require.NoError(t, conn.Create(&models.DeviceType{
		Slug:          "ont",
		Name:          "Optical terminal",
		HasSerial:     true,
		SerialPattern: &pattern,
	}).Error)
	require.NoError(t, conn.Create(&models.DeviceType{
		Slug: "splitter",
		Name: "Splitter",
	}).Error)

	user := &models.User{TelegramID: 1, IsEngineer: true}
	require.NoError(t, conn.Create(user).Error)

	return NewService(NewRepository(), devicetypes.NewRepository()), conn, user
}

func TestAddAndList(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, conn, user, "ont")
	require.NoError(t, err)
	require.NotNil(t, entry.Type)
	require.True(t, entry.Type.HasSerial)

	_, err = svc.Add(ctx, conn, user, "splitter")
	require.NoError(t, err)

	list, err := svc.List(ctx, conn, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Type)
}

func TestSetSerialValidation(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Add(ctx, conn, user, "ont")
	require.NoError(t, err)

	err = svc.SetSerial(ctx, conn, entry, "nope")
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeValidation, typed.Code())

	require.NoError(t, svc.SetSerial(ctx, conn, entry, "FF00AA11"))

	reloaded, err := svc.writeoffs.FindByID(ctx, conn, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.SerialNumber)
	require.Equal(t, "FF00AA11", *reloaded.SerialNumber)

	plain, err := svc.Add(ctx, conn, user, "splitter")
	require.NoError(t, err)
	err = svc.SetSerial(ctx, conn, plain, "FF00AA11")
	typed = errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeStateConflict, typed.Code())
}

func TestRemoveChecksOwnership(t *testing.T) {
	svc, conn, user := newTestService(t)
	ctx := context.Background()

	other := &models.User{TelegramID: 2}
	require.NoError(t, conn.Create(other).Error)

	entry, err := svc.Add(ctx, conn, user, "splitter")
	require.NoError(t, err)

	err = svc.Remove(ctx, conn, other, entry.ID)
	typed := errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeStateConflict, typed.Code())

	require.NoError(t, svc.Remove(ctx, conn, user, entry.ID))

	err = svc.Remove(ctx, conn, user, entry.ID)
	typed = errors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, errors.CodeNotFound, typed.Code())
}
