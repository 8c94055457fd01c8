package users

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

// Repository is the persistence surface for user rows. Reads used by
// the session cache run on the shared connection; per-turn writes go
// through the transaction handed in by the caller.
type Repository struct {
	client *db.Client
}

func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// FindByTelegramID fetches the full user row for the chat-platform id.
func (r *Repository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.client.DB().
		WithContext(ctx).
		Where("telegram_id = ?", telegramID).
		First(&user).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "user not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching user")
	}
	return &user, nil
}

// MarkerByTelegramID reads only the freshness marker for the user, the
// cheap projection the session cache probes before deciding whether a
// cached row is still current.
func (r *Repository) MarkerByTelegramID(ctx context.Context, telegramID int64) (time.Time, error) {
	var marker struct {
		UpdatedAt time.Time
	}
	err := r.client.DB().
		WithContext(ctx).
		Model(&models.User{}).
		Select("updated_at").
		Where("telegram_id = ?", telegramID).
		Take(&marker).Error
	if err != nil {
		if db.IsNotFound(err) {
			return time.Time{}, errors.Wrap(errors.CodeNotFound, err, "user not found")
		}
		return time.Time{}, errors.Wrap(errors.CodeDependency, err, "fetching user marker")
	}
	return marker.UpdatedAt, nil
}

// Create inserts a new user row on the provided connection, which is
// the turn's transaction when the row must commit with the rest of the
// turn (a guest's first interaction).
func (r *Repository) Create(ctx context.Context, conn *gorm.DB, user *models.User) error {
	if err := conn.WithContext(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return errors.Wrap(errors.CodeStateConflict, err, "user already registered")
		}
		return errors.Wrap(errors.CodeDependency, err, "creating user")
	}
	return nil
}

// Save persists the full user row, including the conversation state
// blob, within the turn's transaction. The freshness marker advances
// in lockstep on the struct and the row, truncated to the store's
// timestamp precision so the cached copy compares equal to what a
// later marker probe reads back.
func (r *Repository) Save(ctx context.Context, tx *gorm.DB, user *models.User) error {
	user.UpdatedAt = stampMarker()
	if err := tx.WithContext(ctx).Omit("Tickets", "Writeoffs").Save(user).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving user")
	}
	return nil
}

// SaveState persists only the conversation state column, still bumping
// the freshness marker, for turns that touched nothing else on the row.
func (r *Repository) SaveState(ctx context.Context, tx *gorm.DB, user *models.User) error {
	user.UpdatedAt = stampMarker()
	err := tx.WithContext(ctx).
		Model(user).
		Updates(map[string]any{
			"state":      user.State,
			"updated_at": user.UpdatedAt,
		}).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving conversation state")
	}
	return nil
}

// stampMarker produces the next marker value. Sub-microsecond digits
// are dropped: postgres timestamptz keeps microseconds, and a marker
// the store rounds would never again compare equal to the cached copy.
func stampMarker() time.Time {
	return time.Now().UTC().Truncate(models.MarkerPrecision)
}

// RegistrationOpen reports whether any manager currently accepts
// self-registrations.
func (r *Repository) RegistrationOpen(ctx context.Context) (bool, error) {
	var count int64
	err := r.client.DB().
		WithContext(ctx).
		Model(&models.User{}).
		Where("is_manager = ? AND accepts_registrations = ? AND disabled = ?", true, true, false).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(errors.CodeDependency, err, "counting registration managers")
	}
	return count > 0, nil
}

// Managers lists enabled managers, for registration announcements.
func (r *Repository) Managers(ctx context.Context) ([]models.User, error) {
	var managers []models.User
	err := r.client.DB().
		WithContext(ctx).
		Where("is_manager = ? AND disabled = ?", true, false).
		Order("created_at ASC").
		Find(&managers).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing managers")
	}
	return managers, nil
}
