package store

import (
	"context"

	"github.com/pkg/errors"
)

// UserSetting is the single per-user profile row: persona role, gender,
// and the timezone that is the source of truth for all local-time
// parsing and rendering for that user.
type UserSetting struct {
	UserID   string
	Role     string
	Gender   string
	Timezone string
}

// UpsertUserSetting partially updates a user's settings; nil fields keep
// their stored values.
type UpsertUserSetting struct {
	UserID   string
	Role     *string
	Gender   *string
	Timezone *string
}

// UpsertUserSetting creates or updates the user's settings row.
func (s *Store) UpsertUserSetting(ctx context.Context, upsert *UpsertUserSetting) (*UserSetting, error) {
	if upsert.UserID == "" {
		return nil, errors.New("user setting requires a user id")
	}
	setting, err := s.driver.UpsertUserSetting(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.userSettingCache.Set(setting.UserID, setting)
	return setting, nil
}

// GetUserSetting returns the user's settings, or nil when the user has
// none stored yet.
func (s *Store) GetUserSetting(ctx context.Context, userID string) (*UserSetting, error) {
	if v, ok := s.userSettingCache.Get(userID); ok {
		if setting, ok := v.(*UserSetting); ok {
			return setting, nil
		}
	}

	setting, err := s.driver.GetUserSetting(ctx, userID)
	if err != nil {
		return nil, err
	}
	if setting != nil {
		s.userSettingCache.Set(userID, setting)
	}
	return setting, nil
}

// ListUserSettings returns every known user's settings, for the daily
// digest loop.
func (s *Store) ListUserSettings(ctx context.Context) ([]*UserSetting, error) {
	return s.driver.ListUserSettings(ctx)
}
