package stock

import (
	"context"
	"fmt"
	"slices"
)

// SettingsService loads and saves the single AppSettings document.
// Callers load settings once and pass them explicitly to the evaluators.
type SettingsService struct {
	store Store
}

func NewSettingsService(store Store) *SettingsService {
	return &SettingsService{store: store}
}

// Load returns the stored settings, creating the defaults on first read.
func (s *SettingsService) Load(ctx context.Context) (AppSettings, error) {
	stored, err := s.store.GetSettings(ctx)
	if err != nil {
		return AppSettings{}, WrapStorage("get settings", err)
	}
	if stored != nil {
		return *stored, nil
	}
	defaults := DefaultSettings()
	if err := s.store.SaveSettings(ctx, defaults); err != nil {
		return AppSettings{}, WrapStorage("save settings", err)
	}
	return defaults, nil
}

// Save validates and replaces the settings.
func (s *SettingsService) Save(ctx context.Context, settings AppSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	return WrapStorage("save settings", s.store.SaveSettings(ctx, settings))
}

// ValidateSettings checks the lock timeout against AllowedLockTimeouts.
func ValidateSettings(settings AppSettings) error {
	if settings.Lock.Enabled && !slices.Contains(AllowedLockTimeouts, settings.Lock.TimeoutMinutes) {
		return &ValidationError{
			Code:    "invalid_lock_timeout",
			Message: fmt.Sprintf("lock timeout must be one of %v minutes", AllowedLockTimeouts),
		}
	}
	return nil
}
