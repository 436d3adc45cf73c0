package rsssync

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const settingsKey = "rsssync_settings"

// Settings is the user-configurable RSS sync enabled flag and interval.
type Settings struct {
	Enabled     bool `json:"enabled"`
	IntervalMin int  `json:"intervalMin"`
}

// Rescheduler is invoked after settings are saved so the scheduler's cron
// expression picks up a changed interval immediately.
type Rescheduler func(intervalMin int) error

// SettingsHandler serves /api/v1/settings/rsssync, persisting into the
// shared key/value settings table rather than a dedicated one.
type SettingsHandler struct {
	db         *sql.DB
	defaults   Settings
	reschedule Rescheduler
}

// NewSettingsHandler constructs a SettingsHandler with the given fallback
// defaults, used when no settings row has been saved yet.
func NewSettingsHandler(db *sql.DB, defaults Settings) *SettingsHandler {
	return &SettingsHandler{db: db, defaults: defaults}
}

// SetRescheduler wires the callback that updates the live schedule.
func (h *SettingsHandler) SetRescheduler(fn Rescheduler) {
	h.reschedule = fn
}

// GetSettings returns the current RSS sync settings.
// GET /api/v1/settings/rsssync
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.load(c.Request().Context()))
}

// UpdateSettings updates RSS sync settings and reschedules the loop.
// PUT /api/v1/settings/rsssync
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	var input Settings
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	input.IntervalMin = ClampInterval(input.IntervalMin)

	if err := h.save(c.Request().Context(), &input); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.reschedule != nil {
		if err := h.reschedule(input.IntervalMin); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to reschedule: "+err.Error())
		}
	}

	return c.JSON(http.StatusOK, input)
}

// Current returns the persisted settings (or the handler's defaults if
// none have been saved yet), for use outside the HTTP layer — e.g. to
// pick the scheduler's initial cron expression at startup.
func (h *SettingsHandler) Current(ctx context.Context) Settings {
	return h.load(ctx)
}

func (h *SettingsHandler) load(ctx context.Context) Settings {
	row := h.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return h.defaults
	}

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return h.defaults
	}
	return settings
}

func (h *SettingsHandler) save(ctx context.Context, settings *Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, string(data))
	return err
}
