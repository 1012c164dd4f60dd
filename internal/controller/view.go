package controller

import "github.com/kjstillabower/textweather/internal/models"

// Mode is the top-level view state.
type Mode string

const (
	ModeSetup    Mode = "setup"
	ModeForecast Mode = "forecast"
)

// User-visible status and placeholder strings.
const (
	StatusSearching     = "Searching..."
	StatusNoResults     = "No results found."
	StatusFetching      = "Fetching weather data..."
	StatusNWSError      = "Error fetching NWS data."
	StatusSaveError     = "Unable to save favorites."
	ForecastLoading     = "Loading forecast..."
	ForecastUnavailable = "Unable to load forecast."
)

// Tab is one rendered favorite tab.
type Tab struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Active   bool   `json:"active"`
}

// ForecastView is the forecast display region. Message holds the loading or failure
// placeholder; Periods is set only after a successful fetch.
type ForecastView struct {
	FavoriteID string                  `json:"favoriteId,omitempty"`
	Loading    bool                    `json:"loading"`
	Message    string                  `json:"message,omitempty"`
	Periods    []models.ForecastPeriod `json:"periods,omitempty"`
}

// ContextMenu is the per-tab secondary-click menu.
type ContextMenu struct {
	Visible  bool   `json:"visible"`
	TargetID string `json:"targetId,omitempty"`
}

// View is a snapshot of everything the page renders.
type View struct {
	Mode        Mode           `json:"mode"`
	ActiveID    string         `json:"activeId,omitempty"`
	Tabs        []Tab          `json:"tabs"`
	TabsVersion uint64         `json:"tabsVersion"`
	CityInput   string         `json:"cityInput"`
	StateInput  string         `json:"stateInput"`
	Status      string         `json:"status"`
	Results     []models.Place `json:"results"`
	Forecast    ForecastView   `json:"forecast"`
	Menu        ContextMenu    `json:"menu"`
}
