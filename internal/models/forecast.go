package models

// ForecastEndpoint is the result of a point lookup. ForecastURL is the only field
// required downstream; the rest is informational.
type ForecastEndpoint struct {
	ForecastURL   string `json:"forecastUrl"`
	GridID        string `json:"gridId,omitempty"`
	GridX         int    `json:"gridX,omitempty"`
	GridY         int    `json:"gridY,omitempty"`
	RelativeCity  string `json:"relativeCity,omitempty"`
	RelativeState string `json:"relativeState,omitempty"`
}

// ForecastPeriod is one named forecast period, displayed verbatim.
type ForecastPeriod struct {
	Number           int    `json:"number"`
	Name             string `json:"name"`
	StartTime        string `json:"startTime,omitempty"`
	EndTime          string `json:"endTime,omitempty"`
	IsDaytime        bool   `json:"isDaytime"`
	Temperature      int    `json:"temperature,omitempty"`
	TemperatureUnit  string `json:"temperatureUnit,omitempty"`
	WindSpeed        string `json:"windSpeed,omitempty"`
	WindDirection    string `json:"windDirection,omitempty"`
	ShortForecast    string `json:"shortForecast,omitempty"`
	DetailedForecast string `json:"detailedForecast"`
}
