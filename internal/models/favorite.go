package models

// Favorite is a saved location shown as a tab. Field names match the persisted JSON slot.
type Favorite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	ForecastURL string `json:"forecastUrl"`
}

// UnknownName is the tab label used when the geocoder returns no usable place name.
const UnknownName = "Unknown"
