package models

// Place is one geocoder search candidate.
type Place struct {
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Address     Address `json:"address"`
}

// Address holds the address components requested with addressdetails=1.
type Address struct {
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
	County      string `json:"county,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// ShortName returns the tab label for the place: city, town, village, place name, then UnknownName.
func (p Place) ShortName() string {
	for _, s := range []string{p.Address.City, p.Address.Town, p.Address.Village, p.Name} {
		if s != "" {
			return s
		}
	}
	return UnknownName
}
