package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kjstillabower/textweather/internal/models"
)

// SearchLocation queries Nominatim for "<city>, <state>" restricted to the configured
// country codes. Any failure, including zero matches, yields the failed Result.
func (c *Client) SearchLocation(ctx context.Context, city, state string) Result[[]models.Place] {
	u, err := url.Parse(strings.TrimRight(c.nominatimURL, "/") + "/search")
	if err != nil {
		c.recordOutcome(ServiceNominatim, err)
		return Failed[[]models.Place](fmt.Errorf("invalid search URL: %w", err))
	}
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%s, %s", city, state))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", strings.Join(c.countryCodes, ","))
	u.RawQuery = params.Encode()

	var places []models.Place
	if err := c.getJSON(ctx, ServiceNominatim, u.String(), "application/json", &places); err != nil {
		c.recordOutcome(ServiceNominatim, err)
		return Failed[[]models.Place](err)
	}
	if len(places) == 0 {
		c.recordOutcome(ServiceNominatim, ErrNoResults)
		return Failed[[]models.Place](ErrNoResults)
	}
	c.recordOutcome(ServiceNominatim, nil)
	return Ok(places)
}
