package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kjstillabower/textweather/internal/models"
)

const geoJSON = "application/geo+json"

type pointsResponse struct {
	Properties *struct {
		Forecast         string `json:"forecast"`
		GridID           string `json:"gridId"`
		GridX            int    `json:"gridX"`
		GridY            int    `json:"gridY"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties *struct {
		Periods *[]models.ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// ResolveForecastEndpoint looks up the NWS grid point for lat,lon and returns its
// forecast URL. A response without properties.forecast is malformed.
func (c *Client) ResolveForecastEndpoint(ctx context.Context, lat, lon string) Result[models.ForecastEndpoint] {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		err := fmt.Errorf("%w: missing coordinates", ErrMalformedResponse)
		c.recordOutcome(ServiceNWSPoints, err)
		return Failed[models.ForecastEndpoint](err)
	}
	endpoint := fmt.Sprintf("%s/points/%s,%s", strings.TrimRight(c.nwsURL, "/"), url.PathEscape(lat), url.PathEscape(lon))

	var resp pointsResponse
	if err := c.getJSON(ctx, ServiceNWSPoints, endpoint, geoJSON, &resp); err != nil {
		c.recordOutcome(ServiceNWSPoints, err)
		return Failed[models.ForecastEndpoint](err)
	}
	if resp.Properties == nil || resp.Properties.Forecast == "" {
		err := fmt.Errorf("%w: properties.forecast absent", ErrMalformedResponse)
		c.recordOutcome(ServiceNWSPoints, err)
		return Failed[models.ForecastEndpoint](err)
	}
	c.recordOutcome(ServiceNWSPoints, nil)
	p := resp.Properties
	return Ok(models.ForecastEndpoint{
		ForecastURL:   p.Forecast,
		GridID:        p.GridID,
		GridX:         p.GridX,
		GridY:         p.GridY,
		RelativeCity:  p.RelativeLocation.Properties.City,
		RelativeState: p.RelativeLocation.Properties.State,
	})
}

// GetForecast fetches the forecast periods at forecastURL. A present but empty
// periods list is a success with nothing to show.
func (c *Client) GetForecast(ctx context.Context, forecastURL string) Result[[]models.ForecastPeriod] {
	if strings.TrimSpace(forecastURL) == "" {
		err := fmt.Errorf("%w: empty forecast URL", ErrMalformedResponse)
		c.recordOutcome(ServiceNWSForecast, err)
		return Failed[[]models.ForecastPeriod](err)
	}

	var resp forecastResponse
	if err := c.getJSON(ctx, ServiceNWSForecast, forecastURL, geoJSON, &resp); err != nil {
		c.recordOutcome(ServiceNWSForecast, err)
		return Failed[[]models.ForecastPeriod](err)
	}
	if resp.Properties == nil || resp.Properties.Periods == nil {
		err := fmt.Errorf("%w: properties.periods absent", ErrMalformedResponse)
		c.recordOutcome(ServiceNWSForecast, err)
		return Failed[[]models.ForecastPeriod](err)
	}
	c.recordOutcome(ServiceNWSForecast, nil)
	return Ok(*resp.Properties.Periods)
}
