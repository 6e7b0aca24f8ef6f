package solarforecast

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// BaseURL of the forecast.solar API.
const BaseURL = "https://api.forecast.solar"

// Client calls the estimate endpoint.
type Client struct {
	base *httpclient.BaseClient
}

// NewClient builds client. Empty baseURL uses BaseURL.
func NewClient(baseURL string, doer httpclient.HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{base: httpclient.NewBaseClient(baseURL, doer)}
}

// EstimatePath builds "[apiKey/]estimate/lat/lon/dec/az/kwp".
func EstimatePath(apiKey string, loc thing.Point, plane PlaneConfig) string {
	path := "/"
	if apiKey != "" {
		path += url.PathEscape(apiKey) + "/"
	}
	return path + fmt.Sprintf("estimate/%s/%s/%d/%d/%s",
		strconv.FormatFloat(loc.Lat, 'f', -1, 64),
		strconv.FormatFloat(loc.Lon, 'f', -1, 64),
		plane.Declination, plane.Azimuth,
		strconv.FormatFloat(plane.KWP, 'f', -1, 64))
}

// Estimate fetches the raw estimate for one plane.
func (c *Client) Estimate(ctx context.Context, apiKey string, loc thing.Point, plane PlaneConfig) ([]byte, error) {
	resp, err := c.base.Get(ctx, EstimatePath(apiKey, loc, plane), nil, map[string]string{"Accept": httpclient.ContentTypeJSON})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(""); err != nil {
		return nil, err
	}
	return resp.Body, nil
}
