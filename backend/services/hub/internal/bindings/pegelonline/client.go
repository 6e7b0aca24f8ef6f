package pegelonline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/WilliamKTurner/openhab-addons/backend/libs/httpclient"
)

// StationsURI is the public station endpoint.
const StationsURI = "https://www.pegelonline.wsv.de/webservices/rest-api/v2/stations"

// Client calls the pegelonline REST API.
type Client struct {
	base *httpclient.BaseClient
}

// NewClient builds client. Empty baseURL uses StationsURI.
func NewClient(baseURL string, doer httpclient.HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = StationsURI
	}
	return &Client{base: httpclient.NewBaseClient(baseURL, doer)}
}

// CurrentMeasure fetches the current water level of a station.
func (c *Client) CurrentMeasure(ctx context.Context, uuid string) (*Measure, error) {
	resp, err := c.base.Get(ctx, "/"+url.PathEscape(uuid)+"/W/currentmeasurement.json", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(uuid); err != nil {
		return nil, err
	}
	var m Measure
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("decode measure: %w", err)
	}
	return &m, nil
}

// Stations lists all stations.
func (c *Client) Stations(ctx context.Context) ([]Station, error) {
	resp, err := c.base.Get(ctx, "", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(""); err != nil {
		return nil, err
	}
	var stations []Station
	if err := json.Unmarshal(resp.Body, &stations); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	return stations, nil
}
