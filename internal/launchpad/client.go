// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package launchpad reads the small slice of the Launchpad REST API
// the build path needs: which Ubuntu series exist, which are active,
// and which one is the current development series. All requests are
// anonymous and read-only.
package launchpad

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("langpacks.launchpad")

// DefaultBaseURL points at the production Launchpad API.
const DefaultBaseURL = "https://api.launchpad.net/devel"

// HTTPClient is the interface that is used to make HTTP requests.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Config holds the dependencies of a Client.
type Config struct {
	// HTTPClient performs the requests.
	HTTPClient HTTPClient

	// BaseURL is the API root; DefaultBaseURL when empty.
	BaseURL string
}

// Validate returns an error if the config is not usable.
func (c Config) Validate() error {
	if c.HTTPClient == nil {
		return errors.NotValidf("nil HTTPClient")
	}
	return nil
}

// Client is a read-only Launchpad API client.
type Client struct {
	client  HTTPClient
	baseURL string
}

// NewClient returns a Client using the supplied config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		client:  config.HTTPClient,
		baseURL: baseURL,
	}, nil
}

// seriesEntry carries the fields of a distro series entry we consume.
type seriesEntry struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type seriesPage struct {
	Entries []seriesEntry `json:"entries"`
}

// ActiveSeries returns the names of the Ubuntu series Launchpad
// considers active, in the order Launchpad returns them.
func (c *Client) ActiveSeries(ctx context.Context) ([]string, error) {
	var page seriesPage
	if err := c.get(ctx, "/ubuntu/series", &page); err != nil {
		return nil, errors.Trace(err)
	}
	var names []string
	for _, entry := range page.Entries {
		if entry.Active {
			names = append(names, entry.Name)
		}
	}
	logger.Debugf("launchpad active series: %v", names)
	return names, nil
}

// DevelopmentSeries returns the name of the current development
// series ("devel" resolves to this).
func (c *Client) DevelopmentSeries(ctx context.Context) (string, error) {
	var page seriesPage
	if err := c.get(ctx, "/ubuntu?ws.op=getDevelopmentSeries", &page); err != nil {
		return "", errors.Trace(err)
	}
	if len(page.Entries) == 0 {
		return "", errors.NotFoundf("development series")
	}
	return page.Entries[0].Name, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("launchpad returned status %d for %q", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Annotatef(err, "parsing launchpad response for %q", path)
	}
	return nil
}
