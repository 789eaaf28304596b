package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Place is a business returned by text search.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Types            []string `json:"types"`
}

// Details holds the contact fields fetched per place.
type Details struct {
	Name           string `json:"name"`
	Phone          string `json:"formatted_phone_number"`
	Website        string `json:"website"`
	BusinessStatus string `json:"business_status"`
}

// SearchParams describe one discovery request.
type SearchParams struct {
	Query    string
	Location string
	Radius   int
}

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Google Places REST endpoints.
type Client struct {
	client  HTTPClient
	baseURL string
	apiKey  string
}

// NewClient builds a Places client with a sensible default timeout.
func NewClient(client HTTPClient, apiKey string) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{client: client, baseURL: defaultBaseURL, apiKey: apiKey}
}

// NewClientWithBaseURL overrides the endpoint base, useful for tests.
func NewClientWithBaseURL(client HTTPClient, apiKey, baseURL string) *Client {
	c := NewClient(client, apiKey)
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

// TextSearch discovers establishments around the configured center. A
// non-success provider status is returned as an error; the caller treats
// it as fatal for the run.
func (c *Client) TextSearch(ctx context.Context, params SearchParams) ([]Place, error) {
	values := url.Values{}
	values.Set("query", params.Query)
	values.Set("location", params.Location)
	values.Set("radius", strconv.Itoa(params.Radius))
	values.Set("type", "establishment")
	values.Set("key", c.apiKey)

	var payload struct {
		Status       string  `json:"status"`
		ErrorMessage string  `json:"error_message"`
		Results      []Place `json:"results"`
	}
	if err := c.getJSON(ctx, "/textsearch/json", values, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK", "ZERO_RESULTS":
		return payload.Results, nil
	default:
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("places text search: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("places text search: %s", payload.Status)
	}
}

// Details fetches contact fields for a single place.
func (c *Client) Details(ctx context.Context, placeID string) (Details, error) {
	values := url.Values{}
	values.Set("place_id", placeID)
	values.Set("fields", "name,formatted_phone_number,website,business_status")
	values.Set("key", c.apiKey)

	var payload struct {
		Status       string  `json:"status"`
		ErrorMessage string  `json:"error_message"`
		Result       Details `json:"result"`
	}
	if err := c.getJSON(ctx, "/details/json", values, &payload); err != nil {
		return Details{}, err
	}

	if payload.Status != "OK" {
		if payload.ErrorMessage != "" {
			return Details{}, fmt.Errorf("places details: %s: %s", payload.Status, payload.ErrorMessage)
		}
		return Details{}, fmt.Errorf("places details: %s", payload.Status)
	}

	return payload.Result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create places request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places endpoint returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode places response: %w", err)
	}
	return nil
}
