// Package airtable reads recipe and planning records from the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meal-dashboard/internal/config"
	"meal-dashboard/internal/planner"
	"meal-dashboard/internal/recipe"
	"meal-dashboard/internal/week"
)

var (
	// ErrNotConfigured is returned when the token or a table id is missing.
	ErrNotConfigured = errors.New("airtable is not configured")
	// ErrUnauthenticated is returned on 401 and 403 responses.
	ErrUnauthenticated = errors.New("airtable rejected the token")
	// ErrServiceUnavailable is returned on any other non-success status.
	ErrServiceUnavailable = errors.New("airtable returned an error status")
	// ErrNetwork is returned when the request could not be completed.
	ErrNetwork = errors.New("airtable is unreachable")
)

// record is a single row of an Airtable list response.
type record struct {
	ID     string          `json:"id"`
	Fields json.RawMessage `json:"fields"`
}

// listResponse is one page of an Airtable list response.
type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

// Client fetches records with the token currently held in creds.
type Client struct {
	httpClient *http.Client
	config     config.AirtableConfig
	creds      *config.CredentialsHolder
}

// NewClient creates a new Airtable API client.
func NewClient(cfg config.AirtableConfig, creds *config.CredentialsHolder) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config:     cfg,
		creds:      creds,
	}
}

// FetchRecipes lists every row of the recipes table.
func (c *Client) FetchRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	if c.config.RecipesTable == "" {
		return nil, fmt.Errorf("%w: recipes table not set", ErrNotConfigured)
	}

	records, err := c.list(ctx, c.config.RecipesTable, nil)
	if err != nil {
		return nil, err
	}

	recipes := make([]recipe.Recipe, 0, len(records))
	for _, r := range records {
		var rec recipe.Recipe
		if len(r.Fields) > 0 {
			if err := json.Unmarshal(r.Fields, &rec); err != nil {
				return nil, fmt.Errorf("failed to decode recipe %s: %w", r.ID, err)
			}
		}
		rec.ID = r.ID
		recipes = append(recipes, rec)
	}
	return recipes, nil
}

// FetchPlanning lists the planning rows dated within the selected week.
func (c *Client) FetchPlanning(ctx context.Context, sel week.Selector) ([]planner.Entry, error) {
	if c.config.PlanningTable == "" {
		return nil, fmt.Errorf("%w: planning table not set", ErrNotConfigured)
	}

	dates := sel.Dates()
	query := url.Values{}
	query.Set("filterByFormula", DateRangeFormula(week.DateKey(dates[0]), week.DateKey(dates[6])))

	records, err := c.list(ctx, c.config.PlanningTable, query)
	if err != nil {
		return nil, err
	}

	entries := make([]planner.Entry, 0, len(records))
	for _, r := range records {
		var e planner.Entry
		if len(r.Fields) > 0 {
			if err := json.Unmarshal(r.Fields, &e); err != nil {
				return nil, fmt.Errorf("failed to decode planning row %s: %w", r.ID, err)
			}
		}
		e.ID = r.ID
		entries = append(entries, e)
	}
	return entries, nil
}

// DateRangeFormula builds the closed date range filter on the {date} field.
func DateRangeFormula(start, end string) string {
	return fmt.Sprintf("AND({date} >= '%s', {date} <= '%s')", start, end)
}

// list fetches every page of a table, following the offset cursor.
func (c *Client) list(ctx context.Context, table string, query url.Values) ([]record, error) {
	token := c.creds.Get().AirtableToken
	if token == "" {
		return nil, fmt.Errorf("%w: token not set", ErrNotConfigured)
	}
	if c.config.BaseID == "" {
		return nil, fmt.Errorf("%w: base id not set", ErrNotConfigured)
	}

	var all []record
	offset := ""
	for {
		page, err := c.fetchPage(ctx, token, table, query, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

func (c *Client) fetchPage(ctx context.Context, token, table string, query url.Values, offset string) (*listResponse, error) {
	params := url.Values{}
	for k, v := range query {
		params[k] = v
	}
	if offset != "" {
		params.Set("offset", offset)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.config.APIURL, "/"), url.PathEscape(c.config.BaseID), url.PathEscape(table))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthenticated, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}
