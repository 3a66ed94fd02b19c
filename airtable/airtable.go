// Package airtable fetches rows from the Airtable REST API with cursor-based
// pagination.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// CellFormat selects how Airtable renders cell values.
type CellFormat string

const (
	// CellFormatString renders linked/lookup fields as display text. Airtable
	// requires timeZone and userLocale alongside it.
	CellFormatString CellFormat = "string"
	// CellFormatRaw keeps attachments and linked records structurally intact.
	CellFormatRaw CellFormat = ""
)

// FetchError indicates a non-success response from the table API. Fetch
// failures are fatal to a pipeline run; there is no retry.
type FetchError struct {
	URL    string
	Body   string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("airtable %d: %s", e.Status, e.Body)
}

// IsFetchError checks if an error is a remote fetch error.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Client fetches rows from one Airtable base.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiBase    string
	baseID     string
	token      string
	timeZone   string
	locale     string
}

// New creates a client for the given base. apiBase is the API root without a
// trailing slash, e.g. "https://api.airtable.com/v0". The caller supplies the
// HTTP client and owns its timeout policy.
func New(httpClient *http.Client, apiBase, baseID, token, timeZone, locale string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiBase:    apiBase,
		baseID:     baseID,
		token:      token,
		timeZone:   timeZone,
		locale:     locale,
	}
}

type listResponse struct {
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
	Offset string `json:"offset"`
}

// FetchRows fetches every row of a table, following the pagination cursor
// until the API stops returning one. Pages are fetched strictly one at a
// time. Any non-2xx response aborts with a *FetchError.
func (c *Client) FetchRows(ctx context.Context, tableID, viewID string, format CellFormat) ([]Record, error) {
	var rows []Record
	offset := ""
	pages := 0

	for {
		page, err := c.fetchPage(ctx, tableID, viewID, format, offset)
		if err != nil {
			return nil, err
		}
		pages++

		for _, rec := range page.Records {
			rows = append(rows, Record{ID: rec.ID, Fields: rec.Fields})
		}

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	c.logger.Info("Table fetched", "table", tableID, "rows", len(rows), "pages", pages)
	return rows, nil
}

func (c *Client) fetchPage(ctx context.Context, tableID, viewID string, format CellFormat, offset string) (*listResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/%s/%s", c.apiBase, c.baseID, tableID))
	if err != nil {
		return nil, fmt.Errorf("build table URL: %w", err)
	}

	q := u.Query()
	if format == CellFormatString {
		q.Set("cellFormat", string(CellFormatString))
		q.Set("timeZone", c.timeZone)
		q.Set("userLocale", c.locale)
	}
	if viewID != "" {
		q.Set("view", viewID)
	}
	if offset != "" {
		q.Set("offset", offset)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch table page: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("HTTP request completed",
		"table", tableID,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: u.String(), Status: resp.StatusCode, Body: string(body)}
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode table page: %w", err)
	}
	return &page, nil
}
