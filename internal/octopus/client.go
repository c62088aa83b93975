package octopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"evtracker/internal/charging"
)

const defaultPageSize = 1000

// HTTPDoer defines the http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Credentials identifies the metered supply. The API key doubles as the
// GraphQL identity; the core never sees any of this.
type Credentials struct {
	APIKey        string
	MPAN          string
	Serial        string
	AccountNumber string
}

// RestClient fetches half-hourly consumption readings from the provider's
// REST API using basic auth.
type RestClient struct {
	baseURL string
	creds   Credentials
	client  HTTPDoer
}

// NewRestClient builds a consumption client.
func NewRestClient(baseURL string, creds Credentials, client HTTPDoer) *RestClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RestClient{
		baseURL: baseURL,
		creds:   creds,
		client:  client,
	}
}

type consumptionPage struct {
	Next    string               `json:"next"`
	Results []charging.RawRecord `json:"results"`
}

// Consumption returns raw consumption records for [from, to]. Records are
// returned as decoded JSON objects; the normalizer owns field resolution.
func (c *RestClient) Consumption(ctx context.Context, from, to time.Time) ([]charging.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/electricity-meter-points/%s/meters/%s/consumption/",
		c.baseURL, url.PathEscape(c.creds.MPAN), url.PathEscape(c.creds.Serial))

	params := url.Values{}
	params.Set("period_from", from.UTC().Format(time.RFC3339))
	params.Set("period_to", to.UTC().Format(time.RFC3339))
	params.Set("page_size", strconv.Itoa(defaultPageSize))
	params.Set("order_by", "period")

	var records []charging.RawRecord
	next := endpoint + "?" + params.Encode()
	for next != "" {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Results...)
		next = page.Next
	}
	return records, nil
}

func (c *RestClient) fetchPage(ctx context.Context, rawURL string) (*consumptionPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.creds.APIKey, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("octopus: fetch consumption: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("octopus: read consumption response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("octopus: consumption request failed: %s: %s", resp.Status, detailOf(body))
	}

	var page consumptionPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("octopus: decode consumption response: %w", err)
	}
	return &page, nil
}

func detailOf(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
