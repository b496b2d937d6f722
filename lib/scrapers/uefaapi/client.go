// Package uefaapi fetches club and association coefficient rankings
// from the UEFA coefficients endpoint.
package uefaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"uefadata-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// Cache source names for the two coefficient types.
const (
	SourceClubCoefficients    = "uefa-club-coefficients"
	SourceCountryCoefficients = "uefa-country-coefficients"
)

const (
	DefaultBaseURL      = "https://comp.uefa.com"
	coefficientsPath    = "/v2/coefficients"
	clubPageSize        = 200
	associationPageSize = 55
)

type Client struct {
	http    *resty.Client
	baseURL string
}

type ClientOptions struct {
	BaseURL    string
	RetryCount int
	Timeout    time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retryCount := opts.RetryCount
	if retryCount == 0 {
		retryCount = 3
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 25
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetTimeout(timeout)
	client.SetRetryCount(retryCount)
	client.SetRetryWaitTime(time.Millisecond * 400)
	client.SetRetryMaxWaitTime(time.Second * 5)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res.StatusCode() == 429 || res.StatusCode() >= 500
	})

	telemetry.InstrumentResty(client, "scrapers/uefaapi")

	return &Client{
		http:    client,
		baseURL: baseURL,
	}
}

type FetchResult struct {
	Body      []byte
	URL       string
	Status    int
	FetchedAt time.Time
}

type membersEnvelope struct {
	Data struct {
		Members []json.RawMessage `json:"members"`
	} `json:"data"`
}

// fetchMembers pages through the endpoint until a short or empty page,
// then re-assembles the members into one JSON array so a (type, year)
// maps to exactly one cache entry.
func (c *Client) fetchMembers(ctx context.Context, coefficientType string, year, pageSize int) (FetchResult, error) {
	var all []json.RawMessage
	fetchedAt := time.Time{}

	for page := 1; ; page++ {
		res, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"coefficientRange": "OVERALL",
				"coefficientType":  coefficientType,
				"language":         "EN",
				"page":             strconv.Itoa(page),
				"pagesize":         strconv.Itoa(pageSize),
				"seasonYear":       strconv.Itoa(year),
			}).
			Get(coefficientsPath)
		if err != nil {
			return FetchResult{}, err
		}
		if res.StatusCode() != 200 {
			return FetchResult{}, fmt.Errorf(
				"GET %s (type=%s year=%d page=%d): HTTP %d",
				coefficientsPath, coefficientType, year, page, res.StatusCode(),
			)
		}
		fetchedAt = res.ReceivedAt().UTC()

		var envelope membersEnvelope
		if err := json.Unmarshal(res.Body(), &envelope); err != nil {
			return FetchResult{}, fmt.Errorf("decode members page %d: %w", page, err)
		}
		all = append(all, envelope.Data.Members...)
		if len(envelope.Data.Members) < pageSize {
			break
		}
	}

	body, err := json.Marshal(all)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{
		Body:      body,
		URL:       fmt.Sprintf("%s%s?coefficientType=%s&seasonYear=%d", c.baseURL, coefficientsPath, coefficientType, year),
		Status:    200,
		FetchedAt: fetchedAt,
	}, nil
}

func (c *Client) FetchClubCoefficients(ctx context.Context, year int) (FetchResult, error) {
	return c.fetchMembers(ctx, "MEN_CLUB", year, clubPageSize)
}

func (c *Client) FetchCountryCoefficients(ctx context.Context, year int) (FetchResult, error) {
	return c.fetchMembers(ctx, "MEN_ASSOCIATION", year, associationPageSize)
}
