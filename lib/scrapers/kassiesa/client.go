// Package kassiesa fetches and parses the historical match results and
// country ranking pages at kassiesa.net.
package kassiesa

import (
	"context"
	"fmt"
	"time"

	"uefadata-backend/lib/htmlutil"
	"uefadata-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// Cache source names for the three page families.
const (
	SourceMatches     = "kassiesa-matches"
	SourceCountries   = "kassiesa-countries"
	SourceClubSeasons = "kassiesa-club-seasons"
)

const DefaultBaseURL = "https://kassiesa.net"

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
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("referer", "https://kassiesa.net/uefa/data/")
	client.SetTimeout(timeout)
	client.SetRetryCount(retryCount)
	client.SetRetryWaitTime(time.Millisecond * 500)
	client.SetRetryMaxWaitTime(time.Second * 5)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res.StatusCode() == 429 || res.StatusCode() >= 500
	})

	telemetry.InstrumentResty(client, "scrapers/kassiesa")

	return &Client{
		http:    client,
		baseURL: baseURL,
	}
}

// methodForYear maps a season year to the site's data era. The site
// reorganized its archive whenever UEFA changed the coefficient
// calculation method.
func methodForYear(year int) (string, error) {
	switch {
	case year >= 2018 && year <= 2026:
		return "method5", nil
	case year >= 2009 && year <= 2017:
		return "method4", nil
	case year >= 2004 && year <= 2008:
		return "method3", nil
	case year >= 2000 && year <= 2003:
		return "method2", nil
	}
	return "", fmt.Errorf("unsupported year: %d", year)
}

func MatchPagePath(year int) (string, error) {
	method, err := methodForYear(year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/uefa/data/%s/match%d.html", method, year), nil
}

func CountryRankingPath(year int) (string, error) {
	method, err := methodForYear(year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/uefa/data/%s/crank%d.html", method, year), nil
}

func ClubSeasonPath(year int) (string, error) {
	method, err := methodForYear(year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/uefa/data/%s/ccoef%d.html", method, year), nil
}

// FetchResult is a raw fetched page plus the provenance the cache
// stores alongside it.
type FetchResult struct {
	Body      []byte
	URL       string
	Status    int
	FetchedAt time.Time
}

func (c *Client) fetch(ctx context.Context, path string) (FetchResult, error) {
	res, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return FetchResult{}, err
	}
	if res.StatusCode() != 200 {
		return FetchResult{}, fmt.Errorf("GET %s: HTTP %d", path, res.StatusCode())
	}
	return FetchResult{
		Body:      res.Body(),
		URL:       c.baseURL + path,
		Status:    res.StatusCode(),
		FetchedAt: res.ReceivedAt().UTC(),
	}, nil
}

func (c *Client) FetchMatchPage(ctx context.Context, year int) (FetchResult, error) {
	path, err := MatchPagePath(year)
	if err != nil {
		return FetchResult{}, err
	}
	return c.fetch(ctx, path)
}

func (c *Client) FetchCountryRankingPage(ctx context.Context, year int) (FetchResult, error) {
	path, err := CountryRankingPath(year)
	if err != nil {
		return FetchResult{}, err
	}
	return c.fetch(ctx, path)
}

func (c *Client) FetchClubSeasonPage(ctx context.Context, year int) (FetchResult, error) {
	path, err := ClubSeasonPath(year)
	if err != nil {
		return FetchResult{}, err
	}
	return c.fetch(ctx, path)
}

// Decode turns a raw cached page into parseable utf-8 markup.
func Decode(raw []byte) string {
	return htmlutil.DecodeBytes(raw)
}
