package esi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const baseURL = "https://esi.evetech.net/latest"

// Sentinel errors for the status codes callers must distinguish. ErrGone is
// the explicit "no content" response contracts return once accepted or
// expired; it is handled the same as NotFound/Forbidden (delete the local
// record) but reported separately.
var (
	ErrNotFound  = errors.New("esi: not found")
	ErrForbidden = errors.New("esi: forbidden")
	ErrGone      = errors.New("esi: no content")
)

// Client is a rate-limited ESI HTTP client.
type Client struct {
	http *http.Client
	sem  chan struct{}
}

// NewClient creates an ESI client with rate limiting.
// Uses 20 concurrent connections (ESI allows up to 150 error-free requests/sec).
func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		sem:  make(chan struct{}, 20),
	}
}

// HealthCheck pings ESI to verify connectivity.
func (c *Client) HealthCheck() bool {
	req, err := newRequest(baseURL + "/status/?datasource=tranquility")
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == 200
}

func newRequest(url string) (*http.Request, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "eve-appraiser/1.0 (github.com)")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// GetJSON fetches a URL and decodes JSON into dst.
// Maps 204/403/404 onto the sentinel errors above.
func (c *Client) GetJSON(url string, dst interface{}) error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	req, err := newRequest(url)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return json.NewDecoder(resp.Body).Decode(dst)
	case 204:
		return ErrGone
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ESI %d: %s", resp.StatusCode, string(body))
	}
}

// GetPaginated fetches all pages from a paginated ESI endpoint. Page 1 is
// fetched first to learn the page count from X-Pages; remaining pages are
// fetched with a bounded errgroup. Results keep raw JSON so callers can
// persist the payload opaquely and parse typed records at the boundary.
func (c *Client) GetPaginated(url string) ([]json.RawMessage, error) {
	c.sem <- struct{}{}

	req, err := newRequest(url + "&page=1")
	if err != nil {
		<-c.sem
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		<-c.sem
		return nil, err
	}

	if resp.StatusCode != 200 {
		resp.Body.Close()
		<-c.sem
		if resp.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ESI %d", resp.StatusCode)
	}

	totalPages := 1
	if p := resp.Header.Get("X-Pages"); p != "" {
		if tp, parseErr := strconv.Atoi(p); parseErr == nil && tp > 1 {
			totalPages = tp
		}
	}

	var page1 []json.RawMessage
	err = json.NewDecoder(resp.Body).Decode(&page1)
	resp.Body.Close()
	<-c.sem
	if err != nil {
		return nil, err
	}

	if totalPages == 1 {
		return page1, nil
	}

	pages := make([][]json.RawMessage, totalPages+1)
	pages[1] = page1

	var g errgroup.Group
	g.SetLimit(10)
	for p := 2; p <= totalPages; p++ {
		p := p
		g.Go(func() error {
			var data []json.RawMessage
			pageURL := fmt.Sprintf("%s&page=%d", url, p)
			if err := c.GetJSON(pageURL, &data); err != nil {
				return err
			}
			pages[p] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]json.RawMessage, 0, len(page1)*totalPages)
	for p := 1; p <= totalPages; p++ {
		all = append(all, pages[p]...)
	}
	return all, nil
}
