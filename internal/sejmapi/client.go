package sejmapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sejmwatch/bills-tracker/internal/common"
)

// Config for the Sejm API client.
type Config struct {
	BaseURL         string        // default https://api.sejm.gov.pl/sejm
	Term            int           // Sejm term number, e.g. 10
	Timeout         time.Duration // JSON endpoints, default 30s
	DownloadTimeout time.Duration // binary attachments, default 60s
	RequestsPerSec  float64       // token-bucket rate, default 5
	Burst           int           // default 5
}

// Client is a thin accessor for the four upstream resource families:
// prints, processes, votings and proceedings. It performs no retries;
// callers decide whether to skip-and-continue or abort.
type Client struct {
	cfg      Config
	http     *http.Client
	download *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sejm.gov.pl/sejm"
	}
	if cfg.Term <= 0 {
		cfg.Term = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5.0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		download: &http.Client{Timeout: cfg.DownloadTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:   logger,
	}
}

// Term returns the configured Sejm term number.
func (c *Client) Term() int {
	return c.cfg.Term
}

// ListPrints fetches the print listing for the configured term. The
// upstream ignores limit hints, so the full listing is returned and
// callers slice it themselves.
func (c *Client) ListPrints(ctx context.Context) ([]Print, error) {
	var out []Print
	if err := c.getJSON(ctx, c.termPath("prints"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPrint fetches one print's metadata and attachment manifest.
func (c *Client) GetPrint(ctx context.Context, number string) (*Print, error) {
	raw, err := c.get(ctx, c.http, c.termPath("prints/"+number))
	if err != nil {
		return nil, err
	}
	var p Print
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: decode print %s: %v", common.ErrMalformedPayload, number, err)
	}
	p.Raw = raw
	return &p, nil
}

// AttachmentURL returns the absolute download URL of a print attachment.
func (c *Client) AttachmentURL(number, name string) string {
	return c.termPath("prints/" + number + "/" + name)
}

// GetPrintAttachment downloads one binary attachment of a print.
func (c *Client) GetPrintAttachment(ctx context.Context, number, name string) ([]byte, error) {
	return c.get(ctx, c.download, c.termPath("prints/"+number+"/"+name))
}

// ListProcesses fetches the process listing for the configured term.
func (c *Client) ListProcesses(ctx context.Context) ([]Process, error) {
	var out []Process
	if err := c.getJSON(ctx, c.termPath("processes"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProcess fetches one process with its full stage history. A process
// may legitimately not exist for a print number; callers map
// common.ErrUpstreamNotFound to an empty result.
func (c *Client) GetProcess(ctx context.Context, id string) (*Process, error) {
	raw, err := c.get(ctx, c.http, c.termPath("processes/"+id))
	if err != nil {
		return nil, err
	}
	var p Process
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: decode process %s: %v", common.ErrMalformedPayload, id, err)
	}
	p.Raw = raw
	return &p, nil
}

// ListVotings fetches all votings of one sitting.
func (c *Client) ListVotings(ctx context.Context, proceeding int) ([]Voting, error) {
	var out []Voting
	if err := c.getJSON(ctx, c.termPath(fmt.Sprintf("votings/%d", proceeding)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVoting fetches one roll call with totals and links.
func (c *Client) GetVoting(ctx context.Context, proceeding, number int) (*Voting, error) {
	raw, err := c.get(ctx, c.http, c.termPath(fmt.Sprintf("votings/%d/%d", proceeding, number)))
	if err != nil {
		return nil, err
	}
	var v Voting
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: decode voting %d/%d: %v", common.ErrMalformedPayload, proceeding, number, err)
	}
	v.Raw = raw
	return &v, nil
}

// GetVotingPDF downloads the roll-call PDF for one voting.
func (c *Client) GetVotingPDF(ctx context.Context, proceeding, number int) ([]byte, error) {
	return c.get(ctx, c.download, c.termPath(fmt.Sprintf("votings/%d/%d/pdf", proceeding, number)))
}

// ListProceedings fetches the sitting agenda listing.
func (c *Client) ListProceedings(ctx context.Context) ([]Proceeding, error) {
	var out []Proceeding
	if err := c.getJSON(ctx, c.termPath("proceedings"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) termPath(suffix string) string {
	return fmt.Sprintf("%s/term%d/%s", c.cfg.BaseURL, c.cfg.Term, suffix)
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	raw, err := c.get(ctx, c.http, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", common.ErrMalformedPayload, url, err)
	}
	return nil
}

// get performs one rate-limited GET and maps the failure modes onto the
// error taxonomy: transport failures and 5xx are ErrUpstreamUnavailable,
// any other non-2xx is ErrUpstreamNotFound.
func (c *Client) get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("sejmapi.request_failed", "url", url, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: GET %s: %v", common.ErrUpstreamUnavailable, url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("sejmapi.body_close_failed", "url", url, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrUpstreamUnavailable, url, err)
	}

	c.logger.Debug("sejmapi.response",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode/100 == 2:
		return raw, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: GET %s: status %d", common.ErrUpstreamUnavailable, url, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: GET %s: status %d", common.ErrUpstreamNotFound, url, resp.StatusCode)
	}
}
