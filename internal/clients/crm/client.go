package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/observability"
	pkgerrors "github.com/uplinehq/agencytree-backend/internal/pkg/errors"
	"github.com/uplinehq/agencytree-backend/internal/pkg/httpx"
	"github.com/uplinehq/agencytree-backend/internal/types"
	"github.com/uplinehq/agencytree-backend/internal/utils"
)

type Client interface {
	FetchContacts(ctx context.Context) ([]types.RawRecord, error)
	FetchFieldDefinitions(ctx context.Context) ([]types.FieldDefinition, error)
	FetchAll(ctx context.Context) ([]types.RawRecord, []types.FieldDefinition, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := utils.GetEnvAsInt("CRM_TIMEOUT_SECONDS", 30, nil)
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("CRM_BASE_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("CRM_API_KEY")),
		PageSize:   utils.GetEnvAsInt("CRM_PAGE_SIZE", 100, nil),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: utils.GetEnvAsInt("CRM_MAX_RETRIES", 4, nil),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("missing CRM_BASE_URL")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing CRM_API_KEY")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	return &client{
		log:        log.With("client", "CRMClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type contactsPage struct {
	Contacts []types.RawRecord `json:"contacts"`
	Total    int               `json:"total"`
}

type fieldsResponse struct {
	Fields []types.FieldDefinition `json:"custom_fields"`
}

func (c *client) FetchContacts(ctx context.Context) ([]types.RawRecord, error) {
	var out []types.RawRecord
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.cfg.PageSize))
		q.Set("offset", strconv.Itoa(offset))
		endpoint := c.cfg.BaseURL + "/contacts?" + q.Encode()

		page, err := doGET[contactsPage](c, ctx, endpoint, "contacts")
		if err != nil {
			return nil, fmt.Errorf("crm contacts fetch (offset=%d): %w", offset, err)
		}
		out = append(out, page.Contacts...)
		if len(page.Contacts) < c.cfg.PageSize {
			break
		}
		offset += len(page.Contacts)
	}
	c.log.Info("CRM contacts fetched", "count", len(out))
	return out, nil
}

func (c *client) FetchFieldDefinitions(ctx context.Context) ([]types.FieldDefinition, error) {
	endpoint := c.cfg.BaseURL + "/contact-custom-fields"
	resp, err := doGET[fieldsResponse](c, ctx, endpoint, "contact-custom-fields")
	if err != nil {
		return nil, fmt.Errorf("crm field definitions fetch: %w", err)
	}
	c.log.Info("CRM field definitions fetched", "count", len(resp.Fields))
	return resp.Fields, nil
}

func (c *client) FetchAll(ctx context.Context) ([]types.RawRecord, []types.FieldDefinition, error) {
	var (
		records []types.RawRecord
		fields  []types.FieldDefinition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = c.FetchContacts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fields, err = c.FetchFieldDefinitions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, fields, nil
}

// ---------- HTTP / retry helpers ----------

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "crm: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("crm http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func doGET[T any](c *client, ctx context.Context, urlStr, endpointName string) (*T, error) {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		start := time.Now()
		out, resp, err := doGETOnce[T](c, ctx, urlStr)
		status := "0"
		if resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		observability.Current().ObserveCRMRequest(endpointName, status, time.Since(start))
		if err == nil {
			return out, nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		observability.Current().IncCRMRetry()
		c.log.Warn("CRM request retrying",
			"url", urlStr,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return nil, fmt.Errorf("unreachable retry loop")
}

func doGETOnce[T any](c *client, ctx context.Context, urlStr string) (*T, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resp, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, resp, fmt.Errorf("%w: %w", pkgerrors.ErrUnauthorized, httpErr)
		case resp.StatusCode >= 500:
			return nil, resp, fmt.Errorf("%w: %w", pkgerrors.ErrUpstreamUnavailable, httpErr)
		}
		return nil, resp, httpErr
	}

	var out T
	if len(raw) == 0 {
		return &out, resp, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("crm decode error: %w", err)
	}
	return &out, resp, nil
}
