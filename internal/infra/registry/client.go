package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
)

// Options configures a Client. Zero values fall back to package defaults.
type Options struct {
	Timeout          time.Duration
	UserAgent        string
	MaxResponseBytes int64
	HTTPClient       *http.Client
	Metrics          domain.Metrics
	Logger           *zap.Logger
}

// Client fetches catalog pages from a remote market registry.
type Client struct {
	httpClient       *http.Client
	userAgent        string
	maxResponseBytes int64
	metrics          domain.Metrics
	logger           *zap.Logger
}

type pageRequest struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	Search     string `json:"search"`
}

type pageEnvelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Data      *pageData `json:"data"`
}

type pageData struct {
	ServerList []domain.RemoteTool `json:"mcp_server_list"`
	TotalCount int                 `json:"total_count"`
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultRegistryTimeoutSeconds) * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = domain.DefaultRegistryUserAgent
	}
	limit := opts.MaxResponseBytes
	if limit <= 0 {
		limit = domain.DefaultRegistryMaxResponseBytes
	}
	return &Client{
		httpClient:       httpClient,
		userAgent:        userAgent,
		maxResponseBytes: limit,
		metrics:          metrics,
		logger:           logger.Named("registry"),
	}
}

// FetchPage issues one listing request for pageNumber. A response with
// success=false or without a server list is reported as an empty last page.
func (c *Client) FetchPage(ctx context.Context, endpoint string, pageNumber, pageSize int, authToken string) (domain.RegistryPage, error) {
	target := strings.TrimSpace(endpoint)
	if target == "" {
		return domain.RegistryPage{}, fmt.Errorf("registry endpoint is empty: %w", domain.ErrInvalidRequest)
	}
	if pageNumber < 1 || pageSize < 1 {
		return domain.RegistryPage{}, fmt.Errorf("page %d size %d: %w", pageNumber, pageSize, domain.ErrInvalidRequest)
	}

	payload, err := json.Marshal(pageRequest{PageNumber: pageNumber, PageSize: pageSize})
	if err != nil {
		return domain.RegistryPage{}, fmt.Errorf("encode page request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return domain.RegistryPage{}, fmt.Errorf("%w: build request: %v", domain.ErrRegistryTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token := strings.TrimSpace(authToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRegistryRequest("error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.RegistryPage{}, ctxErr
		}
		return domain.RegistryPage{}, fmt.Errorf("%w: %v", domain.ErrRegistryTransport, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRegistryRequest(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return domain.RegistryPage{}, fmt.Errorf("%w: %s", domain.ErrRegistryStatus, resp.Status)
	}

	body, err := readLimitedBody(resp.Body, c.maxResponseBytes)
	if err != nil {
		return domain.RegistryPage{}, fmt.Errorf("%w: %v", domain.ErrRegistryTransport, err)
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.RegistryPage{}, fmt.Errorf("%w: %v", domain.ErrRegistryDecode, err)
	}
	if !envelope.Success || envelope.Data == nil || envelope.Data.ServerList == nil {
		c.logger.Debug("registry reported no more data",
			zap.Int("page", pageNumber),
			zap.Bool("success", envelope.Success),
			zap.String("message", envelope.Message),
			zap.String("registryRequestID", envelope.RequestID),
		)
		return domain.RegistryPage{IsLastPage: true}, nil
	}

	entries := envelope.Data.ServerList
	return domain.RegistryPage{
		Entries:    entries,
		IsLastPage: len(entries) < pageSize,
		TotalCount: envelope.Data.TotalCount,
	}, nil
}

func readLimitedBody(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return data, nil
}
