package matchsvc

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avivkl/matchboard/internal/logger"
)

const (
	defaultBaseURL = "http://localhost:8000"
	userAgent      = "matchboard (github.com/avivkl/matchboard)"

	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"

	// Page size for collection endpoints. The service caps list queries,
	// so collections are walked with skip/limit until a short page.
	pageLimit = 100

	// Debug log preview length for response bodies.
	bodyPreviewLen = 512
)

// Client talks to a remote JobMatcher service.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(ctx context.Context, logger *zap.Logger, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		ctx:     ctx,
		token:   token,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// getItems walks a paginated collection endpoint and returns items from all pages.
func (c *Client) getItems(path string, q url.Values) ([]any, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("limit", strconv.Itoa(pageLimit))

	var items []any
	skip := 0
	for {
		q.Set("skip", strconv.Itoa(skip))

		var page []any
		if err := c.getJSON(path, q, &page); err != nil {
			return nil, err
		}

		items = append(items, page...)

		if len(page) < pageLimit {
			return items, nil
		}

		skip += len(page)
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"full page of %d items received, continuing from offset %d", pageLimit, skip),
		))
	}
}

func (c *Client) getJSON(path string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	c.logger.Debug("response received",
		zap.Int("status", resp.StatusCode),
		zap.String("body_preview", logger.TruncateForLog(string(data), bodyPreviewLen)),
	)

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp.StatusCode, data)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

// sendJSON sends a JSON payload with the given method and decodes the response
// into target when the status matches wantStatus.
func (c *Client) sendJSON(method, path string, payload, target any, wantStatus int) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(c.ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		return newAPIError(resp.StatusCode, data)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

// postMultipart uploads a single file part plus optional string fields and
// decodes the response into target when the status matches wantStatus.
func (c *Client) postMultipart(path, fileField, filename string, file []byte, fields map[string]string, target any, wantStatus int) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return err
		}
	}

	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return err
	}
	if _, err = part.Write(file); err != nil {
		return err
	}
	w.Close()

	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.BaseURL+path, &b)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		return newAPIError(resp.StatusCode, data)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request",
		zap.String("url", req.URL.String()),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("X-Request-ID", uuid.NewString())

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}
