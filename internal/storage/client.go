package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/google/uuid"
)

type Config struct {
	BaseURL        string
	PublicURL      string
	ServiceKey     string
	Timeout        time.Duration
	MaxUploadBytes int64
}

// Client talks to an HTTP object store that accepts
// POST {base_url}/object/{bucket}/{object}.
type Client struct {
	baseURL        string
	publicURL      string
	serviceKey     string
	maxUploadBytes int64
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	publicURL := config.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(config.BaseURL, "/") + "/object/public"
	}

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		publicURL:      strings.TrimRight(publicURL, "/"),
		serviceKey:     config.ServiceKey,
		maxUploadBytes: config.MaxUploadBytes,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

func (c *Client) MaxUploadBytes() int64 {
	if c.maxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return c.maxUploadBytes
}

func (c *Client) Upload(ctx context.Context, bucket Bucket, filename string, body io.Reader, size int64, contentType string) (*Descriptor, error) {
	if err := CheckFile(bucket, filename, size, c.MaxUploadBytes()); err != nil {
		return nil, err
	}

	object := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, bucket, object)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, io.LimitReader(body, size))
	if err != nil {
		return nil, errors.NewInternalError("failed to create upload request", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	c.logger.Debug("uploading object", "bucket", bucket, "object", object, "size", size)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("object upload failed", "bucket", bucket, "object", object, "error", err)
		return nil, errors.NewStoreUnavailableError("file storage unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiError struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiError)
		c.logger.Error("object store rejected upload",
			"bucket", bucket,
			"object", object,
			"status", resp.StatusCode,
			"message", apiError.Message)
		return nil, errors.NewStoreUnavailableError(
			fmt.Sprintf("file storage returned status %d", resp.StatusCode), nil)
	}

	c.logger.Info("object uploaded", "bucket", bucket, "object", object)

	return &Descriptor{
		URL:  fmt.Sprintf("%s/%s/%s", c.publicURL, bucket, object),
		Name: object,
		Size: size,
	}, nil
}
