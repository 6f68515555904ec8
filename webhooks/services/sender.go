package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"product-importer-backend/db/models"
	"product-importer-backend/webhooks/repositories"
)

const (
	headerEvent     = "X-Webhook-Event"
	headerTimestamp = "X-Webhook-Timestamp"
	headerSignature = "X-Webhook-Signature"
)

// DeliveryResult records the outcome of one webhook round trip. StatusCode
// is nil when the request never produced an HTTP response.
type DeliveryResult struct {
	Success        bool   `json:"success"`
	StatusCode     *int   `json:"status_code"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// Sender performs one bounded-timeout outbound webhook call and records the
// delivery outcome on the webhook record. A shared rate limiter keeps bursts
// of lifecycle events from flooding receivers.
type Sender struct {
	repo    repositories.WebhookRepository
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewSender(repo repositories.WebhookRepository, timeout time.Duration, logger *zap.Logger) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		repo:    repo,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(50), 100),
		logger:  logger,
	}
}

// signPayload computes the HMAC-SHA256 message authentication code for the
// payload under the webhook's secret.
func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Send performs one request/response round trip and records the outcome.
// The returned error covers payload construction only; transport failures
// are reported inside the result so the caller never retries on our behalf.
func (s *Sender) Send(ctx context.Context, webhook *models.Webhook, event EventType, data interface{}) (DeliveryResult, error) {
	payload := EventPayload{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, string(event))
	req.Header.Set(headerTimestamp, payload.Timestamp.Format(time.RFC3339))
	if webhook.Secret != nil && *webhook.Secret != "" {
		req.Header.Set(headerSignature, "sha256="+signPayload(body, *webhook.Secret))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return DeliveryResult{}, err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start).Milliseconds()

	result := DeliveryResult{ResponseTimeMs: elapsed}
	if err != nil {
		// Transport failure: no response code to record.
		result.Error = err.Error()
	} else {
		defer resp.Body.Close()
		code := resp.StatusCode
		result.StatusCode = &code
		result.Success = code < 400
		if !result.Success {
			result.Error = fmt.Sprintf("HTTP %d", code)
		}
	}

	if recordErr := s.repo.RecordDeliveryOutcome(ctx, webhook.ID, result.StatusCode, elapsed, result.Success); recordErr != nil {
		s.logger.Warn("failed to record webhook delivery outcome",
			zap.String("webhookID", webhook.ID.String()),
			zap.Error(recordErr),
		)
	}

	s.logger.Info("webhook delivered",
		zap.String("webhookID", webhook.ID.String()),
		zap.String("event", string(event)),
		zap.Bool("success", result.Success),
		zap.Int64("responseTimeMs", elapsed),
	)
	return result, nil
}
