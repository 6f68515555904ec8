package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"product-importer-backend/db/models"
)

type recordedOutcome struct {
	webhookID      uuid.UUID
	responseCode   *int
	responseTimeMs int64
	success        bool
}

type fakeWebhookRepo struct {
	webhooks []models.Webhook
	outcomes []recordedOutcome
}

func (f *fakeWebhookRepo) GetWebhookByID(ctx context.Context, id uuid.UUID) (*models.Webhook, error) {
	for i := range f.webhooks {
		if f.webhooks[i].ID == id {
			return &f.webhooks[i], nil
		}
	}
	return nil, context.Canceled
}

func (f *fakeWebhookRepo) GetEnabledWebhooksByEvent(ctx context.Context, eventType string) ([]models.Webhook, error) {
	var enabled []models.Webhook
	for _, w := range f.webhooks {
		if w.IsEnabled && w.EventType == eventType {
			enabled = append(enabled, w)
		}
	}
	return enabled, nil
}

func (f *fakeWebhookRepo) RecordDeliveryOutcome(ctx context.Context, webhookID uuid.UUID, responseCode *int, responseTimeMs int64, success bool) error {
	f.outcomes = append(f.outcomes, recordedOutcome{
		webhookID:      webhookID,
		responseCode:   responseCode,
		responseTimeMs: responseTimeMs,
		success:        success,
	})
	return nil
}

func (f *fakeWebhookRepo) GetFilteredWebhooks(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.Webhook, int64, error) {
	return f.webhooks, int64(len(f.webhooks)), nil
}

func TestSenderSignsAndDeliversPayload(t *testing.T) {
	secret := "topsecret"
	var gotHeaders http.Header
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := &fakeWebhookRepo{}
	sender := NewSender(repo, 0, zap.NewNop())
	webhook := &models.Webhook{ID: uuid.New(), URL: server.URL, Secret: &secret}

	result, err := sender.Send(context.Background(), webhook, EventProductCreated, map[string]string{"sku": "A-1"})
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, *result.StatusCode)

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, string(EventProductCreated), gotHeaders.Get("X-Webhook-Event"))
	assert.NotEmpty(t, gotHeaders.Get("X-Webhook-Timestamp"))

	// Signature covers the exact bytes on the wire.
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotHeaders.Get("X-Webhook-Signature"))

	var payload EventPayload
	assert.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, EventProductCreated, payload.Event)

	assert.Len(t, repo.outcomes, 1)
	assert.True(t, repo.outcomes[0].success)
}

func TestSenderOmitsSignatureWithoutSecret(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(&fakeWebhookRepo{}, 0, zap.NewNop())
	webhook := &models.Webhook{ID: uuid.New(), URL: server.URL}

	_, err := sender.Send(context.Background(), webhook, EventImportStarted, nil)
	assert.NoError(t, err)
	assert.Empty(t, gotHeaders.Get("X-Webhook-Signature"))
}

func TestSenderFailureStatusCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &fakeWebhookRepo{}
	sender := NewSender(repo, 0, zap.NewNop())
	webhook := &models.Webhook{ID: uuid.New(), URL: server.URL}

	result, err := sender.Send(context.Background(), webhook, EventImportFailed, nil)
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, *result.StatusCode)
	assert.Contains(t, result.Error, "500")

	assert.Len(t, repo.outcomes, 1)
	assert.False(t, repo.outcomes[0].success)
}

func TestSenderTransportErrorHasNoStatusCode(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	repo := &fakeWebhookRepo{}
	sender := NewSender(repo, 0, zap.NewNop())
	webhook := &models.Webhook{ID: uuid.New(), URL: url}

	result, err := sender.Send(context.Background(), webhook, EventImportCompleted, nil)
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Nil(t, result.StatusCode)
	assert.NotEmpty(t, result.Error)

	assert.Len(t, repo.outcomes, 1)
	assert.Nil(t, repo.outcomes[0].responseCode)
}

func TestSenderRedirectCountsAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/moved") {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/moved", http.StatusTemporaryRedirect)
	}))
	defer server.Close()

	sender := NewSender(&fakeWebhookRepo{}, 0, zap.NewNop())
	webhook := &models.Webhook{ID: uuid.New(), URL: server.URL}

	result, err := sender.Send(context.Background(), webhook, EventProductUpdated, nil)
	assert.NoError(t, err)
	assert.True(t, result.Success)
}
