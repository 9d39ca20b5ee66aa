package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lumina-backend/internal/models"
)

// RealtimeClient broadcasts progress events on a Supabase Realtime topic so
// that catalog dashboards can follow an ingest live.
type RealtimeClient struct {
	url        string
	apiKey     string
	topic      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRealtimeClient(supabaseURL, apiKey, topic string, logger *slog.Logger) *RealtimeClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeClient{
		url:        strings.TrimSuffix(supabaseURL, "/") + "/realtime/v1/api/broadcast",
		apiKey:     apiKey,
		topic:      topic,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.With("component", "realtime"),
	}
}

type broadcastMessage struct {
	Topic   string               `json:"topic"`
	Event   string               `json:"event"`
	Payload models.ProgressEvent `json:"payload"`
}

type broadcastRequest struct {
	Messages []broadcastMessage `json:"messages"`
}

// PublishEvent sends one event to the configured topic.
func (r *RealtimeClient) PublishEvent(ctx context.Context, event models.ProgressEvent) error {
	body, err := json.Marshal(broadcastRequest{Messages: []broadcastMessage{{
		Topic:   r.topic,
		Event:   "ingest_progress",
		Payload: event,
	}}})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("broadcast rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Emit implements progress.Sink. Broadcast failures never affect the ingest.
func (r *RealtimeClient) Emit(ctx context.Context, event models.ProgressEvent) {
	if err := r.PublishEvent(ctx, event); err != nil {
		r.logger.Warn("progress broadcast failed", "error", err, "filename", event.Filename)
	}
}
