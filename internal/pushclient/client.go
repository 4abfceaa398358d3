// Package pushclient sends rendered notifications to the FCM push
// gateway, authenticating via an OAuth2 service-account flow.
package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/breaker"
	"github.com/iamprecieee/distributed-notification-system/internal/retry"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const requestTimeout = 10 * time.Second

// DependencyName is the circuit breaker key for this client.
const DependencyName = "fcm"

// firebaseMessagingScope is the OAuth2 scope required to call
// messages:send against the FCM v1 API.
const firebaseMessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// envelope is the wire shape POSTed to FCM.
type envelope struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Client authenticates to FCM and posts rendered notifications, guarded
// by a circuit breaker wrapped around the retry engine.
type Client struct {
	httpClient  *http.Client
	projectID   string
	tokenSource oauth2.TokenSource
	retryCfg    retry.Config
	breaker     *breaker.Breaker
	logger      zerolog.Logger
}

// New creates a push client for the given FCM project, using
// serviceAccountJSON (the raw contents of a GCP service account key) to
// mint OAuth2 bearer tokens scoped to firebase.messaging.
func New(ctx context.Context, projectID string, serviceAccountJSON []byte, retryCfg retry.Config, cb *breaker.Breaker, logger zerolog.Logger) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON, firebaseMessagingScope)
	if err != nil {
		return nil, fmt.Errorf("push client: failed to load service account credentials: %w", err)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		projectID:   projectID,
		tokenSource: creds.TokenSource,
		retryCfg:    retryCfg,
		breaker:     cb,
		logger:      logger.With().Str("component", "push_client").Logger(),
	}, nil
}

// Send delivers a push notification to deviceToken, guarded by the
// circuit breaker around the retry engine. The outgoing data map always
// carries trace_id for correlation.
func (c *Client) Send(ctx context.Context, deviceToken, title, body, traceID string, extraData map[string]string) error {
	data := make(map[string]string, len(extraData)+1)
	for k, v := range extraData {
		data[k] = v
	}
	data["trace_id"] = traceID

	req := envelope{Message: fcmMessage{
		Token:        deviceToken,
		Notification: fcmNotification{Title: title, Body: body},
		Data:         data,
	}}

	_, err := breaker.Call(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
		return retry.Do(ctx, c.retryCfg, c.logger, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.sendOnce(ctx, req)
		})
	})
	return err
}

func (c *Client) sendOnce(ctx context.Context, req envelope) error {
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("push client: failed to obtain oauth2 token: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("push client: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.projectID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push client: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("push client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fcm request failed: %s", string(respBody))
	}

	return nil
}
