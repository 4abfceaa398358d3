// Package templateclient fetches and renders notification templates from
// the remote template service.
package templateclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iamprecieee/distributed-notification-system/internal/breaker"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/procerr"
	"github.com/iamprecieee/distributed-notification-system/internal/domain/template"
	"github.com/iamprecieee/distributed-notification-system/internal/retry"
	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// DependencyName is the circuit breaker key for this client.
const DependencyName = "template_service"

// Client fetches templates over HTTP, guarded by a circuit breaker and
// wrapped in the retry engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCfg   retry.Config
	breaker    *breaker.Breaker
	logger     zerolog.Logger
}

// New creates a template client pointed at baseURL.
func New(baseURL string, retryCfg retry.Config, cb *breaker.Breaker, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		retryCfg:   retryCfg,
		breaker:    cb,
		logger:     logger.With().Str("component", "template_client").Logger(),
	}
}

// Fetch retrieves the template identified by templateCode in the given
// language (defaulting to "en"), guarded by the circuit breaker around
// the retry engine.
func (c *Client) Fetch(ctx context.Context, templateCode, language string) (template.Template, error) {
	if language == "" {
		language = "en"
	}

	url := fmt.Sprintf("%s/api/v1/templates/%s?lang=%s", c.baseURL, templateCode, language)

	return breaker.Call(ctx, c.breaker, func(ctx context.Context) (template.Template, error) {
		return retry.Do(ctx, c.retryCfg, c.logger, func(ctx context.Context) (template.Template, error) {
			return c.fetchOnce(ctx, url)
		})
	})
}

func (c *Client) fetchOnce(ctx context.Context, url string) (template.Template, error) {
	var tmpl template.Template

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return tmpl, fmt.Errorf("template client: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tmpl, fmt.Errorf("template client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return tmpl, fmt.Errorf("template client: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&tmpl); err != nil {
		return tmpl, fmt.Errorf("template client: failed to decode response: %w", err)
	}

	return tmpl, nil
}

// Render substitutes {{var}} placeholders in the template's title and
// body with the stringified variables. Rendering is pure: it performs no
// I/O and mutates neither input.
func Render(tmpl template.Template, variables map[string]interface{}) (template.Content, error) {
	title, err := replaceVariables(tmpl.Content.Title, variables)
	if err != nil {
		return template.Content{}, err
	}
	body, err := replaceVariables(tmpl.Content.Body, variables)
	if err != nil {
		return template.Content{}, err
	}
	return template.Content{Title: title, Body: body}, nil
}

func replaceVariables(text string, variables map[string]interface{}) (string, error) {
	result := text

	for name, value := range variables {
		placeholder := "{{" + name + "}}"

		replacement, err := stringify(name, value)
		if err != nil {
			return "", err
		}

		result = strings.ReplaceAll(result, placeholder, replacement)
	}

	if start := strings.Index(result, "{{"); start != -1 {
		if end := strings.Index(result[start:], "}}"); end != -1 {
			missing := result[start : start+end+2]
			return "", procerr.New(procerr.KindTemplateRender, fmt.Errorf("missing variable in template: %s", missing))
		}
	}

	return result, nil
}

func stringify(name string, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", nil
	default:
		return "", procerr.New(procerr.KindTemplateRender, fmt.Errorf("unsupported variable type for key %q", name))
	}
}
