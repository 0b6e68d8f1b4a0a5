package waapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/waapi-campaign-service/environments"
	"github.com/onurcolak/waapi-campaign-service/internal/domain"
	"github.com/onurcolak/waapi-campaign-service/internal/metrics"
	"github.com/onurcolak/waapi-campaign-service/pkg/logger"
)

// AssumeValidOnUncertainVerification is the credential verification policy:
// only an explicit 401 marks a credential invalid. Network errors and any
// other status keep the sender usable so a flaky probe never blocks it.
const AssumeValidOnUncertainVerification = true

// MinPhoneDigits is the minimum number of digits a recipient must have.
const MinPhoneDigits = 10

const (
	sendMessagePath     = "/instances/{instanceId}/client/action/send-message"
	sendMediaPath       = "/instances/{instanceId}/client/action/send-media"
	instancesPath       = "/instances"
	instancePath        = "/instances/{instanceId}"
	connectionStatePath = "/instances/{instanceId}/client/action/get-connection-state"
)

type Client struct {
	httpClient *resty.Client
	baseURL    string
	rootURL    string
}

func NewClient(cfg environments.WaapiConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		rootURL:    cfg.RootURL,
	}
}

// SendRequest describes one message to one recipient.
type SendRequest struct {
	Phone      string
	Body       string
	Token      string
	InstanceID string
	Kind       domain.MessageType
	MediaURL   string
}

// SendResult is the outcome of SendMessage. Failures are values, never errors.
type SendResult struct {
	Delivered bool
	MessageID string
	Error     string
}

type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type sendMessagePayload struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendMediaPayload struct {
	ChatID   string `json:"chatId"`
	MediaURL string `json:"mediaUrl"`
	Caption  string `json:"caption,omitempty"`
}

// NormalizePhone strips every non-digit character (including a leading +)
// and checks the remaining digit count.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number format: %s (cleaned: %s)", phone, digits)
	}

	return digits, nil
}

// ChatID returns the vendor chat address for a normalized phone number.
func ChatID(digits string) string {
	return digits + "@c.us"
}

func (c *Client) SendMessage(ctx context.Context, req SendRequest) SendResult {
	digits, err := NormalizePhone(req.Phone)
	if err != nil {
		return SendResult{Error: err.Error()}
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.MessageText
	}

	var (
		path    string
		payload any
	)

	switch kind {
	case domain.MessageMedia:
		if strings.TrimSpace(req.MediaURL) == "" {
			return SendResult{Error: "media URL is required for media messages"}
		}
		media := sendMediaPayload{ChatID: ChatID(digits), MediaURL: req.MediaURL}
		if strings.TrimSpace(req.Body) != "" {
			media.Caption = req.Body
		}
		path, payload = sendMediaPath, media
	default:
		path, payload = sendMessagePath, sendMessagePayload{ChatID: ChatID(digits), Message: req.Body}
	}

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(req.Token).
		SetPathParam("instanceId", req.InstanceID).
		SetBody(payload).
		Post(c.baseURL + path)

	if err != nil {
		observe("send", startTime, "error")
		return SendResult{Error: fmt.Sprintf("request failed: %v", err)}
	}

	logger.Debugf("waapi %s to %s completed in %v (status: %d)", kind, digits, time.Since(startTime), resp.StatusCode())

	result := parseSendResponse(resp.StatusCode(), resp.Body())
	if result.Delivered {
		observe("send", startTime, "ok")
	} else {
		observe("send", startTime, "rejected")
	}

	return result
}

func parseSendResponse(status int, body []byte) SendResult {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return SendResult{Error: fmt.Sprintf("empty response from waapi (status %d)", status)}
	}

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return SendResult{Error: fmt.Sprintf("invalid JSON response (status %d): %s", status, truncate(text, 200))}
	}

	obj, _ := data.(map[string]any)

	if status < 200 || status > 299 {
		if msg := firstString(obj, "message", "error", "details"); msg != "" {
			return SendResult{Error: msg}
		}
		return SendResult{Error: fmt.Sprintf("HTTP %d: %s", status, truncate(text, 200))}
	}

	if vendorRejected(obj) {
		if msg := firstString(obj, "error", "message", "details"); msg != "" {
			return SendResult{Error: msg}
		}
		return SendResult{Error: fmt.Sprintf("unexpected response: %s", truncate(text, 200))}
	}

	return SendResult{Delivered: true, MessageID: extractMessageID(obj)}
}

// vendorRejected detects application errors carried in a 2xx envelope,
// either at the top level or inside "data".
func vendorRejected(obj map[string]any) bool {
	for _, candidate := range []map[string]any{obj, asObject(obj["data"])} {
		if candidate == nil {
			continue
		}
		if s, ok := candidate["status"].(string); ok && strings.EqualFold(s, "error") {
			return true
		}
		if b, ok := candidate["success"].(bool); ok && !b {
			return true
		}
	}
	return false
}

func extractMessageID(obj map[string]any) string {
	if nested := asObject(obj["data"]); nested != nil {
		if id := idString(nested["messageId"]); id != "" {
			return id
		}
		if id := idString(nested["id"]); id != "" {
			return id
		}
	}
	if id := idString(obj["messageId"]); id != "" {
		return id
	}
	return idString(obj["id"])
}

// ResolveInstanceID asks the vendor which instances belong to the token and
// returns the first one.
func (c *Client) ResolveInstanceID(ctx context.Context, token string) (string, error) {
	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(c.baseURL + instancesPath)
	if err != nil {
		observe("instances", startTime, "error")
		return "", fmt.Errorf("failed to get instances: %w", err)
	}

	if !resp.IsSuccess() {
		observe("instances", startTime, "rejected")
		return "", fmt.Errorf("failed to get instances: %d - %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	observe("instances", startTime, "ok")

	var data any
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return "", fmt.Errorf("failed to decode instances response: %w", err)
	}

	if id := firstInstanceID(data); id != "" {
		return id, nil
	}

	return "", errors.New("no instances found in response")
}

// firstInstanceID understands {"data":[...]}, a bare array and {"instances":[...]}.
func firstInstanceID(data any) string {
	var list []any

	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		if arr, ok := v["data"].([]any); ok && len(arr) > 0 {
			list = arr
		} else if arr, ok := v["instances"].([]any); ok {
			list = arr
		}
	}

	if len(list) == 0 {
		return ""
	}

	return idString(asObject(list[0])["id"])
}

// VerifyCredential reports whether the token is authorized for the instance.
func (c *Client) VerifyCredential(ctx context.Context, token, instanceID string) bool {
	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("instanceId", instanceID).
		Get(c.baseURL + connectionStatePath)
	if err != nil {
		observe("connection_state", startTime, "error")
		logger.Warnf("Credential verification for instance %s failed: %v", instanceID, err)
		return AssumeValidOnUncertainVerification
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		observe("connection_state", startTime, "rejected")
		return false
	}

	observe("connection_state", startTime, "ok")
	if resp.IsSuccess() {
		return true
	}
	return AssumeValidOnUncertainVerification
}

// TestConnection probes the instance endpoint with the token.
func (c *Client) TestConnection(ctx context.Context, token, instanceID string) error {
	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("instanceId", instanceID).
		Get(c.baseURL + instancePath)
	if err != nil {
		observe("instance", startTime, "error")
		return fmt.Errorf("connection failed: %w", err)
	}

	if !resp.IsSuccess() {
		observe("instance", startTime, "rejected")
		return fmt.Errorf("connection failed: %d - %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	observe("instance", startTime, "ok")
	return nil
}

func (c *Client) CheckServiceAvailability(ctx context.Context) Availability {
	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Head(c.rootURL)
	if err != nil {
		observe("availability", startTime, "error")
		return Availability{Available: false, Message: "unable to reach waapi service"}
	}

	if !resp.IsSuccess() {
		observe("availability", startTime, "rejected")
		return Availability{Available: false, Message: fmt.Sprintf("waapi returned %d", resp.StatusCode())}
	}

	observe("availability", startTime, "ok")
	return Availability{Available: true, Message: "waapi service is available"}
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

func observe(endpoint string, start time.Time, result string) {
	metrics.GatewayRequestDuration.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
}

func asObject(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
