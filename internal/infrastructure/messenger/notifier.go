// Package messenger delivers new-response notifications through the messenger
// gateway (POST {endpoint}/messages) and records deliveries that kept failing.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

// Failure describes a notification that could not be delivered.
type Failure struct {
	Target     string
	FormID     string
	ResponseID string
	Message    string
	Err        error
	Attempts   int
}

// FailureRecorder stores failed notifications for a later resend.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, failure Failure) error
}

// Config provides dependencies for Notifier.
type Config struct {
	Logger      *log.Logger
	HTTPClient  *http.Client
	Endpoint    string
	Destination string
	Recipient   string
	AdminURL    string
	Attempts    int
	RetryDelay  time.Duration
	Failures    FailureRecorder
}

// Notifier implements application.ResponseNotifier.
type Notifier struct {
	logger      *log.Logger
	httpClient  *http.Client
	endpoint    string
	destination string
	recipient   string
	adminURL    string
	attempts    int
	retryDelay  time.Duration
	failures    FailureRecorder
}

func New(cfg Config) *Notifier {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	recipient := strings.TrimSpace(cfg.Recipient)
	if recipient == "" {
		recipient = "admin"
	}
	return &Notifier{
		logger:      cfg.Logger,
		httpClient:  client,
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		destination: strings.TrimSpace(cfg.Destination),
		recipient:   recipient,
		adminURL:    strings.TrimRight(strings.TrimSpace(cfg.AdminURL), "/"),
		attempts:    attempts,
		retryDelay:  cfg.RetryDelay,
		failures:    cfg.Failures,
	}
}

// NotifyResponse sends a summary of the stored response. Errors are logged and
// recorded, never returned: the response is already persisted.
func (n *Notifier) NotifyResponse(ctx context.Context, form domain.FormSchema, response domain.ResponseRecord) {
	if ctx == nil {
		ctx = context.Background()
	}
	message := BuildResponseMessage(n.adminURL, form, response)

	attempts, err := n.sendWithRetry(ctx, message)
	if err == nil {
		return
	}
	n.logf("回答通知の送信に失敗 form=%s response=%s: %v", form.ID, response.ID, err)

	if n.failures == nil {
		return
	}
	failure := Failure{
		Target:     "response_notification",
		FormID:     form.ID,
		ResponseID: response.ID,
		Message:    message,
		Err:        err,
		Attempts:   attempts,
	}
	// 送信が打ち切られても失敗記録は残す
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := n.failures.RecordFailure(recordCtx, failure); err != nil {
		n.logf("通知失敗の記録に失敗: %v", err)
	}
}

// BuildResponseMessage renders the notification text. Answers are listed in
// form field order; answers to unknown fields follow in name order.
func BuildResponseMessage(adminURL string, form domain.FormSchema, response domain.ResponseRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("**%s** に新しい回答があります。\n", form.Title))

	listed := make(map[string]struct{}, len(form.Fields))
	for _, field := range form.Fields {
		listed[field.Name] = struct{}{}
		if value, ok := response.Answers[field.Name]; ok {
			builder.WriteString(fmt.Sprintf("- %s: %s\n", field.Name, value.String()))
		}
	}
	extra := make([]string, 0)
	for name := range response.Answers {
		if _, ok := listed[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		builder.WriteString(fmt.Sprintf("- %s: %s\n", name, response.Answers[name].String()))
	}

	if adminURL != "" && form.ID != "" {
		builder.WriteString(fmt.Sprintf("[管理画面で確認](%s/forms/%s/responses)\n", adminURL, form.ID))
	}
	return builder.String()
}

// sendWithRetry returns how many attempts were made. Waiting between attempts
// stops as soon as ctx is done.
func (n *Notifier) sendWithRetry(ctx context.Context, text string) (int, error) {
	if n.endpoint == "" {
		return 0, errors.New("messenger endpoint is empty")
	}
	var lastErr error
	for i := 0; i < n.attempts; i++ {
		err := n.send(ctx, text)
		if err == nil {
			return i + 1, nil
		}
		lastErr = err
		if i == n.attempts-1 {
			break
		}
		if err := ctx.Err(); err != nil {
			return i + 1, errors.Join(lastErr, err)
		}
		if n.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return i + 1, errors.Join(lastErr, ctx.Err())
			case <-time.After(n.retryDelay):
			}
		}
	}
	return n.attempts, lastErr
}

func (n *Notifier) send(ctx context.Context, text string) error {
	payload := map[string]any{
		"userId": n.recipient,
		"text":   text,
	}
	if n.destination != "" {
		payload["destination"] = n.destination
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("メッセンジャー送信用ペイロードの作成に失敗: %w", err)
	}

	timeout := n.httpClient.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, n.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("メッセンジャー送信でエラーが発生: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}

func (n *Notifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}
