package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"keyline/internal/platform/models"
)

const (
	SignatureHeader    = "X-Hub-Signature"
	SignatureAlgorithm = "sha256"

	DefaultTimeout = time.Second
)

// Payload serializes a notification body to the canonical JSON that gets
// signed and transmitted. Signing a re-serialized copy would break receiver
// verification, so callers must reuse these exact bytes for every attempt.
func Payload(body any) ([]byte, error) {
	return json.Marshal(body)
}

type Result struct {
	OK         bool
	StatusCode int
	StatusText string
}

// Notifier performs single signed delivery attempts with a hard per-attempt
// timeout.
type Notifier struct {
	client  *http.Client
	timeout time.Duration
}

func NewNotifier(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{client: &http.Client{}, timeout: timeout}
}

// Deliver POSTs payload to the hook callback once. Timeouts, transport errors
// and non-2xx statuses come back as OK=false; they are expected outcomes, not
// errors.
func (n *Notifier) Deliver(ctx context.Context, hook *models.Hook, payload []byte) Result {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.Callback, bytes.NewReader(payload))
	if err != nil {
		return Result{StatusText: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	if hook.Secret != "" {
		signature, err := Sign(hook.Secret, payload, SignatureAlgorithm)
		if err != nil {
			return Result{StatusText: err.Error()}
		}
		req.Header.Set(SignatureHeader, SignatureAlgorithm+"="+signature)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{StatusText: err.Error()}
	}
	defer resp.Body.Close()

	return Result{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		StatusText: resp.Status,
	}
}
