package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"keyline/internal/jobs"
	"keyline/internal/pkg/fanout"
	"keyline/internal/pkg/validator"
	"keyline/internal/platform/config"
	"keyline/internal/platform/repositories"
)

type EmailAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type SendEmailPayload struct {
	Template    string            `json:"template"`
	Recipient   string            `json:"recipient"`
	Params      map[string]string `json:"params,omitempty"`
	Attachments []EmailAttachment `json:"attachments,omitempty"`
}

func (p SendEmailPayload) Validate() error {
	if p.Template == "" {
		return errors.New("template is required")
	}
	return validator.ValidEmail(p.Recipient)
}

// SendEmail dispatches one rendered email through the email service. Template
// rendering lives in that service; this job only ships the payload.
type SendEmail struct {
	url    string
	client *http.Client
}

func NewSendEmail(cfg config.EmailConfig) *SendEmail {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SendEmail{url: cfg.DispatchURL, client: &http.Client{Timeout: timeout}}
}

func (w *SendEmail) Job() jobs.Job {
	return jobs.Job{Name: "email.send", Run: w.Run}
}

func (w *SendEmail) Run(ctx context.Context, payload json.RawMessage) error {
	var p SendEmailPayload
	if err := jobs.Decode(payload, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email service returned %s", resp.Status)
	}
	return nil
}

type BulkEmailPayload struct {
	LockAddress string `json:"lockAddress"`
	Network     int64  `json:"network"`
	Content     string `json:"content"`
	Subject     string `json:"subject"`
}

func (p BulkEmailPayload) Validate() error {
	if p.LockAddress == "" {
		return errors.New("lockAddress is required")
	}
	if p.Network <= 0 {
		return errors.New("network is required")
	}
	if p.Content == "" {
		return errors.New("content is required")
	}
	if p.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// BulkEmail fans one announcement out into individual email.send jobs, one
// per member of a lock with a resolvable address.
type BulkEmail struct {
	metadata *repositories.UserMetadataRepository
	registry *jobs.Registry
}

func NewBulkEmail(metadata *repositories.UserMetadataRepository, registry *jobs.Registry) *BulkEmail {
	return &BulkEmail{metadata: metadata, registry: registry}
}

func (w *BulkEmail) Job() jobs.Job {
	return jobs.Job{Name: "email.bulk", Run: w.Run}
}

func (w *BulkEmail) Run(ctx context.Context, payload json.RawMessage) error {
	var p BulkEmailPayload
	if err := jobs.Decode(payload, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}

	rows, err := w.metadata.ListByLock(p.Network, p.LockAddress)
	if err != nil {
		return err
	}

	var recipients []string
	for _, row := range rows {
		email := extractEmail(row.Data)
		if email == "" {
			log.Debug().Str("user", row.UserAddress).Str("lock", p.LockAddress).Msg("no email in metadata, skipping recipient")
			continue
		}
		recipients = append(recipients, email)
	}

	results := fanout.Settle(recipients, func(recipient string) error {
		send, err := json.Marshal(SendEmailPayload{
			Template:  "custom",
			Recipient: recipient,
			Params: map[string]string{
				"subject": p.Subject,
				"content": p.Content,
				"lock":    p.LockAddress,
			},
		})
		if err != nil {
			return err
		}
		return w.registry.Run(ctx, "email.send", send)
	})

	var errs []error
	for _, failure := range fanout.Failures(results) {
		log.Warn().Err(failure.Err).Str("recipient", failure.Input).Msg("email dispatch failed")
		errs = append(errs, failure.Err)
	}
	return errors.Join(errs...)
}

// extractEmail resolves a recipient address from checkout metadata. Metadata
// keys arrive with inconsistent casing ("email", "Email", "EMAIL"), so keys
// are compared case-insensitively, in sorted order for determinism when
// several variants coexist.
func extractEmail(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.EqualFold(strings.TrimSpace(key), "email") {
			continue
		}
		if value, ok := data[key].(string); ok {
			if email := strings.TrimSpace(value); email != "" {
				return email
			}
		}
	}
	return ""
}
