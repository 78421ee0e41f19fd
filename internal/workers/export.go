package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"keyline/internal/jobs"
	"keyline/internal/platform/chainrpc"
	"keyline/internal/platform/storage"
)

// KeySource pages the keys of a lock. The dispatcher's subgraph proxy
// implements this in production.
type KeySource interface {
	Keys(ctx context.Context, network int64, lockAddress string, query string, page, pageSize int) ([]chainrpc.ExportKey, int, error)
}

type ExportPayload struct {
	JobID       string `json:"jobId"`
	LockAddress string `json:"lockAddress"`
	Network     int64  `json:"network"`
	Query       string `json:"query,omitempty"`
}

func (p ExportPayload) Validate() error {
	if p.JobID == "" {
		return errors.New("jobId is required")
	}
	if p.LockAddress == "" {
		return errors.New("lockAddress is required")
	}
	if p.Network <= 0 {
		return errors.New("network is required")
	}
	return nil
}

// exportArtifact is what lands in storage. No timestamps or run-specific
// fields: re-running an export over unchanged data must produce a
// byte-identical artifact.
type exportArtifact struct {
	JobID       string               `json:"jobId"`
	LockAddress string               `json:"lockAddress"`
	Network     int64                `json:"network"`
	Query       string               `json:"query,omitempty"`
	Keys        []chainrpc.ExportKey `json:"keys"`
}

// Export paginates the full key set for a lock and writes the artifact to
// durable storage exactly once at the end, so a failed run leaves nothing
// partial behind.
type Export struct {
	source   KeySource
	store    storage.Store
	pageSize int
}

func NewExport(source KeySource, store storage.Store, pageSize int) *Export {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Export{source: source, store: store, pageSize: pageSize}
}

func (w *Export) Job() jobs.Job {
	return jobs.Job{Name: "export.keys", Run: w.Run}
}

func (w *Export) Run(ctx context.Context, payload json.RawMessage) error {
	var p ExportPayload
	if err := jobs.Decode(payload, &p); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", jobs.ErrInvalidPayload, err)
	}

	keys := make([]chainrpc.ExportKey, 0, w.pageSize)
	totalPages := 1
	for page := 0; page < totalPages; page++ {
		items, total, err := w.source.Keys(ctx, p.Network, p.LockAddress, p.Query, page, w.pageSize)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if len(items) == 0 {
			break
		}
		keys = append(keys, items...)
		totalPages = (total + w.pageSize - 1) / w.pageSize
	}

	artifact, err := json.MarshalIndent(exportArtifact{
		JobID:       p.JobID,
		LockAddress: p.LockAddress,
		Network:     p.Network,
		Query:       p.Query,
		Keys:        keys,
	}, "", "  ")
	if err != nil {
		return err
	}

	objectKey := fmt.Sprintf("exports/%s.json", p.JobID)
	if err := w.store.Put(ctx, objectKey, artifact); err != nil {
		return err
	}

	log.Info().
		Str("job_id", p.JobID).
		Str("lock", p.LockAddress).
		Int64("network", p.Network).
		Int("keys", len(keys)).
		Str("object", objectKey).
		Msg("key export written")
	return nil
}
