package webhooks

import (
	"keyline/internal/platform/models"
	"keyline/internal/platform/repositories"
)

// healthWindow is the number of recent delivery attempts inspected per hook.
// Operator tooling and fixtures are built around this threshold.
const healthWindow = 3

// HealthTracker decides whether retrying a subscriber is worthwhile based on
// its recent delivery history.
type HealthTracker struct {
	events *repositories.HookEventRepository
}

func NewHealthTracker(events *repositories.HookEventRepository) *HealthTracker {
	return &HealthTracker{events: events}
}

// IsUnhealthy reports whether every one of the hook's recent delivery events
// failed. Only events recorded since the hook was last updated count, so a
// subscriber that re-registers starts from a clean slate. An empty history is
// healthy: there is no evidence of failure yet.
func (t *HealthTracker) IsUnhealthy(hook *models.Hook) (bool, error) {
	recent, err := t.events.Recent(hook.ID, hook.UpdatedAt, healthWindow)
	if err != nil {
		return false, err
	}
	if len(recent) == 0 {
		return false, nil
	}

	for _, event := range recent {
		if event.State == models.EventStateSuccess {
			return false, nil
		}
	}
	return true, nil
}
