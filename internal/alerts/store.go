package alerts

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fisiocore/backend/pkg/model"
	"go.uber.org/zap"
)

// Alerts still unresolved after this window are discarded on purge. The
// original behavior is kept on purpose; the warning log below makes the
// silent loss at least observable.
const retentionWindow = 7 * 24 * time.Hour

// Store is the single-writer active-alert set. All mutation goes through
// the mutex; concurrent evaluation batches across patients would otherwise
// race on the dedup-and-purge step.
type Store struct {
	mu     sync.Mutex
	logger *zap.Logger

	alerts map[string]*model.Alert // by alert id
	byKey  map[string]string       // dedup key -> active alert id
}

// NewStore creates an empty alert store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		alerts: make(map[string]*model.Alert),
		byKey:  make(map[string]string),
	}
}

// dedupKey identifies an alert by its type and sorted affected entities
func dedupKey(alertType model.AlertType, affected []string) string {
	entities := make([]string, len(affected))
	copy(entities, affected)
	sort.Strings(entities)
	return string(alertType) + "|" + strings.Join(entities, ",")
}

// Upsert adds an alert unless an active alert with the same dedup key
// already exists. Returns true when the alert was added.
func (s *Store) Upsert(alert model.Alert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(alert.Type, alert.AffectedEntities)
	if existingID, ok := s.byKey[key]; ok {
		if existing, ok := s.alerts[existingID]; ok && !existing.IsResolved {
			s.logger.Debug("duplicate alert suppressed",
				zap.String("type", string(alert.Type)),
				zap.String("existing_id", existingID),
			)
			return false
		}
	}

	stored := alert
	s.alerts[alert.ID] = &stored
	s.byKey[key] = alert.ID

	s.logger.Info("alert created",
		zap.String("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
	)
	return true
}

// Active returns unresolved alerts ranked by severity, ties broken by
// most recent first
func (s *Store) Active() []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []model.Alert
	for _, alert := range s.alerts {
		if !alert.IsResolved {
			active = append(active, *alert)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if ri, rj := active[i].Severity.Rank(), active[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	return active
}

// Get returns one alert by id
func (s *Store) Get(id string) (model.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, false
	}
	return *alert, true
}

// MarkAsRead marks an alert as read. Idempotent; returns false only when
// the alert does not exist.
func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return false
	}
	alert.IsRead = true
	return true
}

// MarkAsAcknowledged records the acknowledgement time once. Idempotent.
func (s *Store) MarkAsAcknowledged(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return false
	}
	alert.IsRead = true
	if alert.AcknowledgedAt == nil {
		ack := now
		alert.AcknowledgedAt = &ack
	}
	return true
}

// MarkAsResolved resolves an alert. Resolving is terminal and idempotent;
// returns false only when the alert does not exist.
func (s *Store) MarkAsResolved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return false
	}
	alert.IsRead = true
	alert.IsResolved = true
	return true
}

// Purge discards alerts older than the retention window, resolved or not.
// Returns the number of alerts removed.
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-retentionWindow)
	removed := 0
	for id, alert := range s.alerts {
		if alert.CreatedAt.After(cutoff) {
			continue
		}
		if !alert.IsResolved {
			s.logger.Warn("discarding unresolved alert past retention window",
				zap.String("alert_id", id),
				zap.String("type", string(alert.Type)),
				zap.Time("created_at", alert.CreatedAt),
			)
		}
		delete(s.alerts, id)
		// A resolved alert may have been superseded; its dedup key then
		// indexes the newer alert and must survive the purge
		if key := dedupKey(alert.Type, alert.AffectedEntities); s.byKey[key] == id {
			delete(s.byKey, key)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("alert purge completed", zap.Int("removed", removed))
	}
	return removed
}
