// Package memory is an in-process storage.AllStorage used by offline runs and
// tests. Nothing is persisted.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"domainwatch/pkg/domain"
	"domainwatch/pkg/storage"

	"github.com/google/uuid"
)

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	domains  map[domain.DomainID]domain.Domain
	channels []domain.Channel
	notes    []domain.NotificationLog
	errors   []domain.ErrorSignature
	runs     map[uuid.UUID]domain.CheckRun
}

var _ storage.AllStorage = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		domains: make(map[domain.DomainID]domain.Domain),
		runs:    make(map[uuid.UUID]domain.CheckRun),
	}
}

func (s *Store) ActiveDomains(_ context.Context) ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		if d.IsActive {
			out = append(out, clone(d))
		}
	}
	slices.SortFunc(out, func(a, b domain.Domain) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) DomainByName(_ context.Context, name string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.domains {
		if d.Name == name {
			c := clone(d)

			return &c, nil
		}
	}

	return nil, nil
}

// UpsertDomains inserts new domains with all their fields, so seeds can carry
// last known registry data. Existing ones only get IsActive and the group.
func (s *Store) UpsertDomains(_ context.Context, domains ...domain.Domain) ([]domain.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]domain.Domain, 0, len(domains))
	for _, d := range domains {
		if existing, ok := s.byName(d.Name); ok {
			existing.IsActive = d.IsActive
			existing.NotificationGroupID = d.NotificationGroupID
			existing.UpdatedAt = now
			s.domains[existing.ID] = existing
			out = append(out, clone(existing))

			continue
		}

		if d.ID == (domain.DomainID{}) {
			d.ID = domain.DomainID(uuid.New())
		}
		if d.Status == "" {
			d.Status = domain.StatusUnknown
		}
		d.CreatedAt, d.UpdatedAt = now, now
		s.domains[d.ID] = clone(d)
		out = append(out, clone(d))
	}

	return out, nil
}

func (s *Store) UpdateDomainCheck(_ context.Context, d domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.domains[d.ID]
	if !ok {
		return nil
	}
	existing.Registrar = d.Registrar
	existing.RegistrarURL = d.RegistrarURL
	existing.ExpirationDate = d.ExpirationDate
	existing.UpdatedDate = d.UpdatedDate
	existing.AbuseEmail = d.AbuseEmail
	existing.Nameservers = slices.Clone(d.Nameservers)
	existing.Status = d.Status
	existing.LastChecked = d.LastChecked
	existing.RawRegistryData = d.RawRegistryData
	existing.ConsecutiveFailures = d.ConsecutiveFailures
	existing.UpdatedAt = time.Now()
	s.domains[d.ID] = existing

	return nil
}

func (s *Store) MarkDomainChecked(_ context.Context, id domain.DomainID, mark storage.CheckMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.domains[id]
	if !ok {
		return nil
	}
	checked := mark.CheckedAt
	existing.LastChecked = &checked
	existing.ConsecutiveFailures = mark.ConsecutiveFailures
	if mark.Status != "" {
		existing.Status = mark.Status
	}
	existing.UpdatedAt = time.Now()
	s.domains[id] = existing

	return nil
}

func (s *Store) ActiveChannels(_ context.Context, groupID domain.GroupID) ([]domain.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Channel
	for _, ch := range s.channels {
		if ch.GroupID == groupID && ch.IsActive {
			out = append(out, ch)
		}
	}

	return out, nil
}

func (s *Store) StoreChannels(_ context.Context, channels ...domain.Channel) ([]domain.Channel, error) {
	return s.AddChannels(channels...), nil
}

// AddChannels stores channel configurations, assigning IDs where missing.
func (s *Store) AddChannels(channels ...domain.Channel) []domain.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch.ID == (domain.ChannelID{}) {
			ch.ID = domain.ChannelID(uuid.New())
		}
		s.channels = append(s.channels, ch)
		out = append(out, ch)
	}

	return out
}

func (s *Store) WasSentRecently(
	_ context.Context,
	id domain.DomainID,
	t domain.NotificationType,
	since time.Time,
) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notes {
		if n.DomainID == id && n.Type == t && n.Success && !n.SentAt.Before(since) {
			return true, nil
		}
	}

	return false, nil
}

func (s *Store) LogNotifications(_ context.Context, entries ...domain.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		s.notes = append(s.notes, e)
	}

	return nil
}

// Notifications returns every logged delivery attempt in insertion order.
func (s *Store) Notifications() []domain.NotificationLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.notes)
}

func (s *Store) LogError(_ context.Context, event domain.ErrorEvent, at time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sig := range s.errors {
		if !sig.Resolved && sig.Kind == event.Kind && sig.Location == event.Location && sig.Message == event.Message {
			sig.OccurrenceCount++
			if at.After(sig.LastSeen) {
				sig.LastSeen = at
			}
			if event.Context != nil {
				sig.Context = event.Context
			}
			s.errors[i] = sig

			return sig.ID, nil
		}
	}

	sig := domain.ErrorSignature{
		ID:              uuid.New(),
		Kind:            event.Kind,
		Location:        event.Location,
		Message:         event.Message,
		Context:         event.Context,
		OccurrenceCount: 1,
		FirstSeen:       at,
		LastSeen:        at,
	}
	s.errors = append(s.errors, sig)

	return sig.ID, nil
}

func (s *Store) ResolveError(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sig := range s.errors {
		if sig.ID == id && !sig.Resolved {
			resolved := at
			s.errors[i].Resolved = true
			s.errors[i].ResolvedAt = &resolved
		}
	}

	return nil
}

func (s *Store) ErrorSignatures(_ context.Context, withResolved bool) ([]domain.ErrorSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ErrorSignature
	for _, sig := range s.errors {
		if withResolved || !sig.Resolved {
			out = append(out, sig)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.ErrorSignature) int { return b.LastSeen.Compare(a.LastSeen) })

	return out, nil
}

func (s *Store) StartRun(_ context.Context, startedAt time.Time) (domain.CheckRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := domain.CheckRun{ID: uuid.New(), StartedAt: startedAt}
	s.runs[run.ID] = run

	return run, nil
}

func (s *Store) FinishRun(_ context.Context, run domain.CheckRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run

	return nil
}

// Run returns a stored run.
func (s *Store) Run(id uuid.UUID) (domain.CheckRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]

	return run, ok
}

func (s *Store) byName(name string) (domain.Domain, bool) {
	for _, d := range s.domains {
		if d.Name == name {
			return d, true
		}
	}

	return domain.Domain{}, false
}

func clone(d domain.Domain) domain.Domain {
	d.Nameservers = slices.Clone(d.Nameservers)

	return d
}
