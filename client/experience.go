package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeltaDisplayDuration is how long a fresh award stays exposed as the
// "+N XP" animation delta before auto-clearing.
const DeltaDisplayDuration = 2500 * time.Millisecond

// ExperienceAward is one award event as decoded off the wire. TotalXP is
// the authoritative absolute total, not a delta to sum.
type ExperienceAward struct {
	UserID   uuid.UUID
	Username string
	Points   int
	TotalXP  int
}

// RosterEntry is one participant row in the course-scoped experience
// snapshot shown on the tutor panel.
type RosterEntry struct {
	UserID           uuid.UUID `json:"id"`
	FullName         string    `json:"full_name"`
	ExperiencePoints int       `json:"experience_points"`
}

// AwardObserver sees every award in the room, own or not, for transient
// classroom-wide UI like "Ana earned 10 points".
type AwardObserver func(ExperienceAward)

// ExperienceStore holds the viewer's derived experience state: own total,
// the short-lived animation delta, and the roster snapshot. Totals are
// taken from the server's absolute value, so re-applying a duplicate
// notification is harmless.
type ExperienceStore struct {
	mu         sync.Mutex
	selfID     uuid.UUID
	total      int
	delta      int
	deltaTimer *time.Timer
	deltaTTL   time.Duration
	roster     map[uuid.UUID]RosterEntry
	observers  []AwardObserver
	logger     *zap.Logger
}

// NewExperienceStore creates a store for the viewing participant, seeded
// with the total fetched from the authoritative source on page load.
func NewExperienceStore(selfID uuid.UUID, initialTotal int, logger *zap.Logger) *ExperienceStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExperienceStore{
		selfID:   selfID,
		total:    initialTotal,
		deltaTTL: DeltaDisplayDuration,
		roster:   make(map[uuid.UUID]RosterEntry),
		logger:   logger,
	}
}

// SetDeltaWindow overrides the animation display window.
func (s *ExperienceStore) SetDeltaWindow(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.deltaTTL = d
	}
}

// OnAward registers an observer for every award in the room.
func (s *ExperienceStore) OnAward(fn AwardObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// ApplyAward consumes one award. Only an award targeting the viewer
// mutates the own total; every award updates the roster snapshot and is
// reported to observers. The delta timer is reset, not accumulated, when
// awards overlap within the display window.
func (s *ExperienceStore) ApplyAward(a ExperienceAward) {
	s.mu.Lock()
	if a.UserID == s.selfID {
		if a.TotalXP >= s.total {
			s.total = a.TotalXP
		} else {
			// Totals never regress within a session; only a full
			// resync may lower them.
			s.logger.Warn("ignoring regressing experience total",
				zap.Int("current", s.total), zap.Int("received", a.TotalXP))
		}
		s.delta = a.Points
		if s.deltaTimer != nil {
			s.deltaTimer.Stop()
		}
		s.deltaTimer = time.AfterFunc(s.deltaTTL, s.clearDelta)
	}
	if entry, ok := s.roster[a.UserID]; ok && a.TotalXP >= entry.ExperiencePoints {
		entry.ExperiencePoints = a.TotalXP
		s.roster[a.UserID] = entry
	}
	observers := make([]AwardObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(a)
	}
}

func (s *ExperienceStore) clearDelta() {
	s.mu.Lock()
	s.delta = 0
	s.deltaTimer = nil
	s.mu.Unlock()
}

// Total returns the viewer's current experience total.
func (s *ExperienceStore) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Delta returns the points of the most recent own award while its
// display window is open, and whether the window is open at all.
func (s *ExperienceStore) Delta() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delta, s.delta != 0
}

// SeedRoster replaces the roster snapshot from the authoritative fetch.
// This is the one path allowed to lower stored totals.
func (s *ExperienceStore) SeedRoster(entries []RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = make(map[uuid.UUID]RosterEntry, len(entries))
	for _, e := range entries {
		s.roster[e.UserID] = e
	}
}

// Roster returns a copy of the current roster snapshot.
func (s *ExperienceStore) Roster() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RosterEntry, 0, len(s.roster))
	for _, e := range s.roster {
		out = append(out, e)
	}
	return out
}

// Stop cancels the pending delta timer, if any.
func (s *ExperienceStore) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deltaTimer != nil {
		s.deltaTimer.Stop()
		s.deltaTimer = nil
	}
	s.delta = 0
}
