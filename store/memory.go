package store

import (
	"context"
	"sync"
	"time"

	"github.com/opsec-k9/backend/models"
)

// Memory is a thread-safe in-memory Store. It backs demo mode (no DB_HOST)
// and the tests; every case gets a fresh instance instead of sharing
// package-level slices.
type Memory struct {
	mu sync.RWMutex

	timeLogs  []models.AttendanceRecord
	trainings []models.TrainingSession
	vaccs     []models.Vaccination
	sites     []models.Site
	k9s       []models.K9
	users     []models.User

	nextTimeLog  int64
	nextTraining int64
	nextVacc     int64
	nextSite     int64
	nextK9       int64
	nextUser     int64
}

func NewMemory() *Memory {
	return &Memory{
		nextTimeLog:  1,
		nextTraining: 1,
		nextVacc:     1,
		nextSite:     1,
		nextK9:       1,
		nextUser:     1,
	}
}

// --- attendance ---

func (m *Memory) AppendTimeLog(_ context.Context, rec *models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = m.nextTimeLog
	m.nextTimeLog++
	m.timeLogs = append(m.timeLogs, *rec)
	return nil
}

func (m *Memory) TimeLog(_ context.Context, id int64) (models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.timeLogs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return models.AttendanceRecord{}, ErrNotFound
}

func (m *Memory) TimeLogs(_ context.Context, f TimeLogFilter) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.AttendanceRecord{}
	for _, rec := range m.timeLogs {
		if f.UserID != "" && rec.UserID != f.UserID {
			continue
		}
		if f.State != "" && rec.ApprovalState != f.State {
			continue
		}
		if f.From != nil && rec.ClockIn.Before(*f.From) {
			continue
		}
		if f.To != nil && !rec.ClockIn.Before(*f.To) {
			continue
		}
		out = append(out, rec)
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.AttendanceRecord{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) SetApproval(_ context.Context, id int64, state models.ApprovalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.timeLogs {
		if m.timeLogs[i].ID != id {
			continue
		}
		if m.timeLogs[i].ApprovalState != models.ApprovalPending {
			return ErrInvalidState
		}
		m.timeLogs[i].ApprovalState = state
		return nil
	}
	return ErrNotFound
}

// --- training ---

func (m *Memory) AppendTraining(_ context.Context, s *models.TrainingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextTraining
	m.nextTraining++
	m.trainings = append(m.trainings, *s)
	return nil
}

func (m *Memory) Trainings(_ context.Context) ([]models.TrainingSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.TrainingSession, len(m.trainings))
	copy(out, m.trainings)
	return out, nil
}

// --- sites ---

func (m *Memory) AddSite(site models.Site) models.Site {
	m.mu.Lock()
	defer m.mu.Unlock()

	site.ID = m.nextSite
	m.nextSite++
	m.sites = append(m.sites, site)
	return site
}

func (m *Memory) Site(_ context.Context, id int64) (models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sites {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Site{}, ErrNotFound
}

func (m *Memory) Sites(_ context.Context) ([]models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Site, len(m.sites))
	copy(out, m.sites)
	return out, nil
}

// --- k9s ---

func (m *Memory) AddK9(k9 models.K9) models.K9 {
	m.mu.Lock()
	defer m.mu.Unlock()

	k9.ID = m.nextK9
	m.nextK9++
	m.k9s = append(m.k9s, k9)
	return k9
}

func (m *Memory) K9s(_ context.Context) ([]models.K9, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.K9, len(m.k9s))
	copy(out, m.k9s)
	return out, nil
}

func (m *Memory) K9(_ context.Context, id int64) (models.K9, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, k := range m.k9s {
		if k.ID == id {
			return k, nil
		}
	}
	return models.K9{}, ErrNotFound
}

func (m *Memory) AppendVaccination(_ context.Context, v *models.Vaccination) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v.ID = m.nextVacc
	m.nextVacc++
	m.vaccs = append(m.vaccs, *v)
	return nil
}

func (m *Memory) VaccinationsExpiringBefore(_ context.Context, cutoff time.Time) ([]models.Vaccination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Vaccination{}
	for _, v := range m.vaccs {
		if v.Expires.Before(cutoff) {
			out = append(out, v)
		}
	}
	return out, nil
}

// --- users ---

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = m.nextUser
	m.nextUser++
	m.users = append(m.users, *u)
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *Memory) UserByUserID(_ context.Context, userID string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}
