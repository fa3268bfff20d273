package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"irrad-data/internal/domain"
)

// MemoryRepo implements every repository on in-process maps. It is used when the
// database is disabled and by service tests. Values are copied in and out.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64

	users        map[int64]*domain.User
	experiments  map[int64]*domain.Experiment
	categories   map[int64]*domain.ExperimentCategory
	reqFluences  map[int64]*domain.ReqFluence
	materials    map[int64]*domain.Material
	members      map[int64]map[int64]bool // experiment -> users
	archive      map[int64]*domain.ArchiveExperimentSample
	samples      map[int64]*domain.Sample
	layers       map[int64]*domain.Layer
	occupancies  map[int64]*domain.Occupancy
	boxes        map[int64]*domain.Box
	dosimeters   map[int64]*domain.Dosimeter
	compounds    map[int64]*domain.Compound
	compElements map[int64]*domain.CompoundElement
	elements     map[int64]*domain.Element
	irradiations map[int64]*domain.Irradiation
	factors      map[int64]*domain.FluenceFactor
	sec          []domain.SecReading
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:        map[int64]*domain.User{},
		experiments:  map[int64]*domain.Experiment{},
		categories:   map[int64]*domain.ExperimentCategory{},
		reqFluences:  map[int64]*domain.ReqFluence{},
		materials:    map[int64]*domain.Material{},
		members:      map[int64]map[int64]bool{},
		archive:      map[int64]*domain.ArchiveExperimentSample{},
		samples:      map[int64]*domain.Sample{},
		layers:       map[int64]*domain.Layer{},
		occupancies:  map[int64]*domain.Occupancy{},
		boxes:        map[int64]*domain.Box{},
		dosimeters:   map[int64]*domain.Dosimeter{},
		compounds:    map[int64]*domain.Compound{},
		compElements: map[int64]*domain.CompoundElement{},
		elements:     map[int64]*domain.Element{},
		irradiations: map[int64]*domain.Irradiation{},
		factors:      map[int64]*domain.FluenceFactor{},
	}
}

var (
	_ UsersRepository          = (*MemoryRepo)(nil)
	_ ExperimentsRepository    = (*MemoryRepo)(nil)
	_ SamplesRepository        = (*MemoryRepo)(nil)
	_ BoxesRepository          = (*MemoryRepo)(nil)
	_ DosimetersRepository     = (*MemoryRepo)(nil)
	_ CompoundsRepository      = (*MemoryRepo)(nil)
	_ IrradiationsRepository   = (*MemoryRepo)(nil)
	_ FluenceFactorsRepository = (*MemoryRepo)(nil)
	_ SecRepository            = (*MemoryRepo)(nil)
)

// id hands out the next primary key. Callers hold the write lock.
func (m *MemoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// collect copies the values of src accepted by keep, sorted by less.
func collect[T any](src map[int64]*T, keep func(*T) bool, less func(a, b *T) bool) []*T {
	out := []*T{}
	for _, v := range src {
		if keep == nil || keep(v) {
			out = append(out, clone(v))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func get[T any](src map[int64]*T, id int64, what string) (*T, error) {
	v, ok := src[id]
	if !ok {
		return nil, fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
	}
	return clone(v), nil
}

func put[T any](dst map[int64]*T, id int64, v *T, what string) error {
	if _, ok := dst[id]; !ok {
		return fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
	}
	dst[id] = clone(v)
	return nil
}

func del[T any](dst map[int64]*T, id int64, what string) error {
	if _, ok := dst[id]; !ok {
		return fmt.Errorf("%s not found: %w", what, sql.ErrNoRows)
	}
	delete(dst, id)
	return nil
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// newerFirst orders by updated_at desc, breaking ties with key.
func newerFirst(a, b time.Time, ka, kb string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return ka < kb
}

// ---- users ----

func (m *MemoryRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.users, id, "user")
}

func (m *MemoryRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListUsers(_ context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.users, nil, func(a, b *domain.User) bool {
		if a.Name.String != b.Name.String {
			return a.Name.String < b.Name.String
		}
		if a.Surname.String != b.Surname.String {
			return a.Surname.String < b.Surname.String
		}
		return a.Email < b.Email
	}), nil
}

func (m *MemoryRepo) CreateUser(_ context.Context, u *domain.User) (int64, error) {
	if u.Email == "" {
		return 0, fmt.Errorf("email is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, x := range m.users {
		if x.Email == u.Email {
			return 0, fmt.Errorf("failed to create user: email %q already exists", u.Email)
		}
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.ID = m.id()
	m.users[u.ID] = clone(u)
	return u.ID, nil
}

func (m *MemoryRepo) UpdateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	return put(m.users, u.ID, u, "user")
}

func (m *MemoryRepo) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.members {
		delete(set, id)
	}
	return del(m.users, id, "user")
}

func (m *MemoryRepo) TouchLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = at
	}
	return nil
}

// ---- experiments ----

func (m *MemoryRepo) GetExperiment(_ context.Context, id int64) (*domain.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.experiments, id, "experiment")
}

func (m *MemoryRepo) GetExperimentByTitle(_ context.Context, title string) (*domain.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.experiments {
		if e.Title == title {
			return clone(e), nil
		}
	}
	return nil, fmt.Errorf("experiment not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListExperiments(_ context.Context, filter ExperimentsFilter) ([]*domain.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := idSet(filter.IDs)
	return collect(m.experiments, func(e *domain.Experiment) bool {
		if ids != nil && !ids[e.ID] {
			return false
		}
		if filter.UserID > 0 {
			involved := (e.ResponsibleID.Valid && e.ResponsibleID.Int64 == filter.UserID) || m.members[e.ID][filter.UserID]
			if !involved && !(filter.IncludePublic && e.PublicExperiment) {
				return false
			}
		}
		return true
	}, func(a, b *domain.Experiment) bool {
		return newerFirst(a.UpdatedAt, b.UpdatedAt, a.Title, b.Title)
	}), nil
}

func (m *MemoryRepo) CreateExperiment(_ context.Context, e *domain.Experiment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.experiments {
		if x.Title == e.Title {
			return 0, fmt.Errorf("failed to create experiment: title %q already exists", e.Title)
		}
	}
	e.ID = m.id()
	m.experiments[e.ID] = clone(e)
	return e.ID, nil
}

func (m *MemoryRepo) UpdateExperiment(_ context.Context, e *domain.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.experiments, e.ID, e, "experiment")
}

// DeleteExperiment cascades like the database schema: dependent rows go, samples are detached.
func (m *MemoryRepo) DeleteExperiment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := del(m.experiments, id, "experiment"); err != nil {
		return err
	}
	delete(m.categories, id)
	delete(m.members, id)
	for k, v := range m.reqFluences {
		if v.ExperimentID == id {
			delete(m.reqFluences, k)
		}
	}
	for k, v := range m.materials {
		if v.ExperimentID == id {
			delete(m.materials, k)
		}
	}
	for k, v := range m.archive {
		if v.ExperimentID == id {
			delete(m.archive, k)
		}
	}
	for _, s := range m.samples {
		if s.ExperimentID.Valid && s.ExperimentID.Int64 == id {
			s.ExperimentID = sql.NullInt64{}
		}
	}
	return nil
}

func (m *MemoryRepo) GetCategory(_ context.Context, experimentID int64) (*domain.ExperimentCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.categories, experimentID, "experiment category")
}

func (m *MemoryRepo) SaveCategory(_ context.Context, c *domain.ExperimentCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ExperimentID] = clone(c)
	return nil
}

func (m *MemoryRepo) ListReqFluences(_ context.Context, experimentID int64) ([]*domain.ReqFluence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.reqFluences,
		func(f *domain.ReqFluence) bool { return f.ExperimentID == experimentID },
		func(a, b *domain.ReqFluence) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) SaveReqFluences(_ context.Context, experimentID int64, items []*domain.ReqFluence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := map[int64]bool{}
	for _, it := range items {
		it.ExperimentID = experimentID
		if it.ID == 0 {
			it.ID = m.id()
		}
		keep[it.ID] = true
		m.reqFluences[it.ID] = clone(it)
	}
	for k, v := range m.reqFluences {
		if v.ExperimentID == experimentID && !keep[k] {
			delete(m.reqFluences, k)
		}
	}
	return nil
}

func (m *MemoryRepo) ListMaterials(_ context.Context, experimentID int64) ([]*domain.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.materials,
		func(x *domain.Material) bool { return x.ExperimentID == experimentID },
		func(a, b *domain.Material) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) SaveMaterials(_ context.Context, experimentID int64, items []*domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := map[int64]bool{}
	for _, it := range items {
		it.ExperimentID = experimentID
		if it.ID == 0 {
			it.ID = m.id()
		}
		keep[it.ID] = true
		m.materials[it.ID] = clone(it)
	}
	for k, v := range m.materials {
		if v.ExperimentID == experimentID && !keep[k] {
			delete(m.materials, k)
		}
	}
	return nil
}

func (m *MemoryRepo) ListMembers(_ context.Context, experimentID int64) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.members[experimentID]
	return collect(m.users,
		func(u *domain.User) bool { return set[u.ID] },
		func(a, b *domain.User) bool { return a.Email < b.Email }), nil
}

func (m *MemoryRepo) AddMember(_ context.Context, experimentID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[experimentID] == nil {
		m.members[experimentID] = map[int64]bool{}
	}
	m.members[experimentID][userID] = true
	return nil
}

func (m *MemoryRepo) RemoveMember(_ context.Context, experimentID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[experimentID], userID)
	return nil
}

func (m *MemoryRepo) CountUserExperiments(_ context.Context) (map[int64]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[int64]int{}
	for _, e := range m.experiments {
		seen := map[int64]bool{}
		if e.ResponsibleID.Valid {
			seen[e.ResponsibleID.Int64] = true
		}
		for u := range m.members[e.ID] {
			seen[u] = true
		}
		for u := range seen {
			counts[u]++
		}
	}
	return counts, nil
}

func (m *MemoryRepo) ListArchive(_ context.Context, experimentID int64) ([]*domain.ArchiveExperimentSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.archive,
		func(a *domain.ArchiveExperimentSample) bool { return a.ExperimentID == experimentID },
		func(a, b *domain.ArchiveExperimentSample) bool { return a.Timestamp.Time.Before(b.Timestamp.Time) }), nil
}

func (m *MemoryRepo) CreateArchive(_ context.Context, a *domain.ArchiveExperimentSample) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.archive[a.ID] = clone(a)
	return a.ID, nil
}

// ---- sec ----

func (m *MemoryRepo) InsertSecReading(_ context.Context, r *domain.SecReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sec = append(m.sec, *r)
	return nil
}

func (m *MemoryRepo) SumSec(_ context.Context, secID string, from, to time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum float64
	for _, r := range m.sec {
		if r.SecID == secID && r.Timestamp.After(from) && r.Timestamp.Before(to) {
			sum += r.Value
		}
	}
	return sum, nil
}

func (m *MemoryRepo) FirstLastPositiveSec(_ context.Context, secID string, from, to time.Time) (sql.NullTime, sql.NullTime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first, last sql.NullTime
	for _, r := range m.sec {
		if r.SecID != secID || r.Value <= 0 || !r.Timestamp.After(from) || !r.Timestamp.Before(to) {
			continue
		}
		if !first.Valid || r.Timestamp.Before(first.Time) {
			first = sql.NullTime{Time: r.Timestamp, Valid: true}
		}
		if !last.Valid || r.Timestamp.After(last.Time) {
			last = sql.NullTime{Time: r.Timestamp, Valid: true}
		}
	}
	return first, last, nil
}
