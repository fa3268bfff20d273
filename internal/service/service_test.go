package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"irrad-data/internal/blob"
	"irrad-data/internal/domain"
	"irrad-data/internal/infoream"
	"irrad-data/internal/notify"
	"irrad-data/internal/repository"
	"irrad-data/internal/store"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Services
	repos    *repository.Repos
	notes    *notify.Recorder
	inforEAM *infoream.Simulator
	blob     *blob.Memory
	locks    *lockRecorder
	now      time.Time
	admin    *domain.User
	alice    *domain.User
	bob      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:    repository.NewMemoryRepos(),
		notes:    &notify.Recorder{},
		inforEAM: infoream.NewSimulator(),
		blob:     blob.NewMemory(),
		locks:    &lockRecorder{MemoryKV: store.NewMemoryKV()},
		now:      testNow,
	}
	f.svc = New(&Deps{
		Repos:    f.repos,
		InforEAM: f.inforEAM,
		Notifier: f.notes,
		Blob:     f.blob,
		Locker:   store.NewLocker(f.locks, 30*time.Second),
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return f.now },
	})
	f.admin = f.user(t, "admin@cern.ch", domain.RoleAdmin)
	f.alice = f.user(t, "alice@cern.ch", domain.RoleUser)
	f.bob = f.user(t, "bob@cern.ch", domain.RoleUser)
	return f
}

// lockRecorder keeps the keys the allocation lock was taken on.
type lockRecorder struct {
	*store.MemoryKV
	keys []string
}

func (r *lockRecorder) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	r.keys = append(r.keys, key)
	return r.MemoryKV.SetNX(ctx, key, value, ttl)
}

func (f *fixture) user(t *testing.T, email, role string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Role: role}
	_, err := f.repos.Users.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func experimentInput(title string) ExperimentInput {
	return ExperimentInput{
		Title:           title,
		Description:     "Radiation hardness of front-end ASICs",
		CERNExperiment:  "ATLAS",
		EmergencyPhone:  "+41 22 767 0000",
		Availability:    "2026-04-01",
		IrradiationType: "Protons",
		NumberSamples:   3,
		Category:        CategoryInput{Kind: domain.CategoryPassiveStandard, Area10x10: true},
		ReqFluences:     []string{"1e15", "5e15"},
		Materials:       []string{"Silicon"},
	}
}

// experiment registers an experiment owned by owner and validates it.
func (f *fixture) experiment(t *testing.T, owner *domain.User, title string) *domain.Experiment {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Experiments.Create(ctx, owner, experimentInput(title))
	require.NoError(t, err)
	e, err := f.repos.Experiments.GetExperimentByTitle(ctx, title)
	require.NoError(t, err)
	_, err = f.svc.Experiments.Validate(ctx, f.admin, e.ID, nil)
	require.NoError(t, err)
	return e
}

// compound creates a single element compound.
func (f *fixture) compound(t *testing.T, name string) *domain.Compound {
	t.Helper()
	ctx := context.Background()
	el := &domain.Element{
		AtomicNumber: 14, AtomicSymbol: "Si", AtomicMass: 28.085, Density: 2.33,
		NuCollLength: 70.2, NuIntLength: 108.4, RadiationLength: 21.82,
	}
	_, err := f.repos.Compounds.CreateElement(ctx, el)
	require.NoError(t, err)
	_, err = f.svc.Compounds.Create(ctx, f.alice, CompoundInput{
		Name: name, Density: 2.33, Elements: []CompoundElementInput{{ElementID: el.ID, Percentage: 100}},
	})
	require.NoError(t, err)
	c, err := f.repos.Compounds.GetCompoundByName(ctx, name)
	require.NoError(t, err)
	return c
}

func (f *fixture) sample(t *testing.T, owner *domain.User, experimentID int64, name string, compoundID int64) *domain.Sample {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Samples.Create(ctx, owner, experimentID, SampleInput{
		Name:   name,
		Height: 10, Width: 10, Weight: 2,
		Layers: []LayerInput{{Name: "Layer 1", Length: 0.5, CompoundID: compoundID}},
	})
	require.NoError(t, err)
	sm, err := f.repos.Samples.GetSampleByName(ctx, name)
	require.NoError(t, err)
	return sm
}

func requireAlert(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	got, ok := AlertMessage(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, msg, got)
}

func requireDenied(t *testing.T, err error) {
	t.Helper()
	require.True(t, errors.Is(err, ErrPermissionDenied), "expected permission denied, got %v", err)
}
