// Package repository is the data access layer. Every aggregate has an interface, a
// PostgreSQL implementation and a slot in MemoryRepo, which backs the service when the
// database is disabled or unreachable.
//
// Lookups of a single row that match nothing return an error wrapping sql.ErrNoRows.
package repository

import (
	"context"
	"database/sql"
	"time"

	"irrad-data/internal/domain"
)

type UsersRepository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListUsers is ordered by name.
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) (int64, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	TouchLogin(ctx context.Context, id int64, at time.Time) error
}

// ExperimentsFilter narrows ListExperiments. The zero value lists everything.
type ExperimentsFilter struct {
	IDs []int64
	// UserID keeps experiments where the user is responsible or a member.
	UserID int64
	// IncludePublic widens a UserID filter with every public experiment.
	IncludePublic bool
}

type ExperimentsRepository interface {
	GetExperiment(ctx context.Context, id int64) (*domain.Experiment, error)
	GetExperimentByTitle(ctx context.Context, title string) (*domain.Experiment, error)
	// ListExperiments is ordered by updated_at desc, then title.
	ListExperiments(ctx context.Context, filter ExperimentsFilter) ([]*domain.Experiment, error)
	CreateExperiment(ctx context.Context, e *domain.Experiment) (int64, error)
	UpdateExperiment(ctx context.Context, e *domain.Experiment) error
	DeleteExperiment(ctx context.Context, id int64) error

	GetCategory(ctx context.Context, experimentID int64) (*domain.ExperimentCategory, error)
	SaveCategory(ctx context.Context, c *domain.ExperimentCategory) error

	ListReqFluences(ctx context.Context, experimentID int64) ([]*domain.ReqFluence, error)
	// SaveReqFluences makes the stored set equal to items: rows with an ID are updated,
	// rows without one inserted and missing rows deleted.
	SaveReqFluences(ctx context.Context, experimentID int64, items []*domain.ReqFluence) error
	ListMaterials(ctx context.Context, experimentID int64) ([]*domain.Material, error)
	SaveMaterials(ctx context.Context, experimentID int64, items []*domain.Material) error

	ListMembers(ctx context.Context, experimentID int64) ([]*domain.User, error)
	AddMember(ctx context.Context, experimentID, userID int64) error
	RemoveMember(ctx context.Context, experimentID, userID int64) error
	// CountUserExperiments maps user id to the number of experiments the user is
	// responsible for or a member of.
	CountUserExperiments(ctx context.Context) (map[int64]int, error)

	ListArchive(ctx context.Context, experimentID int64) ([]*domain.ArchiveExperimentSample, error)
	CreateArchive(ctx context.Context, a *domain.ArchiveExperimentSample) (int64, error)
}

// SamplesFilter narrows ListSamples. Zero fields are ignored.
type SamplesFilter struct {
	IDs          []int64
	ExperimentID int64
	BoxID        int64
}

type SamplesRepository interface {
	GetSample(ctx context.Context, id int64) (*domain.Sample, error)
	GetSampleByName(ctx context.Context, name string) (*domain.Sample, error)
	// ListSamples is ordered by updated_at desc, then name.
	ListSamples(ctx context.Context, filter SamplesFilter) ([]*domain.Sample, error)
	CreateSample(ctx context.Context, s *domain.Sample) (int64, error)
	UpdateSample(ctx context.Context, s *domain.Sample) error
	DeleteSample(ctx context.Context, id int64) error
	// ListSetIDs returns every non-empty set_id.
	ListSetIDs(ctx context.Context) ([]string, error)

	ListLayers(ctx context.Context, sampleID int64) ([]*domain.Layer, error)
	ListLayersByCompound(ctx context.Context, compoundID int64) ([]*domain.Layer, error)
	// SaveLayers replaces the layers of a sample.
	SaveLayers(ctx context.Context, sampleID int64, layers []*domain.Layer) error

	ListOccupancies(ctx context.Context, sampleID int64) ([]*domain.Occupancy, error)
	// SaveOccupancy replaces the occupancy rows of a sample with o.
	SaveOccupancy(ctx context.Context, o *domain.Occupancy) error
}

type BoxesRepository interface {
	GetBox(ctx context.Context, id int64) (*domain.Box, error)
	GetBoxByBoxID(ctx context.Context, boxID string) (*domain.Box, error)
	ListBoxes(ctx context.Context) ([]*domain.Box, error)
	CreateBox(ctx context.Context, b *domain.Box) (int64, error)
	UpdateBox(ctx context.Context, b *domain.Box) error
	DeleteBox(ctx context.Context, id int64) error
}

// DosimetersFilter narrows ListDosimeters. Zero fields are ignored.
type DosimetersFilter struct {
	IDs      []int64
	BoxID    int64
	ParentID int64
}

type DosimetersRepository interface {
	GetDosimeter(ctx context.Context, id int64) (*domain.Dosimeter, error)
	GetDosimeterByDosID(ctx context.Context, dosID string) (*domain.Dosimeter, error)
	ListDosimeters(ctx context.Context, filter DosimetersFilter) ([]*domain.Dosimeter, error)
	CreateDosimeter(ctx context.Context, d *domain.Dosimeter) (int64, error)
	UpdateDosimeter(ctx context.Context, d *domain.Dosimeter) error
	DeleteDosimeter(ctx context.Context, id int64) error
}

type CompoundsRepository interface {
	GetCompound(ctx context.Context, id int64) (*domain.Compound, error)
	GetCompoundByName(ctx context.Context, name string) (*domain.Compound, error)
	// ListCompounds is ordered by name.
	ListCompounds(ctx context.Context) ([]*domain.Compound, error)
	CreateCompound(ctx context.Context, c *domain.Compound) (int64, error)
	UpdateCompound(ctx context.Context, c *domain.Compound) error
	DeleteCompound(ctx context.Context, id int64) error
	ListCompoundElements(ctx context.Context, compoundID int64) ([]*domain.CompoundElement, error)
	// SaveCompoundElements replaces the composition of a compound.
	SaveCompoundElements(ctx context.Context, compoundID int64, items []*domain.CompoundElement) error

	GetElement(ctx context.Context, id int64) (*domain.Element, error)
	// ListElements is ordered by atomic number.
	ListElements(ctx context.Context) ([]*domain.Element, error)
	CreateElement(ctx context.Context, e *domain.Element) (int64, error)
}

// IrradiationsFilter narrows ListIrradiations. Zero fields are ignored.
type IrradiationsFilter struct {
	IDs          []int64
	SampleIDs    []int64
	DosimeterIDs []int64
	IrradTable   string
	Status       string
}

type IrradiationsRepository interface {
	GetIrradiation(ctx context.Context, id int64) (*domain.Irradiation, error)
	// ListIrradiations is ordered by updated_at desc, then id.
	ListIrradiations(ctx context.Context, filter IrradiationsFilter) ([]*domain.Irradiation, error)
	CreateIrradiation(ctx context.Context, irr *domain.Irradiation) (int64, error)
	UpdateIrradiation(ctx context.Context, irr *domain.Irradiation) error
	DeleteIrradiation(ctx context.Context, id int64) error
}

// FluenceFactorsRepository also serves fluence.FactorSource.
type FluenceFactorsRepository interface {
	GetFluenceFactor(ctx context.Context, id int64) (*domain.FluenceFactor, error)
	ListFluenceFactors(ctx context.Context) ([]*domain.FluenceFactor, error)
	CreateFluenceFactor(ctx context.Context, f *domain.FluenceFactor) (int64, error)
	UpdateFluenceFactor(ctx context.Context, f *domain.FluenceFactor) error
	DeleteFluenceFactor(ctx context.Context, id int64) error
	ListActiveFactors(ctx context.Context, table string, height, width float64) ([]*domain.FluenceFactor, error)
	EnsureDefaultFactor(ctx context.Context) (*domain.FluenceFactor, error)
}

// SecRepository stores beam monitor readings; it also serves fluence.SecSource.
type SecRepository interface {
	InsertSecReading(ctx context.Context, r *domain.SecReading) error
	SumSec(ctx context.Context, secID string, from, to time.Time) (float64, error)
	FirstLastPositiveSec(ctx context.Context, secID string, from, to time.Time) (first, last sql.NullTime, err error)
}

// Repos bundles one implementation of every repository.
type Repos struct {
	Users          UsersRepository
	Experiments    ExperimentsRepository
	Samples        SamplesRepository
	Boxes          BoxesRepository
	Dosimeters     DosimetersRepository
	Compounds      CompoundsRepository
	Irradiations   IrradiationsRepository
	FluenceFactors FluenceFactorsRepository
	Sec            SecRepository
}

// NewPostgresRepos wires every repository to db.
func NewPostgresRepos(db *sql.DB) *Repos {
	return &Repos{
		Users:          NewPostgresUsersRepository(db),
		Experiments:    NewPostgresExperimentsRepository(db),
		Samples:        NewPostgresSamplesRepository(db),
		Boxes:          NewPostgresBoxesRepository(db),
		Dosimeters:     NewPostgresDosimetersRepository(db),
		Compounds:      NewPostgresCompoundsRepository(db),
		Irradiations:   NewPostgresIrradiationsRepository(db),
		FluenceFactors: NewPostgresFluenceFactorsRepository(db),
		Sec:            NewPostgresSecRepository(db),
	}
}

// NewMemoryRepos backs every repository with one MemoryRepo.
func NewMemoryRepos() *Repos {
	m := NewMemoryRepo()
	return &Repos{
		Users:          m,
		Experiments:    m,
		Samples:        m,
		Boxes:          m,
		Dosimeters:     m,
		Compounds:      m,
		Irradiations:   m,
		FluenceFactors: m,
		Sec:            m,
	}
}
