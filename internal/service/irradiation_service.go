package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/domain"
	"irrad-data/internal/equipment"
	"irrad-data/internal/fluence"
	"irrad-data/internal/listing"
	"irrad-data/internal/repository"
)

const maxBeamToggle = 10

// IrradiationService manages irradiations, their beam life cycle and fluence factors.
type IrradiationService struct {
	deps  *Deps
	perms *Permissions
	calc  *fluence.Calculator
}

func NewIrradiationService(d *Deps, perms *Permissions) *IrradiationService {
	return &IrradiationService{
		deps:  d,
		perms: perms,
		calc:  &fluence.Calculator{Sec: d.Repos.Sec, Factors: d.Repos.FluenceFactors, Now: d.now},
	}
}

// IrradiationInput is the irradiation form.
type IrradiationInput struct {
	SampleID              int64      `json:"sample_id"`
	DosimeterID           int64      `json:"dosimeter_id"`
	PreviousIrradiationID int64      `json:"previous_irradiation_id"`
	IrradTable            string     `json:"irrad_table"`
	TablePosition         string     `json:"table_position"`
	DateIn                *time.Time `json:"date_in"`
	DateOut               *time.Time `json:"date_out"`
	DosPosition           int64      `json:"dos_position"`
	MeasuredFluence       *float64   `json:"measured_fluence"`
	FluenceError          *float64   `json:"fluence_error"`
	IsScan                bool       `json:"is_scan"`
	Comments              string     `json:"comments"`
}

func (s *IrradiationService) validate(ctx context.Context, in *IrradiationInput) error {
	repos := s.deps.Repos
	if in.DosimeterID <= 0 {
		return invalid(MsgInvalid)
	}
	if _, err := repos.Dosimeters.GetDosimeter(ctx, in.DosimeterID); err != nil {
		return s.missing(err, "dosimeter")
	}
	if in.SampleID > 0 {
		if _, err := repos.Samples.GetSample(ctx, in.SampleID); err != nil {
			return s.missing(err, "sample")
		}
	}
	if in.PreviousIrradiationID > 0 {
		if _, err := repos.Irradiations.GetIrradiation(ctx, in.PreviousIrradiationID); err != nil {
			return s.missing(err, "previous irradiation")
		}
	}
	if in.IrradTable != "" && !domain.Contains(domain.IrradTables, in.IrradTable) {
		return invalid(MsgInvalid)
	}
	if in.TablePosition != "" && !domain.IsValidTablePosition(in.TablePosition) {
		return invalid(MsgInvalid)
	}
	if in.DateIn != nil && in.DateOut != nil && in.DateOut.Before(*in.DateIn) {
		return invalid(MsgInvalid)
	}
	if in.DateOut != nil && in.DateIn == nil {
		return invalid(MsgInvalid)
	}
	if err := listing.CheckInRange(float64(in.DosPosition), 0); err != nil {
		return err
	}
	for _, v := range []*float64{in.MeasuredFluence, in.FluenceError} {
		if v == nil {
			continue
		}
		if err := listing.CheckInRange(*v, 0); err != nil {
			return err
		}
	}
	return nil
}

// missing turns an unknown reference into the invalid form alert.
func (s *IrradiationService) missing(err error, what string) error {
	if isNoRows(err) {
		return invalid(MsgInvalid)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func optTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func optFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (in *IrradiationInput) apply(irr *domain.Irradiation) {
	irr.SampleID = domain.NullID(in.SampleID)
	irr.DosimeterID = domain.NullID(in.DosimeterID)
	irr.PreviousIrradiationID = domain.NullID(in.PreviousIrradiationID)
	irr.IrradTable = domain.NullString(in.IrradTable)
	irr.TablePosition = domain.NullString(in.TablePosition)
	irr.DateIn = optTime(in.DateIn)
	irr.DateOut = optTime(in.DateOut)
	irr.DosPosition = domain.NullID(in.DosPosition)
	irr.MeasuredFluence = optFloat(in.MeasuredFluence)
	irr.FluenceError = optFloat(in.FluenceError)
	irr.IsScan = in.IsScan
	irr.Comments = domain.NullString(in.Comments)
}

func (s *IrradiationService) get(ctx context.Context, id int64) (*domain.Irradiation, error) {
	irr, err := s.deps.Repos.Irradiations.GetIrradiation(ctx, id)
	if err != nil {
		return nil, notFound(err, "irradiation", id)
	}
	return irr, nil
}

// links loads the parent irradiation and the dosimeter of irr, when set.
func (s *IrradiationService) links(ctx context.Context, irr *domain.Irradiation) (*domain.Irradiation, *domain.Dosimeter, error) {
	var (
		parent *domain.Irradiation
		dos    *domain.Dosimeter
		err    error
	)
	if irr.PreviousIrradiationID.Valid {
		parent, err = s.deps.Repos.Irradiations.GetIrradiation(ctx, irr.PreviousIrradiationID.Int64)
		if err != nil && !isNoRows(err) {
			return nil, nil, fmt.Errorf("failed to get previous irradiation: %w", err)
		}
	}
	if irr.DosimeterID.Valid {
		dos, err = s.deps.Repos.Dosimeters.GetDosimeter(ctx, irr.DosimeterID.Int64)
		if err != nil && !isNoRows(err) {
			return nil, nil, fmt.Errorf("failed to get dosimeter: %w", err)
		}
	}
	return parent, dos, nil
}

// applyState recomputes the beam data of irr from its dates.
func (s *IrradiationService) applyState(ctx context.Context, irr *domain.Irradiation) error {
	parent, dos, err := s.links(ctx, irr)
	if err != nil {
		return err
	}
	r, err := s.calc.Calculate(ctx, irr, parent, dos, true)
	if err != nil {
		return err
	}
	if !fluence.Apply(irr, r) {
		s.deps.Logger.Warn("Irradiation state cannot be derived", zap.Int64("irradiation_id", irr.ID))
	}
	return nil
}

// IrradiationRow is an irradiation with the equipment ids it refers to.
type IrradiationRow struct {
	Irradiation map[string]any `json:"irradiation"`
	Sample      string         `json:"sample,omitempty"`
	SetID       string         `json:"set_id,omitempty"`
	DosID       string         `json:"dos_id,omitempty"`
	fields      []string
}

func (s *IrradiationService) rows(ctx context.Context, irrs []*domain.Irradiation) ([]IrradiationRow, error) {
	samples := map[int64]*domain.Sample{}
	dosimeters := map[int64]*domain.Dosimeter{}
	out := make([]IrradiationRow, 0, len(irrs))
	for _, irr := range irrs {
		row := IrradiationRow{Irradiation: irr.ToJSON()}
		if irr.SampleID.Valid {
			sm, ok := samples[irr.SampleID.Int64]
			if !ok {
				got, err := s.deps.Repos.Samples.GetSample(ctx, irr.SampleID.Int64)
				if err != nil && !isNoRows(err) {
					return nil, fmt.Errorf("failed to get sample: %w", err)
				}
				sm, samples[irr.SampleID.Int64] = got, got
			}
			if sm != nil {
				row.Sample, row.SetID = sm.Name, sm.SetID.String
			}
		}
		if irr.DosimeterID.Valid {
			d, ok := dosimeters[irr.DosimeterID.Int64]
			if !ok {
				got, err := s.deps.Repos.Dosimeters.GetDosimeter(ctx, irr.DosimeterID.Int64)
				if err != nil && !isNoRows(err) {
					return nil, fmt.Errorf("failed to get dosimeter: %w", err)
				}
				d, dosimeters[irr.DosimeterID.Int64] = got, got
			}
			if d != nil {
				row.DosID = d.DosID
			}
		}
		row.fields = []string{row.Sample, row.SetID, row.DosID, irr.Status, irr.IrradTable.String,
			irr.TablePosition.String, irr.Comments.String}
		out = append(out, row)
	}
	return out, nil
}

func irradiationRowFields(r IrradiationRow) []string { return r.fields }

func (s *IrradiationService) list(ctx context.Context, actor *domain.User, filter repository.IrradiationsFilter, req ListRequest) (*listing.Page[IrradiationRow], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	irrs, err := s.deps.Repos.Irradiations.ListIrradiations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations: %w", err)
	}
	rows, err := s.rows(ctx, irrs)
	if err != nil {
		return nil, err
	}
	p := pageRows(listing.Filter(rows, req.Query, irradiationRowFields), req)
	return &p, nil
}

func (s *IrradiationService) List(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[IrradiationRow], error) {
	return s.list(ctx, actor, repository.IrradiationsFilter{}, req)
}

// ByTable lists the irradiations of one irradiation table.
func (s *IrradiationService) ByTable(ctx context.Context, actor *domain.User, table string, req ListRequest) (*listing.Page[IrradiationRow], error) {
	table = strings.TrimSpace(table)
	if table == "" {
		if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
			return nil, err
		}
		p := pageRows([]IrradiationRow{}, req)
		return &p, nil
	}
	return s.list(ctx, actor, repository.IrradiationsFilter{IrradTable: table}, req)
}

// DosimetryResults lists the completed irradiations ordered by id.
func (s *IrradiationService) DosimetryResults(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[IrradiationRow], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	irrs, err := s.deps.Repos.Irradiations.ListIrradiations(ctx, repository.IrradiationsFilter{Status: domain.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations: %w", err)
	}
	sort.Slice(irrs, func(i, j int) bool { return irrs[i].ID < irrs[j].ID })
	rows, err := s.rows(ctx, irrs)
	if err != nil {
		return nil, err
	}
	p := pageRows(listing.Filter(rows, req.Query, irradiationRowFields), req)
	return &p, nil
}

func (s *IrradiationService) Create(ctx context.Context, actor *domain.User, in IrradiationInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	irr := &domain.Irradiation{Status: domain.StatusRegistered}
	in.apply(irr)
	irr.Touch(actor.ID, s.deps.now())
	if _, err := s.deps.Repos.Irradiations.CreateIrradiation(ctx, irr); err != nil {
		return nil, fmt.Errorf("failed to create irradiation: %w", err)
	}
	if err := s.save(ctx, irr); err != nil {
		return nil, err
	}
	return done(MsgIrradiationCreated, irr.ToJSON()), nil
}

func (s *IrradiationService) Update(ctx context.Context, actor *domain.User, id int64, in IrradiationInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	irr, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.PreviousIrradiationID == id {
		return nil, invalid(MsgInvalid)
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	in.apply(irr)
	irr.Touch(actor.ID, s.deps.now())
	if err := s.save(ctx, irr); err != nil {
		return nil, err
	}
	return done(MsgIrradiationUpdated, irr.ToJSON()), nil
}

// save applies the state of irr and stores it.
func (s *IrradiationService) save(ctx context.Context, irr *domain.Irradiation) error {
	if err := s.applyState(ctx, irr); err != nil {
		return err
	}
	if err := s.deps.Repos.Irradiations.UpdateIrradiation(ctx, irr); err != nil {
		return fmt.Errorf("failed to save irradiation %d: %w", irr.ID, err)
	}
	return nil
}

func (s *IrradiationService) Delete(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Irradiations.GetIrradiation); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.Irradiations.DeleteIrradiation(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete irradiation %d: %w", id, err)
		}
	}
	return done(MsgIrradiationDeleted, nil), nil
}

func isBeamTransition(from, to string) bool {
	return strings.Contains(strings.ToLower(from), "beam") || strings.Contains(strings.ToLower(to), "beam")
}

// UpdateStatus sets the status of several irradiations. Changes into or out of the
// beam go through the beam life cycle; other changes only refresh the state.
func (s *IrradiationService) UpdateStatus(ctx context.Context, actor *domain.User, sel Selection, status string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Irradiations.GetIrradiation); err != nil {
		return nil, err
	}
	if !domain.Contains(domain.IrradiationStatuses, status) {
		return nil, invalid(MsgInvalid)
	}
	for _, id := range sel.IDs {
		irr, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if irr.Status == status {
			continue
		}
		if isBeamTransition(irr.Status, status) {
			if err := s.setBeamState(ctx, actor, irr, status); err != nil {
				return nil, err
			}
			continue
		}
		irr.Status = status
		irr.Touch(actor.ID, s.deps.now())
		if err := s.save(ctx, irr); err != nil {
			return nil, err
		}
	}
	return done(MsgSuccess, nil), nil
}

// SetBeam moves up to ten irradiations into or out of the beam.
func (s *IrradiationService) SetBeam(ctx context.Context, actor *domain.User, sel Selection, inBeam bool) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, maxBeamToggle, s.deps.Repos.Irradiations.GetIrradiation); err != nil {
		return nil, err
	}
	status := domain.StatusOutBeam
	if inBeam {
		status = domain.StatusInBeam
	}
	for _, id := range sel.IDs {
		irr, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.setBeamState(ctx, actor, irr, status); err != nil {
			return nil, err
		}
	}
	return done(MsgSuccess, nil), nil
}

// setBeamState moves irr into or out of the beam. An irradiation already taken out
// is continued by a new InBeam irradiation pointing back at it.
func (s *IrradiationService) setBeamState(ctx context.Context, actor *domain.User, irr *domain.Irradiation, status string) error {
	toInBeam := status == domain.StatusInBeam
	now := s.deps.now()

	if irr.DateOut.Valid {
		if !toInBeam || irr.Status == domain.StatusInBeam {
			return nil
		}
		next := &domain.Irradiation{
			SampleID:              irr.SampleID,
			DosimeterID:           irr.DosimeterID,
			PreviousIrradiationID: domain.NullID(irr.ID),
			DosPosition:           irr.DosPosition,
			IrradTable:            irr.IrradTable,
			TablePosition:         irr.TablePosition,
			Status:                domain.StatusInBeam,
			DateIn:                domain.NullTime(now),
		}
		next.Touch(actor.ID, now)
		if _, err := s.deps.Repos.Irradiations.CreateIrradiation(ctx, next); err != nil {
			return fmt.Errorf("failed to continue irradiation %d: %w", irr.ID, err)
		}
		s.deps.Logger.Info("Irradiation continued in beam",
			zap.Int64("previous_irradiation_id", irr.ID), zap.Int64("irradiation_id", next.ID))
		return s.save(ctx, next)
	}

	switch {
	case toInBeam && irr.Status != domain.StatusInBeam:
		irr.DateIn = domain.NullTime(now)
		irr.DateOut = sql.NullTime{}
		irr.DateFirstSec = sql.NullTime{}
		irr.DateLastSec = sql.NullTime{}
		irr.Status = status
	case !toInBeam && irr.Status == domain.StatusInBeam:
		irr.DateOut = domain.NullTime(now)
		first, last, err := s.calc.SecDates(ctx, irr)
		if err != nil {
			return err
		}
		irr.DateFirstSec, irr.DateLastSec = first, last
		irr.Status = status
	}
	irr.Touch(actor.ID, now)
	return s.save(ctx, irr)
}

// BeamData is the refreshed beam figures of one irradiation.
type BeamData struct {
	ID               int64     `json:"pk"`
	Sec              int64     `json:"sec"`
	EstimatedFluence float64   `json:"estimated_fluence"`
	FactorID         int64     `json:"factor"`
	FactorValue      float64   `json:"factor_value"`
	InBeam           bool      `json:"in_beam"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UpdateSec refreshes the accumulated SEC and fluence of the selected irradiations in beam.
func (s *IrradiationService) UpdateSec(ctx context.Context, actor *domain.User, sel Selection) ([]BeamData, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	out := []BeamData{}
	for _, id := range sel.IDs {
		irr, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(irr.Status, domain.StatusInBeam) {
			continue
		}
		b, err := s.refreshSec(ctx, irr)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// RefreshInBeam runs the SEC refresh over every irradiation currently in beam.
// It is the background counterpart of UpdateSec and carries no actor.
func (s *IrradiationService) RefreshInBeam(ctx context.Context) ([]BeamData, error) {
	irrs, err := s.deps.Repos.Irradiations.ListIrradiations(ctx, repository.IrradiationsFilter{Status: domain.StatusInBeam})
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations in beam: %w", err)
	}
	out := make([]BeamData, 0, len(irrs))
	for _, irr := range irrs {
		b, err := s.refreshSec(ctx, irr)
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *IrradiationService) refreshSec(ctx context.Context, irr *domain.Irradiation) (BeamData, error) {
	parent, dos, err := s.links(ctx, irr)
	if err != nil {
		return BeamData{}, err
	}
	r, err := s.calc.Calculate(ctx, irr, parent, dos, false)
	if err != nil {
		return BeamData{}, err
	}
	irr.Sec = sql.NullInt64{Int64: fluence.SecCount(r.Sec), Valid: true}
	irr.EstimatedFluence = sql.NullFloat64{Float64: r.EstimatedFluence, Valid: true}
	irr.FluenceFactorID = domain.NullID(r.Factor.ID)
	if err := s.deps.Repos.Irradiations.UpdateIrradiation(ctx, irr); err != nil {
		return BeamData{}, fmt.Errorf("failed to update sec of irradiation %d: %w", irr.ID, err)
	}
	return BeamData{
		ID:               irr.ID,
		Sec:              irr.Sec.Int64,
		EstimatedFluence: r.EstimatedFluence,
		FactorID:         r.Factor.ID,
		FactorValue:      r.Factor.Value.Float64,
		InBeam:           irr.Status == domain.StatusInBeam,
		UpdatedAt:        s.deps.now(),
	}, nil
}

// GroupIrradiationInput places a group of samples behind one dosimeter.
type GroupIrradiationInput struct {
	DosimeterID   int64  `json:"dosimeter_id"`
	IrradTable    string `json:"irrad_table"`
	TablePosition string `json:"table_position"`
}

// CreateGroup registers one irradiation per selected sample of an experiment.
func (s *IrradiationService) CreateGroup(ctx context.Context, actor *domain.User, experimentID int64, sel Selection, in GroupIrradiationInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.Samples.GetSample); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{IDs: sel.IDs})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	if err := s.perms.RequireSamplesOf(ctx, actor, experimentID, samples); err != nil {
		return nil, err
	}
	for _, sm := range samples {
		if !equipment.Is(sm.SetID.String, equipment.KindSample) {
			return nil, invalid(MsgIrradiationInvalidSets)
		}
	}
	form := IrradiationInput{DosimeterID: in.DosimeterID, IrradTable: in.IrradTable, TablePosition: in.TablePosition, DosPosition: 1}
	if err := s.validate(ctx, &form); err != nil {
		return nil, err
	}
	created := make([]map[string]any, 0, len(samples))
	for _, sm := range samples {
		form.SampleID = sm.ID
		irr := &domain.Irradiation{Status: domain.StatusRegistered}
		form.apply(irr)
		irr.Touch(actor.ID, s.deps.now())
		if _, err := s.deps.Repos.Irradiations.CreateIrradiation(ctx, irr); err != nil {
			return nil, fmt.Errorf("failed to create irradiation of sample %d: %w", sm.ID, err)
		}
		if err := s.save(ctx, irr); err != nil {
			return nil, err
		}
		created = append(created, irr.ToJSON())
	}
	return done(MsgIrradiationGroup, created), nil
}

// FactorInput is the fluence factor form.
type FactorInput struct {
	Value           float64 `json:"value"`
	IrradTable      string  `json:"irrad_table"`
	DosimeterHeight float64 `json:"dosimeter_height"`
	DosimeterWidth  float64 `json:"dosimeter_width"`
	IsScan          bool    `json:"is_scan"`
	Status          string  `json:"status"`
	Nuclide         string  `json:"nuclide"`
}

func (in *FactorInput) validate() error {
	for _, v := range []float64{in.Value, in.DosimeterHeight, in.DosimeterWidth} {
		if err := listing.CheckInRange(v, 0); err != nil {
			return err
		}
	}
	if in.IrradTable != "" && !domain.Contains(domain.IrradTables, in.IrradTable) {
		return invalid(MsgInvalid)
	}
	if in.Status == "" {
		in.Status = domain.StatusActive
	}
	if !domain.Contains(domain.FluenceFactorStatuses, in.Status) {
		return invalid(MsgInvalid)
	}
	if in.Nuclide != "" && !domain.Contains(domain.Nuclides, in.Nuclide) {
		return invalid(MsgInvalid)
	}
	return nil
}

func optPositive(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func (in *FactorInput) apply(f *domain.FluenceFactor) {
	f.Value = nullFloat(in.Value)
	f.IrradTable = domain.NullString(in.IrradTable)
	f.DosimeterHeight = optPositive(in.DosimeterHeight)
	f.DosimeterWidth = optPositive(in.DosimeterWidth)
	f.IsScan = in.IsScan
	f.Status = in.Status
	f.Nuclide = in.Nuclide
}

func factorFields(f *domain.FluenceFactor) []string {
	return []string{f.IrradTable.String, f.Status, f.Nuclide}
}

func (s *IrradiationService) Factors(ctx context.Context, actor *domain.User, req ListRequest) (*listing.Page[map[string]any], error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	factors, err := s.deps.Repos.FluenceFactors.ListFluenceFactors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fluence factors: %w", err)
	}
	p := page(factors, req, factorFields)
	return &p, nil
}

func (s *IrradiationService) CreateFactor(ctx context.Context, actor *domain.User, in FactorInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.deps.now()
	f := &domain.FluenceFactor{CreatedAt: now, UpdatedAt: now}
	in.apply(f)
	if _, err := s.deps.Repos.FluenceFactors.CreateFluenceFactor(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create fluence factor: %w", err)
	}
	return done(MsgFactorCreated, f.ToJSON()), nil
}

func (s *IrradiationService) UpdateFactor(ctx context.Context, actor *domain.User, id int64, in FactorInput) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	f, err := s.deps.Repos.FluenceFactors.GetFluenceFactor(ctx, id)
	if err != nil {
		return nil, notFound(err, "fluence factor", id)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(f)
	f.UpdatedAt = s.deps.now()
	if err := s.deps.Repos.FluenceFactors.UpdateFluenceFactor(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to update fluence factor: %w", err)
	}
	return done(MsgFactorUpdated, f.ToJSON()), nil
}

func (s *IrradiationService) DeleteFactors(ctx context.Context, actor *domain.User, sel Selection) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	if err := checkSelection(ctx, sel.IDs, listing.Group, 0, s.deps.Repos.FluenceFactors.GetFluenceFactor); err != nil {
		return nil, err
	}
	for _, id := range sel.IDs {
		if err := s.deps.Repos.FluenceFactors.DeleteFluenceFactor(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete fluence factor %d: %w", id, err)
		}
	}
	return done(MsgFactorDeleted, nil), nil
}
