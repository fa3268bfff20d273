package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"irrad-data/internal/domain"
)

// ---- samples ----

func (m *MemoryRepo) GetSample(_ context.Context, id int64) (*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.samples, id, "sample")
}

func (m *MemoryRepo) GetSampleByName(_ context.Context, name string) (*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.samples {
		if s.Name == name {
			return clone(s), nil
		}
	}
	return nil, fmt.Errorf("sample not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListSamples(_ context.Context, filter SamplesFilter) ([]*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := idSet(filter.IDs)
	return collect(m.samples, func(s *domain.Sample) bool {
		switch {
		case ids != nil && !ids[s.ID]:
			return false
		case filter.ExperimentID > 0 && !refersTo(s.ExperimentID, filter.ExperimentID):
			return false
		case filter.BoxID > 0 && !refersTo(s.BoxID, filter.BoxID):
			return false
		}
		return true
	}, func(a, b *domain.Sample) bool {
		return newerFirst(a.UpdatedAt, b.UpdatedAt, a.Name, b.Name)
	}), nil
}

func (m *MemoryRepo) CreateSample(_ context.Context, s *domain.Sample) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.samples {
		if x.Name == s.Name {
			return 0, fmt.Errorf("failed to create sample: name %q already exists", s.Name)
		}
	}
	s.ID = m.id()
	m.samples[s.ID] = clone(s)
	return s.ID, nil
}

func (m *MemoryRepo) UpdateSample(_ context.Context, s *domain.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.samples, s.ID, s, "sample")
}

func (m *MemoryRepo) DeleteSample(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := del(m.samples, id, "sample"); err != nil {
		return err
	}
	for k, l := range m.layers {
		if l.SampleID == id {
			delete(m.layers, k)
		}
	}
	for k, o := range m.occupancies {
		if o.SampleID == id {
			delete(m.occupancies, k)
		}
	}
	for k, a := range m.archive {
		if a.SampleID == id {
			delete(m.archive, k)
		}
	}
	for k, irr := range m.irradiations {
		if irr.SampleID.Valid && irr.SampleID.Int64 == id {
			delete(m.irradiations, k)
		}
	}
	return nil
}

func (m *MemoryRepo) ListSetIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := []string{}
	for _, s := range m.samples {
		if s.SetID.Valid && s.SetID.String != "" {
			ids = append(ids, s.SetID.String)
		}
	}
	return ids, nil
}

func (m *MemoryRepo) ListLayers(_ context.Context, sampleID int64) ([]*domain.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.layers,
		func(l *domain.Layer) bool { return l.SampleID == sampleID },
		func(a, b *domain.Layer) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) ListLayersByCompound(_ context.Context, compoundID int64) ([]*domain.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.layers,
		func(l *domain.Layer) bool { return l.CompoundID.Valid && l.CompoundID.Int64 == compoundID },
		func(a, b *domain.Layer) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) SaveLayers(_ context.Context, sampleID int64, layers []*domain.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, l := range m.layers {
		if l.SampleID == sampleID {
			delete(m.layers, k)
		}
	}
	for _, l := range layers {
		l.ID, l.SampleID = m.id(), sampleID
		m.layers[l.ID] = clone(l)
	}
	return nil
}

func (m *MemoryRepo) ListOccupancies(_ context.Context, sampleID int64) ([]*domain.Occupancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.occupancies,
		func(o *domain.Occupancy) bool { return o.SampleID == sampleID },
		func(a, b *domain.Occupancy) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) SaveOccupancy(_ context.Context, o *domain.Occupancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, x := range m.occupancies {
		if x.SampleID == o.SampleID {
			delete(m.occupancies, k)
		}
	}
	o.ID = m.id()
	m.occupancies[o.ID] = clone(o)
	return nil
}

// ---- boxes ----

func (m *MemoryRepo) GetBox(_ context.Context, id int64) (*domain.Box, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.boxes, id, "box")
}

func (m *MemoryRepo) GetBoxByBoxID(_ context.Context, boxID string) (*domain.Box, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.boxes {
		if b.BoxID == boxID {
			return clone(b), nil
		}
	}
	return nil, fmt.Errorf("box not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListBoxes(_ context.Context) ([]*domain.Box, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.boxes, nil, func(a, b *domain.Box) bool {
		return newerFirst(a.UpdatedAt, b.UpdatedAt, a.BoxID, b.BoxID)
	}), nil
}

func (m *MemoryRepo) CreateBox(_ context.Context, b *domain.Box) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.boxes {
		if x.BoxID == b.BoxID {
			return 0, fmt.Errorf("failed to create box: box_id %q already exists", b.BoxID)
		}
	}
	b.ID = m.id()
	m.boxes[b.ID] = clone(b)
	return b.ID, nil
}

func (m *MemoryRepo) UpdateBox(_ context.Context, b *domain.Box) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.boxes, b.ID, b, "box")
}

func (m *MemoryRepo) DeleteBox(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := del(m.boxes, id, "box"); err != nil {
		return err
	}
	for _, s := range m.samples {
		if refersTo(s.BoxID, id) {
			s.BoxID = sql.NullInt64{}
		}
	}
	for _, d := range m.dosimeters {
		if refersTo(d.BoxID, id) {
			d.BoxID = sql.NullInt64{}
		}
	}
	return nil
}

// ---- dosimeters ----

func (m *MemoryRepo) GetDosimeter(_ context.Context, id int64) (*domain.Dosimeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.dosimeters, id, "dosimeter")
}

func (m *MemoryRepo) GetDosimeterByDosID(_ context.Context, dosID string) (*domain.Dosimeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.dosimeters {
		if d.DosID == dosID {
			return clone(d), nil
		}
	}
	return nil, fmt.Errorf("dosimeter not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListDosimeters(_ context.Context, filter DosimetersFilter) ([]*domain.Dosimeter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := idSet(filter.IDs)
	return collect(m.dosimeters, func(d *domain.Dosimeter) bool {
		switch {
		case ids != nil && !ids[d.ID]:
			return false
		case filter.BoxID > 0 && !refersTo(d.BoxID, filter.BoxID):
			return false
		case filter.ParentID > 0 && !refersTo(d.ParentDosimeterID, filter.ParentID):
			return false
		}
		return true
	}, func(a, b *domain.Dosimeter) bool {
		return newerFirst(a.UpdatedAt, b.UpdatedAt, a.DosID, b.DosID)
	}), nil
}

func (m *MemoryRepo) CreateDosimeter(_ context.Context, d *domain.Dosimeter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.dosimeters {
		if x.DosID == d.DosID {
			return 0, fmt.Errorf("failed to create dosimeter: dos_id %q already exists", d.DosID)
		}
	}
	d.ID = m.id()
	m.dosimeters[d.ID] = clone(d)
	return d.ID, nil
}

func (m *MemoryRepo) UpdateDosimeter(_ context.Context, d *domain.Dosimeter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.dosimeters, d.ID, d, "dosimeter")
}

func (m *MemoryRepo) DeleteDosimeter(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := del(m.dosimeters, id, "dosimeter"); err != nil {
		return err
	}
	for _, d := range m.dosimeters {
		if refersTo(d.ParentDosimeterID, id) {
			d.ParentDosimeterID = sql.NullInt64{}
		}
	}
	for k, irr := range m.irradiations {
		if refersTo(irr.DosimeterID, id) {
			delete(m.irradiations, k)
		}
	}
	return nil
}

// ---- compounds and elements ----

func (m *MemoryRepo) withAssociatedSamples(c *domain.Compound) *domain.Compound {
	samples := map[int64]bool{}
	for _, l := range m.layers {
		if l.CompoundID.Valid && l.CompoundID.Int64 == c.ID {
			samples[l.SampleID] = true
		}
	}
	c.NumAssociatedSamples = len(samples)
	return c
}

func (m *MemoryRepo) GetCompound(_ context.Context, id int64) (*domain.Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := get(m.compounds, id, "compound")
	if err != nil {
		return nil, err
	}
	return m.withAssociatedSamples(c), nil
}

func (m *MemoryRepo) GetCompoundByName(_ context.Context, name string) (*domain.Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.compounds {
		if c.Name == name {
			return m.withAssociatedSamples(clone(c)), nil
		}
	}
	return nil, fmt.Errorf("compound not found: %w", sql.ErrNoRows)
}

func (m *MemoryRepo) ListCompounds(_ context.Context) ([]*domain.Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := collect(m.compounds, nil, func(a, b *domain.Compound) bool { return a.Name < b.Name })
	for _, c := range out {
		m.withAssociatedSamples(c)
	}
	return out, nil
}

func (m *MemoryRepo) CreateCompound(_ context.Context, c *domain.Compound) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.compounds {
		if x.Name == c.Name {
			return 0, fmt.Errorf("failed to create compound: name %q already exists", c.Name)
		}
	}
	c.ID = m.id()
	m.compounds[c.ID] = clone(c)
	return c.ID, nil
}

func (m *MemoryRepo) UpdateCompound(_ context.Context, c *domain.Compound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.compounds, c.ID, c, "compound")
}

func (m *MemoryRepo) DeleteCompound(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := del(m.compounds, id, "compound"); err != nil {
		return err
	}
	for k, ce := range m.compElements {
		if ce.CompoundID == id {
			delete(m.compElements, k)
		}
	}
	return nil
}

func (m *MemoryRepo) ListCompoundElements(_ context.Context, compoundID int64) ([]*domain.CompoundElement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.compElements,
		func(ce *domain.CompoundElement) bool { return ce.CompoundID == compoundID },
		func(a, b *domain.CompoundElement) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) SaveCompoundElements(_ context.Context, compoundID int64, items []*domain.CompoundElement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, ce := range m.compElements {
		if ce.CompoundID == compoundID {
			delete(m.compElements, k)
		}
	}
	for _, ce := range items {
		ce.ID, ce.CompoundID = m.id(), compoundID
		m.compElements[ce.ID] = clone(ce)
	}
	return nil
}

func (m *MemoryRepo) GetElement(_ context.Context, id int64) (*domain.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.elements, id, "element")
}

func (m *MemoryRepo) ListElements(_ context.Context) ([]*domain.Element, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.elements, nil, func(a, b *domain.Element) bool { return a.AtomicNumber < b.AtomicNumber }), nil
}

func (m *MemoryRepo) CreateElement(_ context.Context, e *domain.Element) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.elements[e.ID] = clone(e)
	return e.ID, nil
}

// ---- irradiations ----

func (m *MemoryRepo) GetIrradiation(_ context.Context, id int64) (*domain.Irradiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.irradiations, id, "irradiation")
}

func (m *MemoryRepo) ListIrradiations(_ context.Context, filter IrradiationsFilter) ([]*domain.Irradiation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, samples, dosimeters := idSet(filter.IDs), idSet(filter.SampleIDs), idSet(filter.DosimeterIDs)
	return collect(m.irradiations, func(irr *domain.Irradiation) bool {
		switch {
		case ids != nil && !ids[irr.ID]:
			return false
		case samples != nil && !samples[irr.SampleID.Int64]:
			return false
		case dosimeters != nil && !dosimeters[irr.DosimeterID.Int64]:
			return false
		case filter.IrradTable != "" && irr.IrradTable.String != filter.IrradTable:
			return false
		case filter.Status != "" && irr.Status != filter.Status:
			return false
		}
		return true
	}, func(a, b *domain.Irradiation) bool {
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	}), nil
}

func (m *MemoryRepo) CreateIrradiation(_ context.Context, irr *domain.Irradiation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	irr.ID = m.id()
	m.irradiations[irr.ID] = clone(irr)
	return irr.ID, nil
}

func (m *MemoryRepo) UpdateIrradiation(_ context.Context, irr *domain.Irradiation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return put(m.irradiations, irr.ID, irr, "irradiation")
}

func (m *MemoryRepo) DeleteIrradiation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return del(m.irradiations, id, "irradiation")
}

// ---- fluence factors ----

func (m *MemoryRepo) GetFluenceFactor(_ context.Context, id int64) (*domain.FluenceFactor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return get(m.factors, id, "fluence factor")
}

func (m *MemoryRepo) ListFluenceFactors(_ context.Context) ([]*domain.FluenceFactor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.factors, nil, func(a, b *domain.FluenceFactor) bool {
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	}), nil
}

func (m *MemoryRepo) ListActiveFactors(_ context.Context, table string, height, width float64) ([]*domain.FluenceFactor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.factors, func(f *domain.FluenceFactor) bool {
		return f.Status == domain.StatusActive &&
			f.IrradTable.Valid && f.IrradTable.String == table &&
			f.DosimeterHeight.Valid && f.DosimeterHeight.Float64 == height &&
			f.DosimeterWidth.Valid && f.DosimeterWidth.Float64 == width
	}, func(a, b *domain.FluenceFactor) bool { return a.ID < b.ID }), nil
}

func (m *MemoryRepo) EnsureDefaultFactor(_ context.Context) (*domain.FluenceFactor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *domain.FluenceFactor
	for _, f := range m.factors {
		if f.Value.Valid && f.Value.Float64 == 1 && (found == nil || f.ID < found.ID) {
			found = f
		}
	}
	if found != nil {
		return clone(found), nil
	}
	now := time.Now().UTC()
	def := &domain.FluenceFactor{
		ID:        m.id(),
		Value:     sql.NullFloat64{Float64: 1, Valid: true},
		Status:    domain.StatusActive,
		Nuclide:   domain.Nuclides[0],
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.factors[def.ID] = clone(def)
	return def, nil
}

func (m *MemoryRepo) CreateFluenceFactor(_ context.Context, f *domain.FluenceFactor) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	f.ID, f.CreatedAt, f.UpdatedAt = m.id(), now, now
	m.factors[f.ID] = clone(f)
	return f.ID, nil
}

func (m *MemoryRepo) UpdateFluenceFactor(_ context.Context, f *domain.FluenceFactor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.UpdatedAt = time.Now().UTC()
	return put(m.factors, f.ID, f, "fluence factor")
}

func (m *MemoryRepo) DeleteFluenceFactor(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return del(m.factors, id, "fluence factor")
}

func refersTo(ref sql.NullInt64, id int64) bool { return ref.Valid && ref.Int64 == id }
