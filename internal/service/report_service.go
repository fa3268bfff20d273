package service

import (
	"context"
	"fmt"
	"sort"

	"irrad-data/internal/domain"
	"irrad-data/internal/export"
	"irrad-data/internal/repository"
)

// Report is a rendered xlsx workbook.
type Report struct {
	FileName string
	Data     []byte
}

// ContentTypeXLSX is the media type of Report.Data.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportService struct {
	deps  *Deps
	perms *Permissions
}

func NewReportService(d *Deps, perms *Permissions) *ReportService {
	return &ReportService{deps: d, perms: perms}
}

func (s *ReportService) render(prefix string, sheets ...export.Sheet) (*Report, error) {
	data, err := export.Workbook(sheets...)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", prefix, err)
	}
	return &Report{FileName: export.FileName(prefix, s.deps.now()), Data: data}, nil
}

func (s *ReportService) Boxes(ctx context.Context, actor *domain.User) (*Report, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	boxes, err := s.deps.Repos.Boxes.ListBoxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	return s.render("boxes", export.BoxesSheet(boxes))
}

func (s *ReportService) Dosimeters(ctx context.Context, actor *domain.User) (*Report, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	dosimeters, err := s.deps.Repos.Dosimeters.ListDosimeters(ctx, repository.DosimetersFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list dosimeters: %w", err)
	}
	return s.render("dosimeters", export.DosimetersSheet(dosimeters))
}

// Samples exports the samples of one experiment.
func (s *ReportService) Samples(ctx context.Context, actor *domain.User, experimentID int64) (*Report, error) {
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	samples, err := s.deps.Repos.Samples.ListSamples(ctx, repository.SamplesFilter{ExperimentID: experimentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return s.render(fmt.Sprintf("experiment_%d_samples", experimentID), export.SamplesSheet(samples))
}

// DosimetryResults exports every completed irradiation ordered by id.
func (s *ReportService) DosimetryResults(ctx context.Context, actor *domain.User) (*Report, error) {
	if err := s.perms.Require(ctx, actor, PermAdmin); err != nil {
		return nil, err
	}
	repos := s.deps.Repos
	irrs, err := repos.Irradiations.ListIrradiations(ctx, repository.IrradiationsFilter{Status: domain.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("failed to list irradiations: %w", err)
	}
	sort.Slice(irrs, func(i, j int) bool { return irrs[i].ID < irrs[j].ID })

	rows := make([]export.DosimetryRow, 0, len(irrs))
	for _, irr := range irrs {
		row := export.DosimetryRow{Irradiation: irr}
		if irr.SampleID.Valid {
			if sm, err := repos.Samples.GetSample(ctx, irr.SampleID.Int64); err == nil {
				row.Sample, row.SetID = sm.Name, sm.SetID.String
			} else if !isNoRows(err) {
				return nil, fmt.Errorf("failed to get sample: %w", err)
			}
		}
		if irr.DosimeterID.Valid {
			if d, err := repos.Dosimeters.GetDosimeter(ctx, irr.DosimeterID.Int64); err == nil {
				row.DosID = d.DosID
			} else if !isNoRows(err) {
				return nil, fmt.Errorf("failed to get dosimeter: %w", err)
			}
		}
		rows = append(rows, row)
	}
	return s.render("dosimetry_results", export.DosimetryResultsSheet(rows))
}
