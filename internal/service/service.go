// Package service holds the facility rules: permissions, validation and the
// mutations behind every API operation.
package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"irrad-data/internal/blob"
	"irrad-data/internal/domain"
	"irrad-data/internal/infoream"
	"irrad-data/internal/listing"
	"irrad-data/internal/notify"
	"irrad-data/internal/repository"
	"irrad-data/internal/store"
)

// Deps are the collaborators shared by the services.
type Deps struct {
	Repos    *repository.Repos
	InforEAM infoream.API
	Notifier notify.Notifier
	Blob     blob.Store
	Locker   *store.Locker
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// Services bundles one instance of every service over the same Deps.
type Services struct {
	Permissions  *Permissions
	Users        *UserService
	Experiments  *ExperimentService
	Samples      *SampleService
	Dosimeters   *DosimeterService
	Boxes        *BoxService
	Compounds    *CompoundService
	Irradiations *IrradiationService
	Equipment    *EquipmentService
	Attachments  *AttachmentService
	Reports      *ReportService
}

func New(d *Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.InforEAM == nil {
		d.InforEAM = infoream.NewSimulator()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Locker == nil {
		d.Locker = store.NewLocker(store.NewMemoryKV(), 30*time.Second)
	}
	perms := NewPermissions(d.Repos)
	exps := NewExperimentService(d, perms)
	return &Services{
		Permissions:  perms,
		Users:        NewUserService(d, perms),
		Experiments:  exps,
		Samples:      NewSampleService(d, perms, exps),
		Dosimeters:   NewDosimeterService(d, perms),
		Boxes:        NewBoxService(d, perms),
		Compounds:    NewCompoundService(d, perms),
		Irradiations: NewIrradiationService(d, perms),
		Equipment:    NewEquipmentService(d, perms),
		Attachments:  NewAttachmentService(d, perms),
		Reports:      NewReportService(d, perms),
	}
}

// Outcome is the answer to a mutating operation.
type Outcome struct {
	Message     string `json:"alert_message"`
	Result      any    `json:"result,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

func done(msg string, result any) *Outcome {
	return &Outcome{Message: msg, Result: result}
}

// ListRequest carries the search and paging parameters of list views.
type ListRequest struct {
	Query string
	Page  int
	// PerPage is the elements_per_page preference: a number or "all".
	PerPage string
}

// Selection is the list of ids checked in a list view.
type Selection struct {
	IDs []int64 `json:"ids"`
}

type jsoner interface {
	ToJSON() map[string]any
}

func jsonItems[T jsoner](items []T) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.ToJSON()
	}
	return out
}

// page filters items by req.Query and cuts the requested page.
func page[T jsoner](items []T, req ListRequest, fields func(T) []string) listing.Page[map[string]any] {
	items = listing.Filter(items, req.Query, fields)
	rows := jsonItems(items)
	return listing.Paginate(rows, listing.PerPage(req.PerPage, len(rows)), req.Page)
}

func pageRows[T any](rows []T, req ListRequest) listing.Page[T] {
	return listing.Paginate(rows, listing.PerPage(req.PerPage, len(rows)), req.Page)
}

// checkSelection validates ids against a lookup by id.
func checkSelection[T any](ctx context.Context, ids []int64, mode listing.SelectionMode, limit int, get func(context.Context, int64) (T, error)) error {
	return listing.CheckSelection(ids, mode, limit, func(id int64) (bool, error) {
		if _, err := get(ctx, id); err != nil {
			if isNoRows(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

func actorID(u *domain.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
