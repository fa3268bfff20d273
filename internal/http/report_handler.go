package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const reportsPath = "/api/v1/reports"

// ReportHandler serves the xlsx exports.
type ReportHandler struct {
	reports *service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports *service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	user := currentUser(r)

	var (
		rep *service.Report
		err error
	)
	switch r.URL.Path {
	case reportsPath + "/boxes":
		rep, err = h.reports.Boxes(ctx, user)
	case reportsPath + "/dosimeters":
		rep, err = h.reports.Dosimeters(ctx, user)
	case reportsPath + "/dosimetry-results":
		rep, err = h.reports.DosimetryResults(ctx, user)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeReport(w, h.logger, "Report", rep, err)
}

func writeReport(w http.ResponseWriter, logger *zap.Logger, op string, rep *service.Report, err error) {
	if err != nil {
		writeError(w, logger, op, err)
		return
	}
	w.Header().Set("Content-Type", service.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.Data)
}
