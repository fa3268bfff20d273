package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/metrics"
	"irrad-data/internal/service"
)

// Router uses the standard http.ServeMux; every route is labelled in the
// request metrics by the pattern it was registered with.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.HandleHandler(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, metrics.Instrument(pattern, h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handleTree registers h on both the collection path and everything below it.
func (r *Router) handleTree(path string, h http.Handler) {
	r.HandleHandler(path, h)
	r.HandleHandler(path+"/", h)
}

// RegisterSystemRoutes registers the probes and the Prometheus endpoint.
func (r *Router) RegisterSystemRoutes() {
	r.mux.Handle("/metrics", metrics.Handler())
	r.mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// RegisterAPIRoutes registers every /api/v1 route over svc.
func (r *Router) RegisterAPIRoutes(svc *service.Services) {
	r.handleTree(experimentsPath, NewExperimentHandler(svc, r.logger))
	r.handleTree(samplesPath, NewSampleHandler(svc.Samples, r.logger))
	r.handleTree(dosimetersPath, NewDosimeterHandler(svc.Dosimeters, svc.Equipment, r.logger))
	r.handleTree(boxesPath, NewBoxHandler(svc.Boxes, svc.Equipment, r.logger))

	compounds := NewCompoundHandler(svc.Compounds, r.logger)
	r.handleTree(compoundsPath, compounds)
	r.Handle(elementsPath, compounds.Elements)

	irradiations := NewIrradiationHandler(svc.Irradiations, r.logger)
	r.handleTree(irradiationsPath, irradiations)
	r.handleTree(factorsPath, http.HandlerFunc(irradiations.Factors))

	users := NewUserHandler(svc.Users, svc.Experiments, r.logger)
	r.handleTree(usersPath, users)
	r.Handle(mePath, users.Me)

	r.handleTree(equipmentPath, NewEquipmentHandler(svc.Equipment, r.logger))
	r.handleTree(reportsPath, NewReportHandler(svc.Reports, r.logger))
}
