package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const experimentsPath = "/api/v1/experiments"

// ExperimentHandler serves experiments and the resources nested below them:
// samples, members, attachments, group irradiations and the samples report.
type ExperimentHandler struct {
	svc    *service.Services
	logger *zap.Logger
}

func NewExperimentHandler(svc *service.Services, logger *zap.Logger) *ExperimentHandler {
	return &ExperimentHandler{svc: svc, logger: logger}
}

func (h *ExperimentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := segments(r.URL.Path, experimentsPath)
	switch {
	case len(seg) == 0:
		h.root(w, r)
	case len(seg) == 1 && seg[0] == "shared":
		h.get(w, r, func() (any, error) {
			return h.svc.Experiments.Shared(r.Context(), currentUser(r), listRequest(r))
		})
	case len(seg) == 1 && seg[0] == "status":
		h.group(w, r, "UpdateExperimentStatus", func(b selectionBody) (any, error) {
			return h.svc.Experiments.UpdateStatus(r.Context(), currentUser(r), b.selection(), b.Status)
		})
	case len(seg) == 1 && seg[0] == "visibility":
		h.visibility(w, r)
	case len(seg) == 1 && seg[0] == "delete":
		h.group(w, r, "DeleteExperiments", func(b selectionBody) (any, error) {
			return h.svc.Experiments.Delete(r.Context(), currentUser(r), b.selection())
		})
	default:
		id, ok := parseID(seg[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.experiment(w, r, id, seg[1:])
	}
}

func (h *ExperimentHandler) root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		res, err := h.svc.Experiments.List(r.Context(), currentUser(r), listRequest(r))
		respond(w, h.logger, "ListExperiments", res, err)
	case http.MethodPost:
		var in service.ExperimentInput
		if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
			badRequest(w)
			return
		}
		res, err := h.svc.Experiments.Create(r.Context(), currentUser(r), in)
		respond(w, h.logger, "CreateExperiment", res, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *ExperimentHandler) experiment(w http.ResponseWriter, r *http.Request, id int64, rest []string) {
	ctx := r.Context()
	user := currentUser(r)
	sub := strings.Join(rest, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			res, err := h.svc.Experiments.Details(ctx, user, id)
			respond(w, h.logger, "GetExperiment", res, err)
		case http.MethodPut:
			var in service.ExperimentInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.svc.Experiments.Update(ctx, user, id, in)
			respond(w, h.logger, "UpdateExperiment", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "clone":
		h.post(w, r, func() (any, error) {
			var in service.ExperimentInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				return nil, errBadBody
			}
			return h.svc.Experiments.Clone(ctx, user, id, in)
		}, "CloneExperiment")
	case "validate":
		h.post(w, r, func() (any, error) {
			var in *service.ExperimentInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				return nil, errBadBody
			}
			return h.svc.Experiments.Validate(ctx, user, id, in)
		}, "ValidateExperiment")
	case "comment":
		h.post(w, r, func() (any, error) {
			var body struct {
				Comment string `json:"comment"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.svc.Experiments.UpdateComment(ctx, user, id, body.Comment)
		}, "UpdateExperimentComment")
	case "users":
		switch r.Method {
		case http.MethodGet:
			res, err := h.svc.Experiments.Users(ctx, user, id, listRequest(r))
			respond(w, h.logger, "ListExperimentUsers", res, err)
		case http.MethodPost:
			var body struct {
				Email string `json:"email"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				badRequest(w)
				return
			}
			res, err := h.svc.Experiments.AddUser(ctx, user, id, body.Email)
			respond(w, h.logger, "AddExperimentUser", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "users/remove":
		h.group(w, r, "RemoveExperimentUsers", func(b selectionBody) (any, error) {
			return h.svc.Experiments.RemoveUsers(ctx, user, id, b.selection())
		})
	case "archive":
		h.get(w, r, func() (any, error) { return h.svc.Experiments.Archive(ctx, user, id) })
	case "samples":
		switch r.Method {
		case http.MethodGet:
			res, err := h.svc.Samples.List(ctx, user, id, listRequest(r))
			respond(w, h.logger, "ListSamples", res, err)
		case http.MethodPost:
			var in service.SampleInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.svc.Samples.Create(ctx, user, id, in)
			respond(w, h.logger, "CreateSample", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "samples/write":
		h.group(w, r, "WriteSamples", func(b selectionBody) (any, error) {
			return h.svc.Equipment.WriteSamples(ctx, user, id, b.selection())
		})
	case "irradiations":
		h.post(w, r, func() (any, error) {
			var body struct {
				IDs []int64 `json:"ids"`
				service.GroupIrradiationInput
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.svc.Irradiations.CreateGroup(ctx, user, id, service.Selection{IDs: body.IDs}, body.GroupIrradiationInput)
		}, "CreateGroupIrradiation")
	case "report":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rep, err := h.svc.Reports.Samples(ctx, user, id)
		writeReport(w, h.logger, "ExperimentReport", rep, err)
	case "attachments", "attachments/download":
		newAttachmentRoutes(h.svc.Attachments, h.logger).serve(w, r, id, sub == "attachments/download")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ExperimentHandler) visibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		IDs        []int64 `json:"ids"`
		Visibility string  `json:"visibility"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w)
		return
	}
	res, err := h.svc.Experiments.SetVisibility(r.Context(), currentUser(r), service.Selection{IDs: body.IDs}, body.Visibility)
	respond(w, h.logger, "SetExperimentVisibility", res, err)
}

func (h *ExperimentHandler) get(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	getOnly(w, r, h.logger, fn)
}

func (h *ExperimentHandler) post(w http.ResponseWriter, r *http.Request, fn func() (any, error), op string) {
	postOnly(w, r, h.logger, op, fn)
}

func (h *ExperimentHandler) group(w http.ResponseWriter, r *http.Request, op string, fn func(selectionBody) (any, error)) {
	groupAction(w, r, h.logger, op, fn)
}
