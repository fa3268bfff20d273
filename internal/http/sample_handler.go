package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const samplesPath = "/api/v1/samples"

// SampleHandler serves samples across experiments. Creating and listing the
// samples of one experiment lives under /experiments/{id}/samples.
type SampleHandler struct {
	samples *service.SampleService
	logger  *zap.Logger
}

func NewSampleHandler(samples *service.SampleService, logger *zap.Logger) *SampleHandler {
	return &SampleHandler{samples: samples, logger: logger}
}

func (h *SampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, samplesPath)

	switch {
	case len(seg) == 0:
		getOnly(w, r, h.logger, func() (any, error) { return h.samples.AdminList(ctx, user, listRequest(r)) })
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteSamples", func(b selectionBody) (any, error) {
			return h.samples.Delete(ctx, user, b.selection())
		})
	case len(seg) == 1 && seg[0] == "move":
		postOnly(w, r, h.logger, "MoveSamples", func() (any, error) {
			var body struct {
				IDs []int64 `json:"ids"`
				service.MoveInput
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.samples.Move(ctx, user, service.Selection{IDs: body.IDs}, body.MoveInput)
		})
	case len(seg) == 1 && seg[0] == "box":
		groupAction(w, r, h.logger, "AttachSamplesBox", func(b selectionBody) (any, error) {
			return h.samples.AttachBox(ctx, user, b.selection(), b.BoxID)
		})
	case len(seg) == 1 && seg[0] == "set-ids":
		groupAction(w, r, h.logger, "AssignSetIDs", func(b selectionBody) (any, error) {
			return h.samples.AssignSetIDs(ctx, user, b.selection())
		})
	default:
		id, ok := parseID(seg[0])
		if !ok || len(seg) > 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if len(seg) == 1 {
			h.sample(w, r, id)
			return
		}
		switch seg[1] {
		case "clone":
			postOnly(w, r, h.logger, "CloneSample", func() (any, error) {
				var in service.SampleInput
				if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
					return nil, errBadBody
				}
				return h.samples.Clone(ctx, user, id, in)
			})
		case "dosimetry":
			getOnly(w, r, h.logger, func() (any, error) { return h.samples.DosimetryResults(ctx, user, id) })
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (h *SampleHandler) sample(w http.ResponseWriter, r *http.Request, id int64) {
	switch r.Method {
	case http.MethodGet:
		res, err := h.samples.Details(r.Context(), currentUser(r), id)
		respond(w, h.logger, "GetSample", res, err)
	case http.MethodPut:
		var in service.SampleInput
		if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
			badRequest(w)
			return
		}
		res, err := h.samples.Update(r.Context(), currentUser(r), id, in)
		respond(w, h.logger, "UpdateSample", res, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
