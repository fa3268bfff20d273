package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const (
	irradiationsPath = "/api/v1/irradiations"
	factorsPath      = "/api/v1/fluence-factors"
)

// IrradiationHandler serves irradiations, the beam controls and fluence factors.
type IrradiationHandler struct {
	irradiations *service.IrradiationService
	logger       *zap.Logger
}

func NewIrradiationHandler(irradiations *service.IrradiationService, logger *zap.Logger) *IrradiationHandler {
	return &IrradiationHandler{irradiations: irradiations, logger: logger}
}

func (h *IrradiationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, irradiationsPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.irradiations.List(ctx, user, listRequest(r))
			respond(w, h.logger, "ListIrradiations", res, err)
		case http.MethodPost:
			var in service.IrradiationInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.irradiations.Create(ctx, user, in)
			respond(w, h.logger, "CreateIrradiation", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 2 && seg[0] == "table":
		getOnly(w, r, h.logger, func() (any, error) {
			return h.irradiations.ByTable(ctx, user, seg[1], listRequest(r))
		})
	case len(seg) == 1 && seg[0] == "dosimetry-results":
		getOnly(w, r, h.logger, func() (any, error) {
			return h.irradiations.DosimetryResults(ctx, user, listRequest(r))
		})
	case len(seg) == 1 && seg[0] == "status":
		groupAction(w, r, h.logger, "UpdateIrradiationStatus", func(b selectionBody) (any, error) {
			return h.irradiations.UpdateStatus(ctx, user, b.selection(), b.Status)
		})
	case len(seg) == 1 && seg[0] == "beam":
		postOnly(w, r, h.logger, "SetBeam", func() (any, error) {
			var body struct {
				IDs    []int64 `json:"ids"`
				InBeam bool    `json:"in_beam"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.irradiations.SetBeam(ctx, user, service.Selection{IDs: body.IDs}, body.InBeam)
		})
	case len(seg) == 1 && seg[0] == "sec":
		groupAction(w, r, h.logger, "UpdateSec", func(b selectionBody) (any, error) {
			return h.irradiations.UpdateSec(ctx, user, b.selection())
		})
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteIrradiations", func(b selectionBody) (any, error) {
			return h.irradiations.Delete(ctx, user, b.selection())
		})
	case len(seg) == 1:
		id, ok := parseID(seg[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var in service.IrradiationInput
		if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
			badRequest(w)
			return
		}
		res, err := h.irradiations.Update(ctx, user, id, in)
		respond(w, h.logger, "UpdateIrradiation", res, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Factors serves /api/v1/fluence-factors.
func (h *IrradiationHandler) Factors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, factorsPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.irradiations.Factors(ctx, user, listRequest(r))
			respond(w, h.logger, "ListFactors", res, err)
		case http.MethodPost:
			var in service.FactorInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.irradiations.CreateFactor(ctx, user, in)
			respond(w, h.logger, "CreateFactor", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteFactors", func(b selectionBody) (any, error) {
			return h.irradiations.DeleteFactors(ctx, user, b.selection())
		})
	case len(seg) == 1:
		id, ok := parseID(seg[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var in service.FactorInput
		if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
			badRequest(w)
			return
		}
		res, err := h.irradiations.UpdateFactor(ctx, user, id, in)
		respond(w, h.logger, "UpdateFactor", res, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
