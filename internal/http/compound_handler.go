package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const (
	compoundsPath = "/api/v1/compounds"
	elementsPath  = "/api/v1/elements"
)

// CompoundHandler serves compounds and the element table they are made of.
type CompoundHandler struct {
	compounds *service.CompoundService
	logger    *zap.Logger
}

func NewCompoundHandler(compounds *service.CompoundService, logger *zap.Logger) *CompoundHandler {
	return &CompoundHandler{compounds: compounds, logger: logger}
}

func (h *CompoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, compoundsPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.compounds.List(ctx, user, listRequest(r))
			respond(w, h.logger, "ListCompounds", res, err)
		case http.MethodPost:
			var in service.CompoundInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.compounds.Create(ctx, user, in)
			respond(w, h.logger, "CreateCompound", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 1 && seg[0] == "options":
		getOnly(w, r, h.logger, func() (any, error) { return h.compounds.Options(ctx, user) })
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteCompounds", func(b selectionBody) (any, error) {
			return h.compounds.Delete(ctx, user, b.selection())
		})
	case len(seg) == 1:
		id, ok := parseID(seg[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			res, err := h.compounds.Details(ctx, user, id)
			respond(w, h.logger, "GetCompound", res, err)
		case http.MethodPut:
			var in service.CompoundInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.compounds.Update(ctx, user, id, in)
			respond(w, h.logger, "UpdateCompound", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Elements serves GET and POST on /api/v1/elements.
func (h *CompoundHandler) Elements(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != elementsPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		res, err := h.compounds.Elements(r.Context(), currentUser(r))
		respond(w, h.logger, "ListElements", res, err)
	case http.MethodPost:
		var in service.ElementInput
		if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
			badRequest(w)
			return
		}
		res, err := h.compounds.CreateElement(r.Context(), currentUser(r), in)
		respond(w, h.logger, "CreateElement", res, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
