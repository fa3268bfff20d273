package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const dosimetersPath = "/api/v1/dosimeters"

type DosimeterHandler struct {
	dosimeters *service.DosimeterService
	equipment  *service.EquipmentService
	logger     *zap.Logger
}

func NewDosimeterHandler(dosimeters *service.DosimeterService, equipment *service.EquipmentService, logger *zap.Logger) *DosimeterHandler {
	return &DosimeterHandler{dosimeters: dosimeters, equipment: equipment, logger: logger}
}

func (h *DosimeterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, dosimetersPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.dosimeters.List(ctx, user, listRequest(r))
			respond(w, h.logger, "ListDosimeters", res, err)
		case http.MethodPost:
			var in service.DosimeterInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.dosimeters.Create(ctx, user, in)
			respond(w, h.logger, "CreateDosimeter", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 1 && seg[0] == "generate":
		postOnly(w, r, h.logger, "GenerateDosimeters", func() (any, error) {
			var body struct {
				Count int `json:"count"`
			}
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.dosimeters.Generate(ctx, user, body.Count)
		})
	case len(seg) == 1 && seg[0] == "box":
		groupAction(w, r, h.logger, "AttachDosimetersBox", func(b selectionBody) (any, error) {
			return h.dosimeters.AttachBox(ctx, user, b.selection(), b.BoxID)
		})
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteDosimeters", func(b selectionBody) (any, error) {
			return h.dosimeters.Delete(ctx, user, b.selection())
		})
	case len(seg) == 1 && seg[0] == "write":
		groupAction(w, r, h.logger, "WriteDosimeters", func(b selectionBody) (any, error) {
			return h.equipment.WriteDosimeters(ctx, user, b.selection())
		})
	default:
		id, ok := parseID(seg[0])
		if !ok || len(seg) > 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if len(seg) == 2 {
			if seg[1] != "clone" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			postOnly(w, r, h.logger, "CloneDosimeter", func() (any, error) {
				var in service.DosimeterInput
				if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
					return nil, errBadBody
				}
				return h.dosimeters.Clone(ctx, user, id, in)
			})
			return
		}
		switch r.Method {
		case http.MethodGet:
			res, err := h.dosimeters.Details(ctx, user, id)
			respond(w, h.logger, "GetDosimeter", res, err)
		case http.MethodPut:
			var in service.DosimeterInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.dosimeters.Update(ctx, user, id, in)
			respond(w, h.logger, "UpdateDosimeter", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
