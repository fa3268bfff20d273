package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const boxesPath = "/api/v1/boxes"

type BoxHandler struct {
	boxes     *service.BoxService
	equipment *service.EquipmentService
	logger    *zap.Logger
}

func NewBoxHandler(boxes *service.BoxService, equipment *service.EquipmentService, logger *zap.Logger) *BoxHandler {
	return &BoxHandler{boxes: boxes, equipment: equipment, logger: logger}
}

type boxItemsBody struct {
	ItemIDs []string `json:"item_ids"`
}

func (h *BoxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, boxesPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.boxes.List(ctx, user, listRequest(r))
			respond(w, h.logger, "ListBoxes", res, err)
		case http.MethodPost:
			var in service.BoxInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.boxes.Create(ctx, user, in)
			respond(w, h.logger, "CreateBox", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 1 && seg[0] == "next-id":
		getOnly(w, r, h.logger, func() (any, error) {
			next, err := h.boxes.NextID(ctx, user)
			if err != nil {
				return nil, err
			}
			return map[string]string{"box_id": next}, nil
		})
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteBoxes", func(b selectionBody) (any, error) {
			return h.boxes.Delete(ctx, user, b.selection())
		})
	case len(seg) == 1 && seg[0] == "write":
		groupAction(w, r, h.logger, "WriteBox", func(b selectionBody) (any, error) {
			return h.equipment.WriteBox(ctx, user, b.selection())
		})
	default:
		id, ok := parseID(seg[0])
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.box(w, r, id, seg[1:])
	}
}

func (h *BoxHandler) box(w http.ResponseWriter, r *http.Request, id int64, rest []string) {
	ctx := r.Context()
	user := currentUser(r)
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.boxes.Details(ctx, user, id)
			respond(w, h.logger, "GetBox", res, err)
		case http.MethodPut:
			var in service.BoxInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.boxes.Update(ctx, user, id, in)
			respond(w, h.logger, "UpdateBox", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(rest) == 1 && rest[0] == "clone":
		postOnly(w, r, h.logger, "CloneBox", func() (any, error) {
			var in service.BoxInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				return nil, errBadBody
			}
			return h.boxes.Clone(ctx, user, id, in)
		})
	case len(rest) == 1 && rest[0] == "items":
		switch r.Method {
		case http.MethodGet:
			res, err := h.boxes.Items(ctx, user, id, listRequest(r))
			respond(w, h.logger, "ListBoxItems", res, err)
		case http.MethodPost:
			var body boxItemsBody
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				badRequest(w)
				return
			}
			res, err := h.boxes.AddItems(ctx, user, id, body.ItemIDs)
			respond(w, h.logger, "AddBoxItems", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(rest) == 2 && rest[0] == "items" && rest[1] == "remove":
		postOnly(w, r, h.logger, "RemoveBoxItems", func() (any, error) {
			var body boxItemsBody
			if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
				return nil, errBadBody
			}
			return h.boxes.RemoveItems(ctx, user, id, body.ItemIDs)
		})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
