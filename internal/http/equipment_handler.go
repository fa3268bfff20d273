package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const equipmentPath = "/api/v1/equipment"

// EquipmentHandler prints labels and reads equipment back from inforEAM.
// Writes are started from the sample, dosimeter and box routes.
type EquipmentHandler struct {
	equipment *service.EquipmentService
	logger    *zap.Logger
}

func NewEquipmentHandler(equipment *service.EquipmentService, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment, logger: logger}
}

func (h *EquipmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, equipmentPath)
	if len(seg) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if seg[0] == "print" {
		postOnly(w, r, h.logger, "PrintLabels", func() (any, error) {
			var in service.PrintInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				return nil, errBadBody
			}
			return h.equipment.Print(ctx, user, in)
		})
		return
	}
	getOnly(w, r, h.logger, func() (any, error) { return h.equipment.Read(ctx, user, seg[0]) })
}
