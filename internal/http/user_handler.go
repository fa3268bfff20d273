package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const (
	usersPath = "/api/v1/users"
	mePath    = "/api/v1/me"
)

type UserHandler struct {
	users       *service.UserService
	experiments *service.ExperimentService
	logger      *zap.Logger
}

func NewUserHandler(users *service.UserService, experiments *service.ExperimentService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, experiments: experiments, logger: logger}
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)
	seg := segments(r.URL.Path, usersPath)

	switch {
	case len(seg) == 0:
		switch r.Method {
		case http.MethodGet:
			res, err := h.users.List(ctx, user, listRequest(r))
			respond(w, h.logger, "ListUsers", res, err)
		case http.MethodPost:
			var in service.UserInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.users.Create(ctx, user, in)
			respond(w, h.logger, "CreateUser", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(seg) == 1 && seg[0] == "delete":
		groupAction(w, r, h.logger, "DeleteUsers", func(b selectionBody) (any, error) {
			return h.users.Delete(ctx, user, b.selection())
		})
	default:
		id, ok := parseID(seg[0])
		if !ok || len(seg) > 2 || (len(seg) == 2 && seg[1] != "experiments") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if len(seg) == 2 {
			getOnly(w, r, h.logger, func() (any, error) {
				return h.experiments.ListForUser(ctx, user, id, listRequest(r))
			})
			return
		}
		switch r.Method {
		case http.MethodGet:
			u, err := h.users.Get(ctx, user, id)
			if err != nil {
				writeError(w, h.logger, "GetUser", err)
				return
			}
			writeJSON(w, http.StatusOK, Ok(u.ToJSON()))
		case http.MethodPut:
			var in service.UserInput
			if err := readBodyJSON(r, maxBodyBytes, &in); err != nil {
				badRequest(w)
				return
			}
			res, err := h.users.Update(ctx, user, id, in)
			respond(w, h.logger, "UpdateUser", res, err)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// Me returns the caller.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user := currentUser(r)
	if user == nil {
		writeError(w, h.logger, "Me", service.ErrPermissionDenied)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user.ToJSON()))
}
