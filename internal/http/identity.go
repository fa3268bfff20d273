package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"irrad-data/internal/config"
	"irrad-data/internal/domain"
	"irrad-data/internal/service"
)

// Headers set by the SSO proxy in front of the service.
const (
	headerEmail         = "X-Remote-User-Email"
	headerFirstName     = "X-Remote-User-Firstname"
	headerLastName      = "X-Remote-User-Lastname"
	headerPhone         = "X-Remote-User-Phonenumber"
	headerMobile        = "X-Remote-User-Mobilenumber"
	headerDepartment    = "X-Remote-User-Department"
	headerHomeInstitute = "X-Remote-User-Homeinstitute"
	headerRequestID     = "X-Request-Id"
)

type ctxKey int

const userKey ctxKey = iota

// currentUser returns the caller resolved by Identify, or nil.
func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey).(*domain.User)
	return u
}

// Identify registers the caller from the SSO headers and stores it in the
// request context. Without headers the configured development user is used;
// requests with neither pass through anonymous and fail the permission checks.
type Identify struct {
	users  *service.UserService
	dev    config.DevUserConfig
	logger *zap.Logger
}

func NewIdentify(users *service.UserService, dev config.DevUserConfig, logger *zap.Logger) *Identify {
	return &Identify{users: users, dev: dev, logger: logger}
}

func (m *Identify) identity(r *http.Request) service.Identity {
	id := service.Identity{
		Email:         r.Header.Get(headerEmail),
		FirstName:     r.Header.Get(headerFirstName),
		LastName:      r.Header.Get(headerLastName),
		Telephone:     r.Header.Get(headerPhone),
		Mobile:        r.Header.Get(headerMobile),
		Department:    r.Header.Get(headerDepartment),
		HomeInstitute: r.Header.Get(headerHomeInstitute),
	}
	if id.Email == "" && m.dev.Enabled {
		id = service.Identity{Email: m.dev.Email, FirstName: m.dev.Name, LastName: m.dev.Surname}
	}
	return id
}

func (m *Identify) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, reqID)

		id := m.identity(r)
		if id.Email != "" {
			user, err := m.users.Login(r.Context(), id)
			if err != nil {
				writeError(w, m.logger.With(zap.String("request_id", reqID), zap.String("email", id.Email)), "login", err)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), userKey, user))
		}
		next.ServeHTTP(w, r)
	})
}
