package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// segments splits the part of path below prefix: "/api/v1/boxes/3/items" with
// prefix "/api/v1/boxes" gives ["3", "items"].
func segments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// listRequest reads ?q=&page=&elements_per_page= from the query string.
func listRequest(r *http.Request) service.ListRequest {
	q := r.URL.Query()
	return service.ListRequest{
		Query:   q.Get("q"),
		Page:    parseInt(q.Get("page"), 1),
		PerPage: q.Get("elements_per_page"),
	}
}

// selectionBody is the common body of group actions.
type selectionBody struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
	BoxID  string  `json:"box_id"`
}

func (b selectionBody) selection() service.Selection {
	return service.Selection{IDs: b.IDs}
}

var errBadBody = errors.New("malformed request body")

func getOnly(w http.ResponseWriter, r *http.Request, logger *zap.Logger, fn func() (any, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, err := fn()
	respond(w, logger, "GET "+r.URL.Path, res, err)
}

func postOnly(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, fn func() (any, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, err := fn()
	if errors.Is(err, errBadBody) {
		badRequest(w)
		return
	}
	respond(w, logger, op, res, err)
}

// groupAction serves POST actions on the ids checked in a list view.
func groupAction(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, fn func(selectionBody) (any, error)) {
	postOnly(w, r, logger, op, func() (any, error) {
		var body selectionBody
		if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
			return nil, errBadBody
		}
		return fn(body)
	})
}
