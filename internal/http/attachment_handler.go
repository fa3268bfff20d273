package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"go.uber.org/zap"

	"irrad-data/internal/service"
)

const maxUploadBytes = 64 << 20

type attachmentRoutes struct {
	attachments *service.AttachmentService
	logger      *zap.Logger
}

func newAttachmentRoutes(attachments *service.AttachmentService, logger *zap.Logger) *attachmentRoutes {
	return &attachmentRoutes{attachments: attachments, logger: logger}
}

// serve handles /experiments/{id}/attachments and /experiments/{id}/attachments/download.
func (a *attachmentRoutes) serve(w http.ResponseWriter, r *http.Request, experimentID int64, download bool) {
	if download {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.download(w, r, experimentID)
		return
	}
	switch r.Method {
	case http.MethodGet:
		res, err := a.attachments.List(r.Context(), currentUser(r), experimentID)
		respond(w, a.logger, "ListAttachments", res, err)
	case http.MethodPost:
		a.upload(w, r, experimentID)
	case http.MethodDelete:
		res, err := a.attachments.Delete(r.Context(), currentUser(r), experimentID, r.URL.Query().Get("key"))
		respond(w, a.logger, "DeleteAttachment", res, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *attachmentRoutes) upload(w http.ResponseWriter, r *http.Request, experimentID int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	res, err := a.attachments.Upload(r.Context(), currentUser(r), experimentID, header.Filename, contentType, file)
	respond(w, a.logger, "UploadAttachment", res, err)
}

func (a *attachmentRoutes) download(w http.ResponseWriter, r *http.Request, experimentID int64) {
	info, rc, err := a.attachments.Open(r.Context(), currentUser(r), experimentID, r.URL.Query().Get("key"))
	if err != nil {
		writeError(w, a.logger, "DownloadAttachment", err)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(info.Key)))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		a.logger.Warn("attachment download interrupted", zap.String("key", info.Key), zap.Error(err))
	}
}
