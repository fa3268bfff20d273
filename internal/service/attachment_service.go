package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"irrad-data/internal/blob"
	"irrad-data/internal/domain"
)

const presignExpiry = 15 * time.Minute

// AttachmentService stores documents uploaded for an experiment.
type AttachmentService struct {
	deps  *Deps
	perms *Permissions
}

func NewAttachmentService(d *Deps, perms *Permissions) *AttachmentService {
	return &AttachmentService{deps: d, perms: perms}
}

func attachmentPrefix(experimentID int64) string {
	return fmt.Sprintf("experiments/%d/", experimentID)
}

// Attachment is a stored file with the link it can be downloaded from.
type Attachment struct {
	blob.Info
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *AttachmentService) store() (blob.Store, error) {
	if s.deps.Blob == nil {
		return nil, errors.New("attachment store is not configured")
	}
	return s.deps.Blob, nil
}

// Upload stores r under a fresh key in the experiment folder.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.User, experimentID int64, name, contentType string, r io.Reader) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return nil, invalid(MsgInvalid)
	}
	key := attachmentPrefix(experimentID) + uuid.NewString() + "/" + name
	info, err := st.Put(ctx, key, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"uploaded-by": actor.Email, "filename": name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	s.deps.Logger.Info("Attachment uploaded",
		zap.Int64("experiment_id", experimentID), zap.String("key", key), zap.Int64("size", info.Size))
	return done(MsgSuccess, s.attachment(ctx, st, experimentID, info)), nil
}

func (s *AttachmentService) List(ctx context.Context, actor *domain.User, experimentID int64) ([]Attachment, error) {
	if err := s.perms.Require(ctx, actor, PermExperimentDetails, experimentID); err != nil {
		return nil, err
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	infos, err := st.List(ctx, attachmentPrefix(experimentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	out := make([]Attachment, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.attachment(ctx, st, experimentID, info))
	}
	return out, nil
}

// attachment prefers a presigned link and falls back to the download route.
func (s *AttachmentService) attachment(ctx context.Context, st blob.Store, experimentID int64, info blob.Info) Attachment {
	a := Attachment{Info: info, Name: path.Base(info.Key)}
	u, err := st.PresignURL(ctx, info.Key, presignExpiry)
	switch {
	case err == nil:
		a.URL = u
	case errors.Is(err, blob.ErrUnsupported):
		a.URL = fmt.Sprintf("/api/v1/experiments/%d/attachments/download?key=%s", experimentID, url.QueryEscape(info.Key))
	default:
		s.deps.Logger.Warn("Failed to presign attachment", zap.String("key", info.Key), zap.Error(err))
	}
	return a
}

// Open streams an attachment; the caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, actor *domain.User, experimentID int64, key string) (blob.Info, io.ReadCloser, error) {
	if err := s.perms.Require(ctx, actor, PermExperimentDetails, experimentID); err != nil {
		return blob.Info{}, nil, err
	}
	if !strings.HasPrefix(key, attachmentPrefix(experimentID)) {
		return blob.Info{}, nil, fmt.Errorf("attachment %q: %w", key, ErrNotFound)
	}
	st, err := s.store()
	if err != nil {
		return blob.Info{}, nil, err
	}
	info, rc, err := st.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, fmt.Errorf("attachment %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return blob.Info{}, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return info, rc, nil
}

func (s *AttachmentService) Delete(ctx context.Context, actor *domain.User, experimentID int64, key string) (*Outcome, error) {
	if err := s.perms.Require(ctx, actor, PermExperiment, experimentID); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(key, attachmentPrefix(experimentID)) {
		return nil, fmt.Errorf("attachment %q: %w", key, ErrNotFound)
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	found, err := st.Delete(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to delete attachment: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("attachment %q: %w", key, ErrNotFound)
	}
	return done(MsgSuccess, nil), nil
}
