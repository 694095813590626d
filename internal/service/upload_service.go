package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/storage"
)

const defaultImageExt = ".jpg"

// UploadService turns multipart parts into job artifacts, either persisted to
// scratch storage or encoded inline as data URLs
type UploadService struct {
	scratch *storage.FileStore
}

// NewUploadService creates a new upload service writing into scratch
func NewUploadService(scratch *storage.FileStore) *UploadService {
	return &UploadService{
		scratch: scratch,
	}
}

// Save persists the part as <job-id>_<role><ext> in scratch storage.
func (s *UploadService) Save(ctx context.Context, job *model.Job, role model.ArtifactRole, fh *multipart.FileHeader) (model.Artifact, error) {
	data, contentType, err := readImage(fh, role)
	if err != nil {
		return model.Artifact{}, err
	}

	key := fmt.Sprintf("%s_%s%s", job.ID, role, extensionFor(fh.Filename, contentType))
	if _, err := s.scratch.Write(ctx, key, bytes.NewReader(data)); err != nil {
		return model.Artifact{}, apperr.Wrap(apperr.KindInternal, "Failed to save uploaded file", err)
	}
	path, err := s.scratch.Path(key)
	if err != nil {
		return model.Artifact{}, apperr.Wrap(apperr.KindInternal, "Failed to save uploaded file", err)
	}

	return model.Artifact{
		Role:        role,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Path:        path,
	}, nil
}

// Encode reads the part fully and returns it as a data URL artifact.
func (s *UploadService) Encode(ctx context.Context, role model.ArtifactRole, fh *multipart.FileHeader) (model.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return model.Artifact{}, apperr.From(err)
	}
	data, contentType, err := readImage(fh, role)
	if err != nil {
		return model.Artifact{}, err
	}

	return model.Artifact{
		Role:        role,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		DataURL:     DataURL(contentType, data),
	}, nil
}

// EncodeAll encodes every part concurrently. Artifacts are returned in the
// order of roles; the first failure stops encodes that have not started.
func (s *UploadService) EncodeAll(ctx context.Context, roles []model.ArtifactRole, parts []*multipart.FileHeader) ([]model.Artifact, error) {
	out := make([]model.Artifact, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		i := i
		g.Go(func() error {
			a, err := s.Encode(gctx, roles[i], parts[i])
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DataURL formats data as data:<content-type>;base64,<payload>.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// readImage loads the part and resolves its content type, sniffing when the
// client sent none. Non-image parts are rejected.
func readImage(fh *multipart.FileHeader, role model.ArtifactRole) ([]byte, string, error) {
	if fh == nil || fh.Size == 0 {
		return nil, "", apperr.MissingField(fmt.Sprintf("Missing %s image", role))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "Failed to read uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "Failed to read uploaded file", err)
	}
	if len(data) == 0 {
		return nil, "", apperr.MissingField(fmt.Sprintf("Missing %s image", role))
	}

	contentType := fh.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", apperr.InvalidField(fmt.Sprintf("The %s upload must be an image", role))
	}

	return data, contentType, nil
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
}

// extensionFor prefers the uploaded filename's extension, then the content
// type, then .jpg.
func extensionFor(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 1 && len(ext) <= 5 && isAlnum(ext[1:]) {
		return ext
	}
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return defaultImageExt
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
