package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/storage"
)

// UploadField is the multipart field holding the file.
const UploadField = "file"

// FileHandler stores uploads and serves them back.
type FileHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(s storage.Storage, logger *slog.Logger) *FileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHandler{storage: s, logger: logger.With("component", "file_handler")}
}

// UploadView serves POST /api/files for logged-in users.
func (h *FileHandler) UploadView() view.View {
	return view.View{
		Handlers: map[string]view.HandlerFunc{http.MethodPost: h.Upload},
		Policy:   permission.NewPolicy().Default(permission.LoginRequired),
	}
}

// Upload saves the multipart "file" field under a generated name.
func (h *FileHandler) Upload(c *view.Context) (any, error) {
	f, header, err := c.File(UploadField)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	name, err := h.storage.Upload(c.Context(), f, storage.UploadOptions{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, apierr.New(apierr.KindValidation, "",
				apierr.WithFields(map[string]string{UploadField: "invalid file name"}),
				apierr.WithCause(err))
		}
		return nil, apierr.Internal(err)
	}

	h.logger.Info("file uploaded", "name", name, "size", header.Size)
	return view.Created(FileResponse{Name: name, URL: h.storage.URL(name), Size: header.Size}), nil
}

// Download streams a stored file. It is mounted under a wildcard route, so
// the name is everything after the prefix. Errors go through d.
func (h *FileHandler) Download(d *view.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		rc, err := h.storage.Open(r.Context(), name)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidName):
				d.Error(w, r, apierr.NotFound("", apierr.WithLogHint("no stored file "+name)))
			default:
				d.Error(w, r, apierr.Internal(err))
			}
			return
		}
		defer func() { _ = rc.Close() }()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			h.logger.Error("failed to stream file", "name", name, "error", err)
		}
	}
}
