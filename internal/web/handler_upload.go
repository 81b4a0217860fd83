package web

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/vbonduro/propdesk/internal/auth"
	"github.com/vbonduro/propdesk/internal/upload"
)

const (
	maxUploadSize   = 100 << 20 // 100 MB per request
	maxUploadMemory = 32 << 20
)

// uploadFields are the multipart field names accepted for files.
var uploadFields = []string{"files", "file"}

type uploadResponse struct {
	Files  []upload.Result  `json:"files"`
	Failed []upload.Failure `json:"failed"`
}

// mimeTypeOf prefers the extension over the client-supplied content type.
func mimeTypeOf(fh *multipart.FileHeader) string {
	if t := mime.TypeByExtension(filepath.Ext(fh.Filename)); t != "" {
		return t
	}
	if t := fh.Header.Get("Content-Type"); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, r, badRequest("failed to parse form: %v", err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", "error", err)
		}
	}()

	var files []upload.File
	for _, field := range uploadFields {
		for _, fh := range r.MultipartForm.File[field] {
			files = append(files, upload.File{
				Name:     fh.Filename,
				MimeType: mimeTypeOf(fh),
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	if len(files) == 0 {
		s.writeError(w, r, badRequest("at least one file is required"))
		return
	}

	results, failures := s.Uploads.UploadAll(r.Context(), auth.Email(r.Context()), files)
	if results == nil {
		results = []upload.Result{}
	}
	if failures == nil {
		failures = []upload.Failure{}
	}
	writeJSON(w, http.StatusOK, uploadResponse{Files: results, Failed: failures})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, rec, err := s.Uploads.Open(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer closeWithLog(rc, "file reader", s.logger)

	w.Header().Set("Content-Type", rec.MimeType)
	if rec.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.Name}))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write file failed", "key", key, "error", err)
	}
}
