// Package server exposes the engine over HTTP. Authentication happens
// upstream; requests arrive with the owner id in the X-Owner-ID header.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wudi/pdfworks/engine"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/lifecycle"
	"github.com/wudi/pdfworks/observability"
)

type Server struct {
	engine    *engine.Engine
	logger    observability.Logger
	maxUpload int64
}

func New(eng *engine.Engine, logger observability.Logger, maxUpload int64) *Server {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	if maxUpload <= 0 {
		maxUpload = engine.DefaultMaxUpload
	}
	return &Server{engine: eng, logger: logger, maxUpload: maxUpload}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = s.maxUpload
	router.Use(RequestID(s.logger))
	router.Use(Recovery(s.logger))
	router.Use(RequestLogger(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	api.Use(Owner())
	{
		api.POST("/pdf/merge", s.merge)
		api.POST("/pdf/split", s.split)
		api.POST("/pdf/page-operations", s.pageOperations)
		api.POST("/pdf/compress", s.compress)
		api.POST("/pdf/password", s.password)
		api.POST("/pdf/watermark", s.watermark)
		api.POST("/pdf/extract-text", s.extractText)
		api.POST("/pdf/extract-images", s.extractImages)
		api.POST("/pdf/to-images", s.toImages)
		api.POST("/ocr/process", s.ocr)

		api.GET("/files", s.listFiles)
		api.GET("/files/:id", s.download)
		api.DELETE("/files/:id", s.deleteFile)
		api.POST("/files/cleanup", s.cleanup)
	}
	return router
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch errs.Kind(err) {
	case errs.ErrInvalidParameter, errs.ErrMissingAsset, errs.ErrUnsupportedInput:
		return http.StatusBadRequest
	case errs.ErrPermissionDenied:
		return http.StatusForbidden
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrTooLarge:
		return http.StatusRequestEntityTooLarge
	case errs.ErrInvalidDocument, errs.ErrNoTextFound, errs.ErrNoContentFound:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		observability.FromContext(c.Request.Context(), s.logger).Error("request failed", observability.Error("error", err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{
		"success":    false,
		"error":      msg,
		"request_id": GetRequestID(c),
	})
}

// upload reads the multipart file in field. At most one byte over the limit
// is read so the engine can report the size violation.
func (s *Server) upload(c *gin.Context, field string) (engine.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return engine.Upload{}, errs.Wrap(errs.ErrMissingAsset, "form file "+field, err)
	}
	return s.readPart(header.Filename, header.Open)
}

func (s *Server) readPart(name string, open func() (multipart.File, error)) (engine.Upload, error) {
	f, err := open()
	if err != nil {
		return engine.Upload{}, errs.Wrap(errs.ErrMissingAsset, name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		return engine.Upload{}, fmt.Errorf("read %s: %w", name, err)
	}
	return engine.Upload{Name: name, Data: data}, nil
}

func (s *Server) send(c *gin.Context, res engine.Result) {
	c.Header("X-File-ID", res.Record.ID)
	c.Header("ETag", strconv.Quote(res.Record.Digest))
	c.Header("Content-Disposition", attachment(res.Artifact.Name))
	c.Data(http.StatusOK, res.Artifact.Kind.ContentType(), res.Artifact.Data)
}

func attachment(name string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(name))
}

func (s *Server) single(c *gin.Context, op func(engine.Upload) (engine.Result, error)) {
	file, err := s.upload(c, "file")
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := op(file)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.send(c, res)
}

func (s *Server) merge(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, errs.Wrap(errs.ErrInvalidParameter, "multipart form", err))
		return
	}
	var files []engine.Upload
	for _, h := range form.File["files"] {
		u, err := s.readPart(h.Filename, h.Open)
		if err != nil {
			s.fail(c, err)
			return
		}
		files = append(files, u)
	}
	res, err := s.engine.Merge(c.Request.Context(), GetOwner(c), files)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.send(c, res)
}

func (s *Server) split(c *gin.Context) {
	opts := engine.SplitOptions{
		Mode:   engine.SplitMode(c.DefaultPostForm("split_type", string(engine.SplitPages))),
		Ranges: c.PostForm("page_ranges"),
	}
	if v := c.PostForm("num_parts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(c, errs.Wrap(errs.ErrInvalidParameter, "num_parts "+v, nil))
			return
		}
		opts.Parts = n
	}
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.Split(c.Request.Context(), GetOwner(c), f, opts)
	})
}

func (s *Server) pageOperations(c *gin.Context) {
	owner := GetOwner(c)
	switch op := c.DefaultPostForm("operation", "delete"); op {
	case "delete":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			return s.engine.DeletePages(c.Request.Context(), owner, f, c.PostForm("pages_to_delete"))
		})
	case "reorder":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			return s.engine.ReorderPages(c.Request.Context(), owner, f, c.PostForm("new_order"))
		})
	default:
		s.fail(c, errs.Wrap(errs.ErrInvalidParameter, "operation "+op, nil))
	}
}

func (s *Server) compress(c *gin.Context) {
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.Compress(c.Request.Context(), GetOwner(c), f, c.DefaultPostForm("quality", "medium"))
	})
}

func (s *Server) password(c *gin.Context) {
	owner, pw := GetOwner(c), c.PostForm("password")
	switch op := c.DefaultPostForm("operation", "encrypt"); op {
	case "encrypt":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			return s.engine.Encrypt(c.Request.Context(), owner, f, pw)
		})
	case "decrypt":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			return s.engine.Decrypt(c.Request.Context(), owner, f, pw)
		})
	default:
		s.fail(c, errs.Wrap(errs.ErrInvalidParameter, "operation "+op, nil))
	}
}

func (s *Server) watermark(c *gin.Context) {
	owner := GetOwner(c)
	switch kind := c.DefaultPostForm("watermark_type", "text"); kind {
	case "text":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			return s.engine.TextWatermark(c.Request.Context(), owner, f, c.PostForm("watermark_text"))
		})
	case "image":
		s.single(c, func(f engine.Upload) (engine.Result, error) {
			img, err := s.upload(c, "watermark_image")
			if err != nil {
				return engine.Result{}, err
			}
			return s.engine.ImageWatermark(c.Request.Context(), owner, f, img)
		})
	default:
		s.fail(c, errs.Wrap(errs.ErrInvalidParameter, "watermark_type "+kind, nil))
	}
}

func (s *Server) extractText(c *gin.Context) {
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.ExtractText(c.Request.Context(), GetOwner(c), f)
	})
}

func (s *Server) extractImages(c *gin.Context) {
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.ExtractImages(c.Request.Context(), GetOwner(c), f)
	})
}

func (s *Server) toImages(c *gin.Context) {
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.PDFToImages(c.Request.Context(), GetOwner(c), f)
	})
}

func (s *Server) ocr(c *gin.Context) {
	s.single(c, func(f engine.Upload) (engine.Result, error) {
		return s.engine.OCR(c.Request.Context(), GetOwner(c), f)
	})
}

type fileInfo struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	FileType     string    `json:"fileType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toFileInfo(r lifecycle.Record) fileInfo {
	return fileInfo{
		ID:           r.ID,
		OriginalName: r.OriginalName,
		FileType:     string(r.Kind),
		Size:         r.Size,
		CreatedAt:    r.CreatedAt,
	}
}

func (s *Server) listFiles(c *gin.Context) {
	recs, err := s.engine.Files(c.Request.Context(), GetOwner(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	files := make([]fileInfo, len(recs))
	for i, r := range recs {
		files[i] = toFileInfo(r)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

func (s *Server) download(c *gin.Context) {
	rec, rc, err := s.engine.Open(c.Request.Context(), GetOwner(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	defer rc.Close()
	etag := strconv.Quote(rec.Digest)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.DataFromReader(http.StatusOK, rec.Size, rec.Kind.ContentType(), rc, map[string]string{
		"ETag":                etag,
		"Content-Disposition": attachment(rec.OriginalName),
	})
}

func (s *Server) deleteFile(c *gin.Context) {
	if err := s.engine.Delete(c.Request.Context(), GetOwner(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) cleanup(c *gin.Context) {
	report, err := s.engine.Sweep(c.Request.Context())
	if err != nil && !errors.Is(err, errs.ErrSweepPartialFailure) {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": err == nil,
		"deleted": report.Deleted,
		"failed":  len(report.Errors),
	})
}
