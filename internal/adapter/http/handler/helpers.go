package handler

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/ReviewSense/api-service/internal/usecase"
)

// FileField is the multipart form field carrying a CSV upload
const FileField = "file"

// ParseThreshold reads the threshold query parameter.
// A missing value yields the default; a malformed one yields NaN, which the usecase rejects.
func ParseThreshold(c *gin.Context) float64 {
	raw, ok := c.GetQuery("threshold")
	if !ok || strings.TrimSpace(raw) == "" {
		return usecase.DefaultThreshold
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return t
}

// ClientKey identifies the caller for rate limiting
func ClientKey(c *gin.Context) string {
	return c.ClientIP()
}

// IsMultipart reports whether the request carries a multipart form
func IsMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// UploadedFile returns a streaming reader over the file form field without
// buffering the upload. It returns nil for requests that are not multipart.
// The form is scanned for the field on the first Read, so nothing is consumed
// until the caller reads. A missing field reads as usecase.ErrNoFile.
func UploadedFile(c *gin.Context) io.Reader {
	mr, err := c.Request.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if err != nil {
		return failedReader{err: err}
	}
	return &formFile{form: mr}
}

// formFile locates the file part lazily
type formFile struct {
	form *multipart.Reader
	part io.Reader
	err  error
}

func (f *formFile) Read(p []byte) (int, error) {
	if f.part == nil && f.err == nil {
		f.part, f.err = findPart(f.form, FileField)
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.part.Read(p)
}

func findPart(form *multipart.Reader, name string) (io.Reader, error) {
	for {
		part, err := form.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, usecase.ErrNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == name {
			return part, nil
		}
		_ = part.Close()
	}
}

type failedReader struct {
	err error
}

func (r failedReader) Read([]byte) (int, error) {
	return 0, r.err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
