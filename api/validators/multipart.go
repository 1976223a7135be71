package validators

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
)

const (
	multipartMemory = 8 << 20
	dateLayout      = "2006-01-02"
)

// Form wraps a parsed multipart/form-data request. Text accessors return nil
// for absent keys so update handlers can tell "unset" from "empty".
type Form struct {
	r            *http.Request
	maxFileBytes int64
	maxFiles     int
}

// ParseForm parses a multipart body. Each file is capped at maxFileBytes and
// the whole body at maxFileBytes*(maxFiles+1).
func ParseForm(w http.ResponseWriter, r *http.Request, maxFileBytes int64, maxFiles int) (*Form, error) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type must be multipart/form-data")
	}
	if maxFiles < 1 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes*int64(maxFiles+1))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return &Form{r: r, maxFileBytes: maxFileBytes, maxFiles: maxFiles}, nil
}

func (f *Form) has(key string) bool {
	if f.r.MultipartForm == nil {
		return false
	}
	_, ok := f.r.MultipartForm.Value[key]
	return ok
}

// String returns the trimmed value or nil when the key was not sent.
func (f *Form) String(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := strings.TrimSpace(f.r.MultipartForm.Value[key][0])
	return &v
}

// Text returns the trimmed value or "".
func (f *Form) Text(key string) string {
	if v := f.String(key); v != nil {
		return *v
	}
	return ""
}

func (f *Form) Bool(key string) (*bool, error) {
	raw := f.String(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, fieldError(key, "must be true or false")
	}
	return &v, nil
}

func (f *Form) Int(key string) (*int, error) {
	raw := f.String(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(*raw)
	if err != nil {
		return nil, fieldError(key, "must be a whole number")
	}
	return &v, nil
}

func (f *Form) UUID(key string) (*uuid.UUID, error) {
	raw := f.String(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fieldError(key, "must be a valid id")
	}
	return &v, nil
}

func (f *Form) Decimal(key string) (*decimal.Decimal, error) {
	raw := f.String(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fieldError(key, "must be a number")
	}
	return &v, nil
}

// Date parses YYYY-MM-DD as a UTC date.
func (f *Form) Date(key string) (*time.Time, error) {
	raw := f.String(key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, fieldError(key, "must be a date formatted YYYY-MM-DD")
	}
	return &v, nil
}

// File returns the single upload under key, or nil when none was sent.
func (f *Form) File(key string) ([]byte, error) {
	files, err := f.Files(key)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	if len(files) > 1 {
		return nil, fieldError(key, "only one file is accepted")
	}
	return files[0], nil
}

// Files returns every upload under key.
func (f *Form) Files(key string) ([][]byte, error) {
	if f.r.MultipartForm == nil {
		return nil, nil
	}
	headers := f.r.MultipartForm.File[key]
	if len(headers) > f.maxFiles {
		return nil, fieldError(key, fmt.Sprintf("at most %d files are accepted", f.maxFiles))
	}
	out := make([][]byte, 0, len(headers))
	for _, h := range headers {
		data, err := f.read(key, h)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

func (f *Form) read(key string, h *multipart.FileHeader) ([]byte, error) {
	if h.Size > f.maxFileBytes {
		return nil, fieldError(key, fmt.Sprintf("%s exceeds the %d MB limit", h.Filename, f.maxFileBytes>>20))
	}
	file, err := h.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(io.LimitReader(file, f.maxFileBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	if int64(len(data)) > f.maxFileBytes {
		return nil, fieldError(key, fmt.Sprintf("%s exceeds the %d MB limit", h.Filename, f.maxFileBytes>>20))
	}
	if len(data) == 0 {
		return nil, fieldError(key, fmt.Sprintf("%s is empty", h.Filename))
	}
	return data, nil
}
