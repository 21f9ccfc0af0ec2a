package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
)

// Allowed course image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService checks course images before they are attached to a form.
type MediaService struct {
	maxBytes int64
}

// NewMediaService creates a new MediaService.
func NewMediaService(maxBytes int64) *MediaService {
	return &MediaService{maxBytes: maxBytes}
}

// ReadImage validates an uploaded image and reads it into memory under a
// UUID filename. The declared content type must agree with the sniffed one.
func (s *MediaService) ReadImage(header *multipart.FileHeader) (courseapi.Upload, error) {
	declared := header.Header.Get("Content-Type")
	ext, ok := allowedMIMETypes[declared]
	if !ok {
		return courseapi.Upload{}, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedImage, declared, strings.Join(allowedTypes(), ", "))
	}

	if s.maxBytes > 0 && header.Size > s.maxBytes {
		return courseapi.Upload{}, fmt.Errorf("%w: %d bytes (max: %d)", ErrImageTooLarge, header.Size, s.maxBytes)
	}

	file, err := header.Open()
	if err != nil {
		return courseapi.Upload{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	limit := s.maxBytes
	if limit <= 0 {
		limit = header.Size
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return courseapi.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return courseapi.Upload{}, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, limit)
	}

	if sniffed := http.DetectContentType(data); sniffed != declared {
		return courseapi.Upload{}, fmt.Errorf("%w: declared %s, content is %s", ErrUnsupportedImage, declared, sniffed)
	}

	return courseapi.Upload{
		Filename:    uuid.New().String() + ext,
		ContentType: declared,
		Data:        data,
	}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
