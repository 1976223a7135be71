package media

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// sniffImage detects the content type from the payload itself and rejects
// anything that is not an allowed image.
func sniffImage(data []byte) (contentType, extension string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("file is empty")
	}
	detected := mimetype.Detect(data)
	contentType = strings.ToLower(detected.String())
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	extension, ok := allowedImageTypes[contentType]
	if !ok {
		return "", "", fmt.Errorf("unsupported file type %s; allowed: %s", contentType, allowedDescription())
	}
	return contentType, extension, nil
}

func allowedDescription() string {
	list := make([]string, 0, len(allowedImageTypes))
	for _, ext := range allowedImageTypes {
		list = append(list, ext)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}
