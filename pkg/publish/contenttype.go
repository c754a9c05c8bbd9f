package publish

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// Extensions common in static site deploys that Go's builtin table lacks.
var extraContentTypes = map[string]string{
	".txt":         "text/plain; charset=utf-8",
	".md":          "text/markdown; charset=utf-8",
	".csv":         "text/csv; charset=utf-8",
	".ico":         "image/x-icon",
	".map":         "application/json",
	".webmanifest": "application/manifest+json",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".ttf":         "font/ttf",
	".otf":         "font/otf",
	".eot":         "application/vnd.ms-fontobject",
	".mp4":         "video/mp4",
	".webm":        "video/webm",
	".mp3":         "audio/mpeg",
	".zip":         "application/zip",
	".gz":          "application/gzip",
	".yaml":        "application/yaml",
	".yml":         "application/yaml",
	".xhtml":       "application/xhtml+xml",
	".rss":         "application/rss+xml",
	".atom":        "application/atom+xml",
}

func init() {
	for ext, typ := range extraContentTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(fmt.Sprintf("publish: register content type for %s: %v", ext, err))
		}
	}
}

// ContentTypeFor infers the content type of an object from its key
// extension. Keys without a recognizable extension yield
// ErrUnknownContentType.
func ContentTypeFor(key string) (string, error) {
	typ, err := inferContentType(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", err, ErrUnknownContentType)
	}
	return typ, nil
}

// inferContentType returns the bare reason on failure so callers can attach
// their own error kind.
func inferContentType(key string) (string, error) {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" || ext == "." {
		return "", fmt.Errorf("%s has no extension", key)
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return "", fmt.Errorf("%s is not a valid mime-type", key)
	}
	return typ, nil
}
