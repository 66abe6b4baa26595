package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uploadsPrefix = "/uploads/"

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// uploadStore keeps product images on local disk and serves them back under
// /uploads/.
type uploadStore struct {
	dir      string
	maxBytes int64
}

func newUploadStore(dir string, maxBytes int64) *uploadStore {
	return &uploadStore{dir: dir, maxBytes: maxBytes}
}

// save writes an image under a generated name and returns its public reference.
func (u *uploadStore) save(src io.Reader, original string) (string, error) {
	if u.dir == "" {
		return "", errors.New("image uploads are disabled")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read image: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", errors.New("image is empty")
	}

	ext, ok := allowedImageTypes[http.DetectContentType(head)]
	if !ok {
		return "", errors.New("image must be a jpeg, png, gif or webp file")
	}
	if given := strings.ToLower(filepath.Ext(filepath.Base(original))); given == ".jpeg" && ext == ".jpg" {
		ext = given
	}

	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	defer dst.Close()

	if _, err := dst.Write(head); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return uploadsPrefix + name, nil
}

func (u *uploadStore) handler() http.Handler {
	files := http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(u.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u.dir == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
