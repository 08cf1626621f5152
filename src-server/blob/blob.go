package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// An uploaded file as received from a form.
type Upload struct {
	Filename string
	Data     []byte
}

func (u *Upload) Empty() bool {
	return u == nil || len(u.Data) == 0
}

// Saves binary payloads and returns the public URL they are served from.
type Store interface {
	SaveFile(ctx context.Context, upload *Upload) (string, error)
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Store writing into a local directory served under `/uploads/`.
type Disk struct {
	dir     string
	baseURL string
}

var _ Store = (*Disk)(nil)

func NewDisk(dir string, baseURL string) *Disk {
	return &Disk{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (d *Disk) Dir() string {
	return d.dir
}

// Returns "" without error for an empty upload.
func (d *Disk) SaveFile(ctx context.Context, upload *Upload) (string, error) {
	if upload.Empty() {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("(*Disk).SaveFile: %w", err)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("(*Disk).SaveFile: can't create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(d.dir, name), upload.Data, 0644); err != nil {
		return "", fmt.Errorf("(*Disk).SaveFile: %w", err)
	}

	return fmt.Sprintf("%s/uploads/%s", d.baseURL, name), nil
}
