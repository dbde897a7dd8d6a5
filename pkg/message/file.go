package message

import (
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// File is a handle to the binary payload of a media envelope. The envelope
// only records where the bytes live; whoever constructed it owns them.
type File struct {
	Path string `json:"path"`
}

// Open returns a reader over the payload. The caller must close it.
func (f File) Open() (io.ReadCloser, error) {
	rc, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open payload %s: %w", f.Path, err)
	}
	return rc, nil
}

// DetectMIME sniffs the payload content.
func (f File) DetectMIME() (string, error) {
	mt, err := mimetype.DetectFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("detect mime of %s: %w", f.Path, err)
	}
	return mt.String(), nil
}

// AttachFile fills the file and mime fields of f from a local path, sniffing
// the MIME type from the content. An already set MIME is kept.
func AttachFile(f *Fields, path string) error {
	file := File{Path: path}
	if f.MIME == nil {
		mt, err := file.DetectMIME()
		if err != nil {
			return err
		}
		f.MIME = lo.ToPtr(mt)
	}
	f.File = &file
	return nil
}
