package service

import (
	"io"
	"os"
	"path/filepath"

	"github.com/duke-git/lancet/v2/strutil"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
)

var ErrReportNotFound = errors.New("File not found")

// ReportFile is an opened report ready to be streamed.
type ReportFile struct {
	RC          io.ReadCloser
	Size        int64
	Name        string
	ContentType string
}

func (r *ReportFile) Read(p []byte) (n int, err error) {
	return r.RC.Read(p)
}

func (r *ReportFile) Close() error {
	return r.RC.Close()
}

// ReportStore serves previously generated reports from one directory.
type ReportStore struct {
	dir string
}

func NewReportStore(dir string) *ReportStore {
	return &ReportStore{dir: dir}
}

// Open only accepts plain file names inside the store directory.
func (s *ReportStore) Open(name string) (*ReportFile, error) {
	if name == "" || name != filepath.Base(name) || strutil.ContainsAny(name, []string{"/", `\`, ".."}) {
		return nil, ErrReportNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrReportNotFound
		}
		return nil, errors.Wrapf(err, "open report %s", name)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat report %s", name)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrReportNotFound
	}
	ct, err := detectContentType(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "detect content type of %s", name)
	}
	return &ReportFile{RC: f, Size: info.Size(), Name: name, ContentType: ct}, nil
}

// detectContentType sniffs the head of f and rewinds it. Anything zip based
// is served as a Word document.
func detectContentType(f *os.File) (string, error) {
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if mt.Is(DocxMediaType) || mt.Is("application/zip") || mt.Is("application/octet-stream") {
		return DocxMediaType, nil
	}
	return mt.String(), nil
}
