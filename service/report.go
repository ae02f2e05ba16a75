package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/google/uuid"
	"github.com/krau/tgkw/types"
)

const (
	DocxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	DocxExt       = ".docx"

	reportTitle     = "Telegram Search Results"
	reportSeparator = "---"
	// attempts at finding an unused file name
	maxNameAttempts = 5
)

var blockSeparator = strings.Repeat("=", 50)

// ReportBuilder renders search results into .docx files inside one directory.
type ReportBuilder struct {
	dir    string
	prefix string

	newSuffix func() string
	now       func() time.Time
}

func NewReportBuilder(dir, prefix string) *ReportBuilder {
	return &ReportBuilder{
		dir:       dir,
		prefix:    prefix,
		newSuffix: randomSuffix,
		now:       time.Now,
	}
}

// randomSuffix returns 8 hex characters.
func randomSuffix() string {
	return uuid.NewString()[:8]
}

func (b *ReportBuilder) Dir() string {
	return b.dir
}

// Build writes one report and returns its file name, relative to Dir.
// Results are written in the given order, an existing file is never overwritten.
func (b *ReportBuilder) Build(results []types.SearchResult, keyword, channel string) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	name, err := b.reserve()
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.dir, name)
	if err := b.write(path, results, keyword, channel); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrapf(err, "write report %s", name)
	}
	return name, nil
}

// reserve creates an empty file under a fresh random name.
func (b *ReportBuilder) reserve() (string, error) {
	op := func() (string, error) {
		name := b.prefix + b.newSuffix() + DocxExt
		f, err := os.OpenFile(filepath.Join(b.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		return name, f.Close()
	}
	name, err := backoff.RetryWithData(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxNameAttempts-1))
	if err != nil {
		return "", errors.Wrap(err, "reserve report name")
	}
	return name, nil
}

// addMultiline keeps line breaks as <w:br/> inside a single paragraph.
func addMultiline(doc *docx.RootDoc, text string) {
	p := doc.AddEmptyParagraph()
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.AddRun().AddBreak(nil)
		}
		if line != "" {
			p.AddText(line)
		}
	}
}

func (b *ReportBuilder) write(path string, results []types.SearchResult, keyword, channel string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}
	if _, err := doc.AddHeading(reportTitle, 0); err != nil {
		return err
	}
	doc.AddParagraph("Channel: " + channel)
	doc.AddParagraph(`Keyword: "` + keyword + `"`)
	doc.AddParagraph("Results found: " + strconv.Itoa(len(results)))
	doc.AddParagraph("Generated on: " + b.now().Format(types.DateLayout))
	doc.AddParagraph(reportSeparator)

	for i, r := range results {
		if _, err := doc.AddHeading(fmt.Sprintf("Message %d", i+1), 2); err != nil {
			return err
		}
		doc.AddParagraph("Date: " + r.Date)
		doc.AddParagraph("Sender: " + r.Sender)
		doc.AddParagraph("Message ID: " + strconv.Itoa(r.MessageID))
		if _, err := doc.AddHeading("Content:", 3); err != nil {
			return err
		}
		addMultiline(doc, r.Content)
		doc.AddParagraph(blockSeparator)
	}
	return doc.SaveTo(path)
}
