// Package frontmatter scaffolds TOML front matter into new content files.
package frontmatter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"sitesentinel/pkg/fileutil"
	"sitesentinel/pkg/templates"
)

// DateLayout is the timestamp format written to the date field.
const DateLayout = "2006-01-02T15:04:05-07:00"

// IOError reports a failed read or write of a content file.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

var (
	titleSeparators = strings.NewReplacer("-", " ", "_", " ")
	tomlEscaper     = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

// TitleFromPath derives a post title from the file stem, turning word
// separators into spaces: "notes/my-first-post.md" gives "my first post".
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "Untitled"
	}
	return titleSeparators.Replace(stem)
}

// Render returns the front matter block for path stamped with now.
func Render(templateDir, path string, now time.Time) (string, error) {
	return templates.Render(templateDir, templates.FrontMatter, templates.TemplateData{
		"TITLE": tomlEscaper.Replace(TitleFromPath(path)),
		"DATE":  now.Format(DateLayout),
		"DRAFT": "false",
		"TAGS":  "[]",
	})
}

// Injector writes front matter into empty content files.
type Injector struct {
	logger      *slog.Logger
	templateDir string
	now         func() time.Time
}

// NewInjector creates an injector that looks for template overrides under
// templateDir.
func NewInjector(logger *slog.Logger, templateDir string) *Injector {
	return &Injector{
		logger:      logger,
		templateDir: templateDir,
		now:         time.Now,
	}
}

// Inject writes a rendered front matter block into path. The file must
// already exist. A file that gained content since it was classified is left
// untouched.
func (i *Injector) Inject(path string) error {
	content, err := Render(i.templateDir, path, i.now())
	if err != nil {
		return &IOError{Path: path, Op: "render", Err: err}
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return &IOError{Path: path, Op: "open", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &IOError{Path: path, Op: "stat", Err: err}
	}
	if !fileutil.IsEmptyRegular(info) {
		f.Close()
		i.logger.Info("Front matter skipped, file is no longer empty",
			"path", path,
			"size", humanize.Bytes(uint64(info.Size())))
		return nil
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return &IOError{Path: path, Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Op: "close", Err: err}
	}

	i.logger.Info("Front matter injected",
		"path", path,
		"title", TitleFromPath(path),
		"size", humanize.Bytes(uint64(len(content))))
	return nil
}
