// Package template renders HTML pages from template files stored on a virtual
// filesystem, using the Go html/template and text/template packages.
package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Options configures the template engine.
type Options struct {
	// Path is the directory containing the template files. All files with an
	// extension in Extensions are parsed, and each one is available under its
	// path relative to this directory, e.g. "manage/users.html".
	Path       string
	Extensions []string
	// LeftDelim and RightDelim are the action delimiters.
	LeftDelim  string
	RightDelim string
	// AutoEscape enables contextual escaping of HTML output.
	AutoEscape bool
	// AutoReload parses the templates again if any file changed since they
	// were last loaded. Otherwise they're loaded once and cached.
	AutoReload bool
	// Filters are additional functions available in templates.
	Filters map[string]any
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		Path:       "templates",
		Extensions: []string{".html"},
		LeftDelim:  "{{",
		RightDelim: "}}",
		AutoEscape: true,
		AutoReload: true,
		Filters:    map[string]any{},
	}
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Engine loads and renders templates. It's safe for concurrent use.
type Engine struct {
	fs     vfs.FileSystem
	opts   Options
	logger *slog.Logger

	mx        sync.RWMutex
	tpl       executor
	signature string
}

// New returns a new template engine reading files from fsys.
func New(fsys vfs.FileSystem, opts Options, logger *slog.Logger) *Engine {
	defaults := DefaultOptions()
	if opts.LeftDelim == "" {
		opts.LeftDelim = defaults.LeftDelim
	}
	if opts.RightDelim == "" {
		opts.RightDelim = defaults.RightDelim
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = defaults.Extensions
	}

	logger.Info("set template path", "path", opts.Path,
		"autoescape", opts.AutoEscape, "auto_reload", opts.AutoReload)

	return &Engine{fs: fsys, opts: opts, logger: logger}
}

// Render executes the named template with ctx as its data.
func (e *Engine) Render(name string, ctx map[string]any) (string, error) {
	tpl, err := e.load()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err = tpl.ExecuteTemplate(&buf, name, ctx); err != nil {
		return "", fmt.Errorf("failed rendering template '%s': %w", name, err)
	}

	return buf.String(), nil
}

// load returns the parsed templates. The template directory is scanned and
// parsed without holding the lock, so renders don't wait on each other's file
// I/O; the lock only guards swapping the cached templates.
func (e *Engine) load() (executor, error) {
	e.mx.RLock()
	tpl, signature := e.tpl, e.signature
	e.mx.RUnlock()

	if tpl != nil && !e.opts.AutoReload {
		return tpl, nil
	}

	files, newSignature, err := e.scan()
	if err != nil {
		return nil, err
	}
	if tpl != nil && newSignature == signature {
		return tpl, nil
	}

	parsed, err := e.parse(files)
	if err != nil {
		return nil, err
	}

	e.mx.Lock()
	defer e.mx.Unlock()
	switch {
	case e.tpl != nil && !e.opts.AutoReload:
		// Another render loaded the templates first.
		return e.tpl, nil
	case e.tpl != nil:
		e.logger.Debug("reloaded templates", "path", e.opts.Path)
	}
	e.tpl, e.signature = parsed, newSignature

	return parsed, nil
}

// scan returns the template file paths relative to the template directory,
// and a signature that changes whenever any of the files is added, removed or
// modified.
func (e *Engine) scan() ([]string, string, error) {
	var (
		files []string
		sig   strings.Builder
	)
	err := vfs.Walk(e.fs, e.opts.Path, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !slices.Contains(e.opts.Extensions, path.Ext(p)) {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, e.opts.Path), "/")
		files = append(files, rel)
		fmt.Fprintf(&sig, "%s:%d:%d;", rel, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed scanning template directory '%s': %w", e.opts.Path, err)
	}

	return files, sig.String(), nil
}

func (e *Engine) parse(files []string) (executor, error) {
	var (
		htpl = htmltemplate.New("").Delims(e.opts.LeftDelim, e.opts.RightDelim).
			Funcs(htmltemplate.FuncMap(e.opts.Filters))
		ttpl = texttemplate.New("").Delims(e.opts.LeftDelim, e.opts.RightDelim).
			Funcs(texttemplate.FuncMap(e.opts.Filters))
	)

	for _, name := range files {
		data, err := vfs.ReadFile(e.fs, path.Join(e.opts.Path, name))
		if err != nil {
			return nil, fmt.Errorf("failed reading template '%s': %w", name, err)
		}

		if e.opts.AutoEscape {
			_, err = htpl.New(name).Parse(string(data))
		} else {
			_, err = ttpl.New(name).Parse(string(data))
		}
		if err != nil {
			return nil, fmt.Errorf("failed parsing template '%s': %w", name, err)
		}
	}

	if e.opts.AutoEscape {
		return htpl, nil
	}

	return ttpl, nil
}
