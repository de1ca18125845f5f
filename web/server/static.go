package server

import (
	"io/fs"
	"net/http"
	"path"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// staticFS serves files under root from a virtual filesystem. Directory
// listings are disabled.
type staticFS struct {
	fs   vfs.FileSystem
	root string
}

var _ http.FileSystem = (*staticFS)(nil)

// Open implements the http.FileSystem interface.
func (s *staticFS) Open(name string) (http.File, error) {
	p := path.Join(s.root, path.Clean("/"+name))
	info, err := s.fs.Stat(p)
	if vfs.IsErrNotExist(err) || (err == nil && info.IsDir()) {
		return nil, fs.ErrNotExist
	}
	if err != nil {
		return nil, err //nolint:wrapcheck // Mapped to a status code by http.FileServer.
	}

	return s.fs.Open(p) //nolint:wrapcheck // Same as above.
}
