package projecthub

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// StaticFS serves a single page app build with etags, cache control and a fallback document.
// Paths that do not exist resolve to the fallback so client side routes can be deep linked.
type StaticFS struct {
	fsys http.FileSystem
	// etags maps every file path to the sha1 of its content
	etags map[string]string
	// cacheControl maps every file path to its Cache-Control header
	cacheControl map[string]string
	fallbackFile string
}

// NewStaticFS hashes every file of fsys. cacheControl maps path globs to Cache-Control values,
// the first matching glob wins.
func NewStaticFS(fsys fs.FS, fallback string, cacheControl map[string]string) (*StaticFS, error) {
	if _, err := fs.Stat(fsys, fallback); err != nil {
		return nil, fmt.Errorf("fallback file %s: %w", fallback, err)
	}

	s := &StaticFS{
		fsys:         http.FS(fsys),
		etags:        make(map[string]string),
		cacheControl: make(map[string]string),
		fallbackFile: fallback,
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		etag, err := hashFile(fsys, p)
		if err != nil {
			return err
		}
		s.etags[p] = etag
		for glob, cc := range cacheControl {
			matched, err := path.Match(glob, p)
			if err != nil {
				return fmt.Errorf("matching %s: %w", glob, err)
			}
			if matched {
				s.cacheControl[p] = cc
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking static files: %w", err)
	}
	return s, nil
}

func hashFile(fsys fs.FS, p string) (string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", p, err)
	}
	defer f.Close()
	hasher := sha1.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", p, err)
	}
	return fmt.Sprintf(`"%x"`, hasher.Sum(nil)), nil
}

// Open returns the named file, or the fallback file when it does not exist.
func (s *StaticFS) Open(name string) (http.File, error) {
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return s.fsys.Open("/" + s.fallbackFile)
	}
	return f, err
}

func (s *StaticFS) resolve(urlPath string) string {
	p := strings.TrimPrefix(urlPath, "/")
	if _, ok := s.etags[p]; !ok {
		return s.fallbackFile
	}
	return p
}

// Handler serves the files, answering 304 when the client already holds the current version.
func (s *StaticFS) Handler() http.Handler {
	files := http.FileServer(s)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := s.resolve(r.URL.Path)
		etag := s.etags[p]
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Etag", etag)
		if cc, ok := s.cacheControl[p]; ok {
			w.Header().Set("Cache-Control", cc)
		}
		if p == s.fallbackFile {
			// FileServer redirects requests for index.html to the directory
			r.URL.Path = "/"
			if p != "index.html" {
				r.URL.Path = "/" + p
			}
		}
		files.ServeHTTP(w, r)
	})
}
