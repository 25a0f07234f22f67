package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DiskStore keeps product images under <root>/<productsDir> and maps them to public
// URL paths of the form /<productsDir>/<file>.
type DiskStore struct {
	root      string
	dir       string
	publicDir string
}

func NewDiskStore(root, productsDir string) (*DiskStore, error) {
	productsDir = strings.Trim(filepath.ToSlash(productsDir), "/")
	dir := filepath.Join(root, filepath.FromSlash(productsDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create products directory: %w", err)
	}

	return &DiskStore{
		root:      root,
		dir:       dir,
		publicDir: "/" + productsDir + "/",
	}, nil
}

// Dir is the filesystem directory holding the images
func (s *DiskStore) Dir() string {
	return s.dir
}

// PublicDir is the URL prefix of every stored image, with a trailing slash
func (s *DiskStore) PublicDir() string {
	return s.publicDir
}

// Save writes r to a new file called name and returns its filesystem path
func (s *DiskStore) Save(name string, r io.Reader) (string, error) {
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	target := filepath.Join(s.dir, name)
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}

	return target, nil
}

// PublicPath converts a filesystem path inside the store to its public form
func (s *DiskStore) PublicPath(fsPath string) (string, error) {
	rel, err := filepath.Rel(s.dir, fsPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(filepath.ToSlash(rel), '/') {
		return "", fmt.Errorf("%s: %w", fsPath, ErrOutsideStore)
	}
	return s.publicDir + rel, nil
}

// Resolve maps a public path back onto the filesystem. Only files directly inside the
// products directory resolve.
func (s *DiskStore) Resolve(publicPath string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(publicPath, "."))
	if !strings.HasPrefix(cleaned, s.publicDir) {
		return "", fmt.Errorf("%s: %w", publicPath, ErrOutsideStore)
	}

	name := strings.TrimPrefix(cleaned, s.publicDir)
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%s: %w", publicPath, ErrOutsideStore)
	}
	return filepath.Join(s.dir, name), nil
}

// Exists reports whether the public path names a regular file in the store
func (s *DiskStore) Exists(publicPath string) bool {
	fsPath, err := s.Resolve(publicPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(fsPath)
	return err == nil && info.Mode().IsRegular()
}

// RemovalOutcome is the result of deleting one path
type RemovalOutcome struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Removed reports whether the file is gone because of this call
func (o RemovalOutcome) Removed() bool {
	return o.Err == nil
}

// RemovalReport lists the outcome of every requested path, in request order
type RemovalReport struct {
	Outcomes []RemovalOutcome
}

// AllRemoved is true when every path was deleted. An empty report counts as success.
func (r RemovalReport) AllRemoved() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not remove their file
func (r RemovalReport) Failed() []RemovalOutcome {
	var failed []RemovalOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Remove deletes every public path independently and concurrently. A failure on one
// path never stops the others; each failure is reported in its outcome.
func (s *DiskStore) Remove(ctx context.Context, publicPaths []string) RemovalReport {
	report := RemovalReport{Outcomes: make([]RemovalOutcome, len(publicPaths))}

	var g errgroup.Group
	g.SetLimit(8)
	for i, p := range publicPaths {
		g.Go(func() error {
			report.Outcomes[i] = RemovalOutcome{Path: p, Err: s.removeOne(ctx, p)}
			return nil
		})
	}
	g.Wait()

	return report
}

func (s *DiskStore) removeOne(ctx context.Context, publicPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fsPath, err := s.Resolve(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fsPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w", publicPath, err)
	}
	return nil
}

// RemoveFiles deletes filesystem paths inside the store, ignoring files that are already gone.
// It is used to clean up after failed uploads.
func (s *DiskStore) RemoveFiles(fsPaths ...string) {
	for _, p := range fsPaths {
		if p == "" {
			continue
		}
		if _, err := s.PublicPath(p); err != nil {
			continue
		}
		_ = os.Remove(p)
	}
}
