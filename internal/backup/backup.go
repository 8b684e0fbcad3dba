// Package backup creates, lists and restores zip archives of a MentorTrack
// installation.
package backup

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind selects what an archive contains.
type Kind string

const (
	KindFull Kind = "full" // everything under the root, minus build and VCS noise
	KindData Kind = "data" // database and uploads
	KindCode Kind = "code" // source and static assets, minus uploads
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "MANIFEST.json"

const timestampLayout = "20060102_150405"

// Directories never included in a full backup.
var skipDirs = map[string]bool{
	".git":         true,
	"backups":      true,
	"vendor":       true,
	"node_modules": true,
}

// ErrUnsafePath is returned when an archive entry would extract outside the
// destination directory.
var ErrUnsafePath = errors.New("backup: unsafe path in archive")

// ParseKind validates a backup kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindFull, KindData, KindCode:
		return k, nil
	}
	return "", fmt.Errorf("backup: unknown kind %q (want full, data or code)", s)
}

// Options holds parameters for Create.
type Options struct {
	Kind      Kind
	Root      string   // installation directory; archive paths are relative to it
	Dir       string   // where archives are written
	DataPaths []string // relative to Root, for KindData
	CodePaths []string // relative to Root, for KindCode
	Now       func() time.Time
}

// Manifest records what an archive holds.
type Manifest struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
}

// Archive describes a backup file on disk.
type Archive struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Create writes a new archive and returns its description and manifest.
func Create(opts Options) (*Archive, *Manifest, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Dir == "" {
		opts.Dir = "backups"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if _, err := ParseKind(string(opts.Kind)); err != nil {
		return nil, nil, err
	}

	files, err := collect(opts)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("backup: create dir %s: %w", opts.Dir, err)
	}
	now := opts.Now()
	name := fmt.Sprintf("MentorTrack_Backup_%s_%s.zip", opts.Kind, now.Format(timestampLayout))
	archivePath := filepath.Join(opts.Dir, name)

	manifest := &Manifest{
		ID:        uuid.NewString(),
		Kind:      opts.Kind,
		CreatedAt: now.UTC(),
		Files:     len(files),
	}
	if err := writeArchive(archivePath, opts.Root, files, manifest); err != nil {
		os.Remove(archivePath)
		return nil, nil, err
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("backup: stat %s: %w", archivePath, err)
	}
	return &Archive{Name: name, Path: archivePath, Size: info.Size(), ModTime: info.ModTime()}, manifest, nil
}

// collect returns slash-separated paths, relative to opts.Root, of the files
// the archive should contain, sorted.
func collect(opts Options) ([]string, error) {
	var files []string
	add := func(rel string) { files = append(files, filepath.ToSlash(rel)) }

	switch opts.Kind {
	case KindFull:
		outDir, _ := filepath.Abs(opts.Dir)
		err := filepath.WalkDir(opts.Root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(opts.Root, p)
			if d.IsDir() {
				abs, _ := filepath.Abs(p)
				if rel != "." && (skipDirs[d.Name()] || abs == outDir) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || strings.HasSuffix(d.Name(), ".log") {
				return nil
			}
			add(rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("backup: walk %s: %w", opts.Root, err)
		}
	case KindData:
		if err := collectPaths(opts.Root, opts.DataPaths, nil, add); err != nil {
			return nil, err
		}
	case KindCode:
		skipUploads := func(rel string) bool {
			for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
				if part == "uploads" {
					return true
				}
			}
			return false
		}
		if err := collectPaths(opts.Root, opts.CodePaths, skipUploads, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// collectPaths adds each listed file, or every regular file under each listed
// directory. Missing paths are skipped.
func collectPaths(root string, paths []string, skip func(rel string) bool, add func(string)) error {
	for _, p := range paths {
		full := filepath.Join(root, p)
		info, err := os.Stat(full)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("backup: stat %s: %w", full, err)
		}
		if !info.IsDir() {
			if skip == nil || !skip(p) {
				add(filepath.Clean(p))
			}
			continue
		}
		err = filepath.WalkDir(full, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, _ := filepath.Rel(root, fp)
			if skip != nil && skip(rel) {
				return nil
			}
			add(rel)
			return nil
		})
		if err != nil {
			return fmt.Errorf("backup: walk %s: %w", full, err)
		}
	}
	return nil
}

func writeArchive(archivePath, root string, files []string, manifest *Manifest) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", archivePath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, rel := range files {
		if err := addFile(zw, root, rel); err != nil {
			zw.Close()
			return err
		}
	}

	w, err := zw.Create(ManifestName)
	if err != nil {
		zw.Close()
		return fmt.Errorf("backup: write manifest: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		zw.Close()
		return fmt.Errorf("backup: write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("backup: finalize %s: %w", archivePath, err)
	}
	return out.Close()
}

func addFile(zw *zip.Writer, root, rel string) error {
	src := filepath.Join(root, filepath.FromSlash(rel))
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("backup: stat %s: %w", src, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("backup: header %s: %w", src, err)
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("backup: add %s: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("backup: copy %s: %w", rel, err)
	}
	return nil
}

// List returns the archives in dir, newest first. A missing dir yields an
// empty list.
func List(dir string) ([]Archive, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list %s: %w", dir, err)
	}

	var archives []Archive
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("backup: stat %s: %w", e.Name(), err)
		}
		archives = append(archives, Archive{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].ModTime.Equal(archives[j].ModTime) {
			return archives[i].ModTime.After(archives[j].ModTime)
		}
		return archives[i].Name > archives[j].Name
	})
	return archives, nil
}

// ReadManifest returns the manifest stored in an archive.
func ReadManifest(archivePath string) (*Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("backup: open %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("backup: read manifest: %w", err)
		}
		defer rc.Close()
		var m Manifest
		if err := json.NewDecoder(rc).Decode(&m); err != nil {
			return nil, fmt.Errorf("backup: decode manifest: %w", err)
		}
		return &m, nil
	}
	return nil, fmt.Errorf("backup: %s has no %s", archivePath, ManifestName)
}

// Restore extracts an archive into dest, overwriting existing files, and
// returns the number of files written. The whole archive is checked before
// anything is written; entries that would land outside dest are rejected.
func Restore(archivePath, dest string) (int, error) {
	zr, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return 0, fmt.Errorf("%w: %s", ErrUnsafePath, archivePath)
	}
	if err != nil {
		return 0, fmt.Errorf("backup: open %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if !safeEntry(f.Name) {
			return 0, fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
	}

	n := 0
	for _, f := range zr.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		if err := extract(f, filepath.Join(dest, filepath.FromSlash(f.Name))); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// safeEntry reports whether name is a relative path that stays inside the
// extraction root.
func safeEntry(name string) bool {
	if name == "" || strings.Contains(name, `\`) || path.IsAbs(name) || filepath.IsAbs(name) {
		return false
	}
	clean := path.Clean(name)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("backup: create dir for %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("backup: open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("backup: write %s: %w", target, err)
	}
	return out.Close()
}
