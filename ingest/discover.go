package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sheaf "github.com/ogersten/sheaf"
)

// Discovery is one entry produced by Discover: either a valid document or a
// per-folder validation failure. Err is non-nil exactly when the folder
// violated the one-markdown-file rule; such entries still occupy their slot
// so the batch report shows them as failed.
type Discovery struct {
	Doc sheaf.Document
	Err *sheaf.ErrFolder
}

// Discover scans root for ingestible documents.
//
// Two layouts are supported: a root whose immediate subfolders each hold one
// markdown file (the batch layout), and a root that itself holds exactly one
// markdown file (a single document). Entries come back in sorted folder
// order, so repeated runs over an unchanged tree yield the same sequence.
//
// A folder with zero or multiple markdown files produces a Discovery with a
// non-nil Err; it never aborts discovery of its siblings. Only an invalid
// root is an error.
func Discover(root string) ([]Discovery, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("root folder: %w", err)
	}

	// Single-document layout: the root itself holds markdown.
	if mds, err := markdownFiles(absRoot); err == nil && len(mds) > 0 {
		return []Discovery{describeFolder(absRoot, mds)}, nil
	}

	entries, err := os.ReadDir(absRoot)
	if err != nil {
		return nil, fmt.Errorf("read root folder: %w", err)
	}

	var found []Discovery
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(absRoot, e.Name())
		mds, err := markdownFiles(dir)
		if err != nil {
			found = append(found, Discovery{
				Doc: sheaf.Document{ID: e.Name(), Dir: dir},
				Err: &sheaf.ErrFolder{Dir: dir, Reason: err.Error()},
			})
			continue
		}
		found = append(found, describeFolder(dir, mds))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Doc.ID < found[j].Doc.ID })
	return found, nil
}

// describeFolder builds the Discovery entry for one candidate folder given
// its markdown files.
func describeFolder(dir string, mds []string) Discovery {
	id := filepath.Base(dir)
	switch len(mds) {
	case 1:
		return Discovery{Doc: sheaf.Document{
			ID:           id,
			Dir:          dir,
			MarkdownPath: mds[0],
			ImagePaths:   imageFiles(dir),
			DiscoveredAt: time.Now(),
		}}
	case 0:
		return Discovery{
			Doc: sheaf.Document{ID: id, Dir: dir},
			Err: &sheaf.ErrFolder{Dir: dir, Reason: "no markdown file found"},
		}
	default:
		names := make([]string, len(mds))
		for i, m := range mds {
			names[i] = filepath.Base(m)
		}
		return Discovery{
			Doc: sheaf.Document{ID: id, Dir: dir},
			Err: &sheaf.ErrFolder{
				Dir:    dir,
				Reason: "multiple markdown files found: " + strings.Join(names, ", "),
			},
		}
	}
}

// markdownFiles lists the .md files directly inside dir (non-recursive).
func markdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var mds []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			mds = append(mds, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(mds)
	return mds, nil
}

// imageFiles recursively collects image paths under dir using the fixed
// extension allow-list. Unreadable subtrees are skipped, not fatal.
func imageFiles(dir string) []string {
	var images []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
			images = append(images, path)
		}
		return nil
	})
	sort.Strings(images)
	return images
}
