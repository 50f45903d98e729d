package specfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/vtab/tables"
)

// BlacklistName is the file at the root of a spec tree listing tables to skip.
const BlacklistName = "blacklist"

// CommonPlatform labels specs found at the root of a tree.
const CommonPlatform = "specs"

// File is a declaration found by Walk.
type File struct {
	Path     string
	Platform string
	Table    *tables.Table
}

// Walk collects the declarations under root that apply to platform: files
// at the root plus files in the root/<platform> directory. Other directories,
// dotfiles and blacklisted tables are skipped. A non-empty restrict keeps
// only the named tables. Files are parsed concurrently and returned in
// walk order.
func (l *Loader) Walk(root, platform string, restrict []string) ([]*File, error) {
	bl, err := readBlacklist(filepath.Join(root, BlacklistName))
	if err != nil {
		return nil, err
	}

	var files []*File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == "." || rel == platform {
				return nil
			}
			log.Debug().Str("dir", path).Msg("skipping spec directory for another platform")
			return fs.SkipDir
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, Ext) {
			return nil
		}

		specPlatform := CommonPlatform
		if filepath.Dir(rel) != "." {
			specPlatform = platform
		}
		tableName := strings.TrimSuffix(name, Ext)
		if bl.skips(specPlatform, tableName) {
			log.Debug().Str("table", tableName).Str("platform", specPlatform).Msg("skipping blacklisted table")
			return nil
		}
		if len(restrict) > 0 && !slices.Contains(restrict, tableName) {
			return nil
		}

		files = append(files, &File{Path: path, Platform: specPlatform})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range files {
		g.Go(func() error {
			t, err := l.ParseFile(f.Path)
			if err != nil {
				return err
			}
			f.Table = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// Walk uses the default Loader.
func Walk(root, platform string, restrict []string) ([]*File, error) {
	return (&Loader{}).Walk(root, platform, restrict)
}

// Load registers every walked table into reg, failing on duplicate names.
func Load(reg *tables.Registry, files []*File) error {
	for _, f := range files {
		if err := reg.Register(f.Table); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
	}
	return nil
}

// Tables extracts the descriptors from walked files.
func Tables(files []*File) []*tables.Table {
	out := make([]*tables.Table, len(files))
	for i, f := range files {
		out[i] = f.Table
	}
	return out
}

// blacklist entries are "table" (every platform) or "platform:table".
type blacklist map[string]bool

func (b blacklist) skips(platform, table string) bool {
	return b[table] || b[platform+":"+table]
}

func readBlacklist(path string) (blacklist, error) {
	bl := blacklist{}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return bl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading blacklist: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			bl[line] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading blacklist: %w", err)
	}
	return bl, nil
}
