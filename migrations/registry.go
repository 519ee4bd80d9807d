package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	supertokens "github.com/goliatone/go-supertokens"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	defaultSourceLabel = "go-supertokens"
	migrationsDir      = "data/sql/migrations"
	upSuffix           = ".up.sql"
	downSuffix         = ".down.sql"
)

// dialectDirs maps each dialect to its directory below the migrations root.
var dialectDirs = []struct {
	dialect string
	dir     string
}{
	{dialect: DialectPostgres, dir: "."},
	{dialect: DialectSQLite, dir: "sqlite"},
}

type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc hands one dialect filesystem to the host migrator, usually
// go-persistence-bun's RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets limits registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(targets); len(normalized) > 0 {
			r.ValidationTargets = normalized
		}
	}
}

// WithFilesystems replaces the embedded filesystems, for hosts shipping their
// own copy of the outbox schema.
func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		var kept []FilesystemSpec
		for _, spec := range filesystems {
			dialect := normalizeDialect(spec.Dialect)
			if dialect == "" || spec.FS == nil {
				continue
			}
			kept = append(kept, FilesystemSpec{Dialect: dialect, Path: spec.Path, FS: spec.FS})
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems resolves one filesystem per dialect from source, or from the
// embedded migrations when source is omitted. Every dialect must carry at
// least one migration and every up file needs its down file.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	var source fs.FS = supertokens.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		source = sources[0]
	}
	root, rootPath, err := resolveRoot(source)
	if err != nil {
		return nil, err
	}

	specs := make([]FilesystemSpec, 0, len(dialectDirs))
	for _, entry := range dialectDirs {
		fsys := root
		if entry.dir != "." {
			fsys, err = fs.Sub(root, entry.dir)
			if err != nil {
				return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", entry.dialect, err)
			}
		}
		spec := FilesystemSpec{Dialect: entry.dialect, Path: joinPath(rootPath, entry.dir), FS: fsys}
		if _, err := Versions(spec); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Versions lists the migration names of a filesystem in apply order, without the
// .up.sql suffix.
func Versions(spec FilesystemSpec) ([]string, error) {
	if spec.FS == nil {
		return nil, fmt.Errorf("migrations: filesystem for %s is nil", spec.Dialect)
	}
	ups, err := fs.Glob(spec.FS, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s filesystem %q has no *%s files", spec.Dialect, spec.Path, upSuffix)
	}
	sort.Strings(ups)
	versions := make([]string, 0, len(ups))
	for _, up := range ups {
		name := strings.TrimSuffix(up, upSuffix)
		if _, err := fs.Stat(spec.FS, name+downSuffix); err != nil {
			return nil, fmt.Errorf("migrations: %s migration %s has no %s file", spec.Dialect, name, downSuffix)
		}
		versions = append(versions, name)
	}
	return versions, nil
}

// Register hands each targeted dialect filesystem to registerFn, postgres
// first.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       defaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func resolveRoot(source fs.FS) (fs.FS, string, error) {
	if _, err := fs.Stat(source, migrationsDir); err == nil {
		sub, err := fs.Sub(source, migrationsDir)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: open %s: %w", migrationsDir, err)
		}
		return sub, migrationsDir, nil
	}
	// a source may already point at the migrations directory itself
	if matches, err := fs.Glob(source, "*.sql"); err == nil && len(matches) > 0 {
		return source, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func normalizeDialect(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizeDialects(values []string) []string {
	var out []string
	for _, value := range values {
		dialect := normalizeDialect(value)
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}

func joinPath(base string, dir string) string {
	switch {
	case dir == ".":
		return base
	case base == ".":
		return dir
	default:
		return strings.TrimSuffix(base, "/") + "/" + dir
	}
}
