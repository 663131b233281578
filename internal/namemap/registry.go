// Package namemap resolves cluster and database names across deployment
// environments.
//
// A NameRegistry is built once from rows that describe the same logical
// resource as it is named in several environments, and then answers lookups
// that translate any known alias into the name used by the registry's home
// environment. A built registry is immutable and safe for concurrent readers
// without locking; rebuilding means constructing a new registry and swapping
// it in through a Holder.
package namemap

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// ErrUnknownHomeEnvironment is returned by Build in strict mode when the home
// environment is not one of the recognized tags.
var ErrUnknownHomeEnvironment = errors.New("unknown home environment")

// target is the home-environment name pair an alias resolves to.
type target struct {
	cluster  string
	database string
}

// NameRegistry is an immutable index from cluster/database aliases to their
// home-environment names. A nil *NameRegistry behaves as an empty registry.
type NameRegistry struct {
	home         EnvironmentTag
	byAlias      map[string]target
	byCluster    map[string]target
	byDatabase   map[string]target
	rows         int
	dropped      int
	environments []EnvironmentTag
}

type options struct {
	logger *zap.Logger
	known  []EnvironmentTag
	strict bool
}

// Option configures registry construction.
type Option func(*options)

// WithLogger sets the logger used to report dropped rows and home tag problems.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithKnownEnvironments declares the environment tags the caller's row schema
// defines. The home tag is checked against this set.
func WithKnownEnvironments(tags ...EnvironmentTag) Option {
	return func(o *options) {
		o.known = append(o.known, tags...)
	}
}

// WithStrictHome makes Build fail when the home tag cannot match any row:
// either it is outside the known environments, or, with no known set, no
// input row mentions it.
func WithStrictHome() Option {
	return func(o *options) {
		o.strict = true
	}
}

// NewNameRegistry builds a registry for the home environment from rows.
//
// Rows whose home cluster or home database is missing are dropped entirely.
// When two rows produce the same alias, the later row wins. Construction never
// fails; an unrecognized home tag yields an empty registry and a logged
// warning. Use Build with WithStrictHome to turn that case into an error.
func NewNameRegistry(home EnvironmentTag, rows []EnvironmentRow, opts ...Option) *NameRegistry {
	o := buildOptions(opts)
	r := index(home, rows, o.logger)
	switch {
	case !homeRecognized(home, rows, o.known):
		o.logger.Warn("home environment matches no rows; registry is empty",
			zap.String("home", string(home)),
			zap.Int("rows", len(rows)),
		)
	case r.rows == 0 && r.dropped > 0:
		o.logger.Warn("every row lacks a home cluster or database; registry is empty",
			zap.String("home", string(home)),
			zap.Int("dropped", r.dropped),
		)
	}
	return r
}

// Build is like NewNameRegistry but returns ErrUnknownHomeEnvironment when
// WithStrictHome is set and the home tag is not recognized.
func Build(home EnvironmentTag, rows []EnvironmentRow, opts ...Option) (*NameRegistry, error) {
	o := buildOptions(opts)
	if o.strict && !homeRecognized(home, rows, o.known) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHomeEnvironment, home)
	}
	return NewNameRegistry(home, rows, opts...), nil
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// homeRecognized reports whether home can ever match a row. With a known tag
// set it is a membership test; otherwise home must appear in some input row.
// An empty input is recognized so that an empty registry is not an error.
func homeRecognized(home EnvironmentTag, rows []EnvironmentRow, known []EnvironmentTag) bool {
	if len(known) > 0 {
		return slices.Contains(known, home)
	}
	if len(rows) == 0 {
		return true
	}
	for _, row := range rows {
		if _, ok := row[home]; ok {
			return true
		}
	}
	return false
}

func index(home EnvironmentTag, rows []EnvironmentRow, logger *zap.Logger) *NameRegistry {
	r := &NameRegistry{
		home:       home,
		byAlias:    make(map[string]target, 2*len(rows)),
		byCluster:  make(map[string]target, len(rows)),
		byDatabase: make(map[string]target, len(rows)),
	}
	seen := make(map[EnvironmentTag]struct{})

	for i, row := range rows {
		if !row.Valid(home) {
			r.dropped++
			logger.Debug("dropping row without home cluster and database",
				zap.Int("row", i),
				zap.String("home", string(home)),
			)
			continue
		}
		r.rows++

		homeNames := row[home]
		t := target{cluster: homeNames.Cluster, database: homeNames.Database}

		// Sorted iteration keeps overwrites within one row deterministic.
		for _, tag := range row.Tags() {
			names := row[tag]
			if names.Cluster == "" && names.Database == "" {
				continue
			}
			seen[tag] = struct{}{}
			if names.Cluster != "" {
				key := foldKey(names.Cluster)
				r.byAlias[key] = t
				r.byCluster[key] = t
			}
			if names.Database != "" {
				key := foldKey(names.Database)
				r.byAlias[key] = t
				r.byDatabase[key] = t
			}
		}
	}

	r.environments = make([]EnvironmentTag, 0, len(seen))
	for tag := range seen {
		r.environments = append(r.environments, tag)
	}
	slices.Sort(r.environments)
	return r
}

// foldKey normalizes an alias for case-insensitive comparison.
// A Caser holds state, so each call gets its own.
func foldKey(s string) string {
	return cases.Fold().String(s)
}

// MapCluster returns the home-environment cluster name for an alias in any
// environment, or nil when the name is unknown. Cluster and database aliases
// share one index, so a name resolves to the same row here and in MapDatabase.
func (r *NameRegistry) MapCluster(name string) *string {
	t, ok := r.lookup(name)
	if !ok {
		return nil
	}
	cluster := t.cluster
	return &cluster
}

// MapDatabase returns the home-environment database name for an alias in any
// environment, or nil when the name is unknown.
func (r *NameRegistry) MapDatabase(name string) *string {
	t, ok := r.lookup(name)
	if !ok {
		return nil
	}
	database := t.database
	return &database
}

// TryGetDatabase returns the home database paired with the cluster alias.
func (r *NameRegistry) TryGetDatabase(cluster ClusterIdentifier) (string, bool) {
	if r == nil {
		return "", false
	}
	t, ok := r.byCluster[foldKey(string(cluster))]
	if !ok {
		return "", false
	}
	return t.database, true
}

// TryGetCluster returns the home cluster paired with the database alias.
func (r *NameRegistry) TryGetCluster(database DatabaseIdentifier) (string, bool) {
	if r == nil {
		return "", false
	}
	t, ok := r.byDatabase[foldKey(string(database))]
	if !ok {
		return "", false
	}
	return t.cluster, true
}

func (r *NameRegistry) lookup(name string) (target, bool) {
	if r == nil || name == "" {
		return target{}, false
	}
	t, ok := r.byAlias[foldKey(name)]
	return t, ok
}

// Home returns the registry's home environment.
func (r *NameRegistry) Home() EnvironmentTag {
	if r == nil {
		return ""
	}
	return r.home
}

// Len returns the number of indexed aliases, counting cluster and database
// aliases separately.
func (r *NameRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byCluster) + len(r.byDatabase)
}

// Rows returns the number of indexed rows.
func (r *NameRegistry) Rows() int {
	if r == nil {
		return 0
	}
	return r.rows
}

// Dropped returns the number of rows discarded for missing home names.
func (r *NameRegistry) Dropped() int {
	if r == nil {
		return 0
	}
	return r.dropped
}

// Environments returns the sorted tags that contributed aliases.
func (r *NameRegistry) Environments() []EnvironmentTag {
	if r == nil {
		return nil
	}
	return slices.Clone(r.environments)
}

// Empty reports whether no alias is indexed.
func (r *NameRegistry) Empty() bool {
	return r.Len() == 0
}
