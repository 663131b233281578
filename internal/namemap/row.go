package namemap

import (
	"sort"
	"strings"
)

// Raw row key suffixes. A raw configuration row names each environment's values
// as "{tag}ClusterName" and "{tag}DatabaseName".
const (
	ClusterKeySuffix  = "ClusterName"
	DatabaseKeySuffix = "DatabaseName"
)

// EnvironmentTag identifies a deployment environment ("cloud") with its own
// resource naming. The set of tags is defined by the caller's row schema.
type EnvironmentTag string

// ClusterIdentifier is an opaque cluster name.
type ClusterIdentifier string

// DatabaseIdentifier is an opaque database name.
type DatabaseIdentifier string

// Names is the cluster/database name pair of one environment.
// An empty string means the value is absent.
type Names struct {
	Cluster  string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

// Complete reports whether both names are present.
func (n Names) Complete() bool {
	return n.Cluster != "" && n.Database != ""
}

// EnvironmentRow is one logical resource named per environment.
type EnvironmentRow map[EnvironmentTag]Names

// Valid reports whether the row can be indexed for the given home environment:
// the home cluster and home database must both be present.
func (r EnvironmentRow) Valid(home EnvironmentTag) bool {
	names, ok := r[home]
	return ok && names.Complete()
}

// Tags returns the row's environment tags in sorted order.
func (r EnvironmentRow) Tags() []EnvironmentTag {
	tags := make([]EnvironmentTag, 0, len(r))
	for tag := range r {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Clone returns a copy that shares no storage with r.
func (r EnvironmentRow) Clone() EnvironmentRow {
	if r == nil {
		return nil
	}
	out := make(EnvironmentRow, len(r))
	for tag, names := range r {
		out[tag] = names
	}
	return out
}

// ParseRow converts a raw configuration row into an EnvironmentRow.
//
// Keys ending in "ClusterName" or "DatabaseName" (suffix compared
// case-insensitively) contribute to the environment named by the key prefix.
// Other keys and keys with an empty prefix are ignored. Values are trimmed;
// an empty value is treated as absent.
func ParseRow(raw map[string]string) EnvironmentRow {
	row := make(EnvironmentRow, len(raw)/2)
	for key, value := range raw {
		tag, isCluster, ok := splitKey(key)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		names := row[tag]
		if isCluster {
			names.Cluster = value
		} else {
			names.Database = value
		}
		row[tag] = names
	}
	// Drop environments that ended up with no values at all.
	for tag, names := range row {
		if names.Cluster == "" && names.Database == "" {
			delete(row, tag)
		}
	}
	return row
}

// ParseRows applies ParseRow to every raw row, preserving order.
func ParseRows(raw []map[string]string) []EnvironmentRow {
	rows := make([]EnvironmentRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, ParseRow(r))
	}
	return rows
}

// RawRow renders the row back into the raw "{tag}ClusterName" key shape.
// Absent values are omitted.
func (r EnvironmentRow) RawRow() map[string]string {
	out := make(map[string]string, len(r)*2)
	for tag, names := range r {
		if names.Cluster != "" {
			out[string(tag)+ClusterKeySuffix] = names.Cluster
		}
		if names.Database != "" {
			out[string(tag)+DatabaseKeySuffix] = names.Database
		}
	}
	return out
}

func splitKey(key string) (EnvironmentTag, bool, bool) {
	key = strings.TrimSpace(key)
	if tag, ok := cutSuffixFold(key, ClusterKeySuffix); ok {
		return EnvironmentTag(tag), true, true
	}
	if tag, ok := cutSuffixFold(key, DatabaseKeySuffix); ok {
		return EnvironmentTag(tag), false, true
	}
	return "", false, false
}

func cutSuffixFold(s, suffix string) (string, bool) {
	if len(s) <= len(suffix) {
		return "", false
	}
	cut := len(s) - len(suffix)
	if !strings.EqualFold(s[cut:], suffix) {
		return "", false
	}
	return s[:cut], true
}
