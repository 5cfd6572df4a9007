package migration

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kyleking/schemaflow/internal/errors"
	"github.com/kyleking/schemaflow/internal/schema"
)

// PlanHook post-processes the computed plan of a version, for example to
// turn a drop and add pair into something the diff cannot infer.
type PlanHook func(Plan) Plan

// IdentityHook returns the plan unchanged
func IdentityHook(p Plan) Plan { return p }

// Version is one entry of a schema history
type Version struct {
	Schema   schema.Descriptor
	PlanHook PlanHook
}

// History maps version names such as "v1" to schema versions
type History map[string]Version

var versionNumber = regexp.MustCompile(`(\d+)$`)

// versionKey extracts the numeric suffix of a version name
func versionKey(name string) (int, bool) {
	match := versionNumber.FindString(name)
	if match == "" {
		return 0, false
	}

	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}

	return n, true
}

// SortVersions orders names by numeric suffix, so v2 precedes v10.
// Names without a number sort after numbered ones; ties sort by name.
func SortVersions(names []string) []string {
	sorted := append([]string(nil), names...)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := versionKey(sorted[i])
		b, bok := versionKey(sorted[j])

		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		default:
			return sorted[i] < sorted[j]
		}
	})

	return sorted
}

// Versions returns the history's version names in order
func (h History) Versions() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}

	return SortVersions(names)
}

// Latest returns the newest version name and descriptor
func (h History) Latest() (string, schema.Descriptor, bool) {
	versions := h.Versions()
	if len(versions) == 0 {
		return "", nil, false
	}

	name := versions[len(versions)-1]

	return name, h[name].Schema, true
}

// VersionPlan is the plan computed for one version transition
type VersionPlan struct {
	Version string
	Raw     Plan
	Plan    Plan
	Schema  schema.SchemaInfo
}

// Plans walks the history in order, diffing each version against the
// previous one (an empty schema before the first) and applying its hook.
func Plans(h History) []VersionPlan {
	previous := schema.NewSchemaInfo()
	plans := make([]VersionPlan, 0, len(h))

	for _, name := range h.Versions() {
		version := h[name]
		current := schema.ExtractSchemaInfo(version.Schema)

		raw := Compare(previous, current)
		plan := raw

		if version.PlanHook != nil {
			plan = version.PlanHook(append(Plan(nil), raw...))
		}

		plans = append(plans, VersionPlan{Version: name, Raw: raw, Plan: plan, Schema: current})
		previous = current
	}

	return plans
}

// Named is a compiled migration with its version name
type Named[DB any] struct {
	Name string
	Migration[DB]
}

// Migrations is an ordered list of compiled migrations
type Migrations[DB any] []Named[DB]

// Names returns the version names in order
func (m Migrations[DB]) Names() []string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name
	}

	return names
}

// Get returns the migration with the given name
func (m Migrations[DB]) Get(name string) (Migration[DB], bool) {
	for _, n := range m {
		if n.Name == name {
			return n.Migration, true
		}
	}

	return Migration[DB]{}, false
}

// Generate compiles one migration per version transition, in history order
func Generate[DB any](h History, c Compiler[DB]) Migrations[DB] {
	plans := Plans(h)
	migrations := make(Migrations[DB], 0, len(plans))

	for _, vp := range plans {
		migrations = append(migrations, Named[DB]{Name: vp.Version, Migration: c.Compile(vp.Plan)})
	}

	return migrations
}

// LoadHistoryDir reads every *.yaml and *.yml file in dir as a version
// named after the file, with an identity hook.
func LoadHistoryDir(dir string) (History, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to read schema directory %s", dir)
	}

	history := History{}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		if _, exists := history[name]; exists {
			return nil, errors.Newf(errors.ErrTypeValidation, "duplicate schema version %s in %s", name, dir)
		}

		descriptor, err := schema.LoadDescriptorFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		history[name] = Version{Schema: descriptor, PlanHook: IdentityHook}
	}

	if len(history) == 0 {
		return nil, errors.Newf(errors.ErrTypeNotFound, "no schema versions found in %s", dir).
			WithSuggestion("Add files named v1.yaml, v2.yaml, ... describing each schema version")
	}

	return history, nil
}
