package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
)

const timeLayout = "2006-01-02 15:04:05"

// ParseFormat maps a flag value onto a format, defaulting to long
func ParseFormat(s string) OutputFormat {
	if OutputFormat(strings.ToLower(s)) == FormatShort {
		return FormatShort
	}

	return FormatLong
}

// Formatter renders plans and ledger state for the terminal
type Formatter struct {
	now func() time.Time
	loc *time.Location
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now, loc: time.Local}
}

// FormatVersionPlan renders the plan one version applies
func (f *Formatter) FormatVersionPlan(vp migration.VersionPlan, format OutputFormat) string {
	if format == FormatShort {
		return fmt.Sprintf("%s: %s", vp.Version, f.summarizePlan(vp.Plan))
	}

	lines := []string{vp.Version + ":", f.FormatPlan(vp.Plan)}

	if len(vp.Raw) != len(vp.Plan) {
		lines = append(lines, fmt.Sprintf("  (plan hook changed %d computed steps to %d)", len(vp.Raw), len(vp.Plan)))
	}

	return strings.Join(lines, "\n")
}

// FormatPlan renders one indented line per step
func (f *Formatter) FormatPlan(plan migration.Plan) string {
	if len(plan) == 0 {
		return "  no changes"
	}

	lines := make([]string, 0, len(plan))
	for _, line := range plan.Describe() {
		lines = append(lines, "  "+line)
	}

	return strings.Join(lines, "\n")
}

// summarizePlan counts steps per type, in order of first appearance
func (f *Formatter) summarizePlan(plan migration.Plan) string {
	if len(plan) == 0 {
		return "no changes"
	}

	var order []migration.StepType
	counts := map[migration.StepType]int{}

	for _, step := range plan {
		if counts[step.Type()] == 0 {
			order = append(order, step.Type())
		}

		counts[step.Type()]++
	}

	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}

	return strings.Join(parts, ", ")
}

// FormatStatus renders one line per version followed by a pending count
func (f *Formatter) FormatStatus(states []storage.MigrationState, format OutputFormat) string {
	lines := make([]string, 0, len(states)+2)
	pending := 0

	for _, state := range states {
		if !state.Applied {
			pending++
		}

		lines = append(lines, f.formatState(state, format))
	}

	lines = append(lines, "", fmt.Sprintf("%d of %d versions pending", pending, len(states)))

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatState(state storage.MigrationState, format OutputFormat) string {
	switch {
	case !state.Applied:
		return fmt.Sprintf("  %-12s pending", state.Name)
	case format == FormatShort || state.AppliedAt == nil:
		return fmt.Sprintf("  %-12s applied", state.Name)
	default:
		return fmt.Sprintf("  %-12s applied  %s (%s)",
			state.Name, state.AppliedAt.In(f.loc).Format(timeLayout), f.humanizeAge(*state.AppliedAt))
	}
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	duration := f.now().Sub(t)

	days := int(duration.Hours() / 24)

	if days < 1 {
		return "today"
	} else if days == 1 {
		return "1 day ago"
	} else if days < 30 {
		return fmt.Sprintf("%d days ago", days)
	} else if days < 365 {
		months := days / 30
		if months == 1 {
			return "1 month ago"
		}

		return fmt.Sprintf("%d months ago", months)
	}

	years := days / 365
	if years == 1 {
		return "1 year ago"
	}

	return fmt.Sprintf("%d years ago", years)
}
