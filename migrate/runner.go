package migrate

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	"github.com/qail-lang/qail"
	"github.com/qail-lang/qail/schema"
	"github.com/qail-lang/qail/transpile"
)

// Decision is the caller's answer to a destructive-change preview (spec
// §4.M step 5).
type Decision int

const (
	DecisionCancel Decision = iota
	DecisionProceed
	DecisionBackupToFile
	DecisionBackupToDatabase
)

// PreviewGroup bundles a table's breaking changes together, following the
// original CLI's practice of grouping a destructive-change display by
// table (cli/src/migrations.rs's per-table boxes) rather than presenting a
// flat list. The runner returns these to the caller instead of printing
// them — presentation is a CLI concern, out of scope here.
type PreviewGroup struct {
	Table   string
	Changes []BreakingChange
}

// GroupPreview buckets report's changes by table, preserving the order in
// which each table first appears.
func GroupPreview(report Report) []PreviewGroup {
	var order []string
	byTable := map[string][]BreakingChange{}
	for _, c := range report.Changes {
		if _, seen := byTable[c.Table]; !seen {
			order = append(order, c.Table)
		}
		byTable[c.Table] = append(byTable[c.Table], c)
	}
	groups := make([]PreviewGroup, len(order))
	for i, t := range order {
		groups[i] = PreviewGroup{Table: t, Changes: byTable[t]}
	}
	return groups
}

// UnsafeMigrationError is returned when Analyze found breaking changes and
// RunOptions.Force was not set.
type UnsafeMigrationError struct {
	Report Report
}

func (e *UnsafeMigrationError) Error() string {
	return fmt.Sprintf("migrate: %d breaking change(s) across %d file(s); pass Force to override",
		len(e.Report.Changes), len(e.Report.AffectedFiles))
}

// Result summarizes a completed or skipped Run.
type Result struct {
	Applied int
	Version string
	Skipped bool
}

// RunOptions configures one Run call.
type RunOptions struct {
	// ScanRoot, if non-empty, is walked by Scan for impact analysis before
	// applying anything. Left empty, the runner skips straight to
	// applying the diff.
	ScanRoot string
	// Force lets a migration with breaking changes proceed instead of
	// failing with UnsafeMigrationError. Unless NonInteractive is also
	// set, Prompt is still consulted first.
	Force bool
	// NonInteractive skips the Prompt call entirely; an unsafe migration
	// is either forced through (Force true) or rejected as
	// UnsafeMigrationError.
	NonInteractive bool
	// Prompt is invoked with the grouped preview when the migration is
	// unsafe, Force is set, and NonInteractive is not. A nil Prompt is
	// treated as DecisionProceed.
	Prompt func([]PreviewGroup) Decision
	// Backup runs when Prompt returns DecisionBackupToFile or
	// DecisionBackupToDatabase; the distinction between the two is the
	// caller's to make inside the single hook.
	Backup func([]PreviewGroup, Decision) error
	// Name overrides the auto-generated "auto_<version>" migration name.
	Name string
	// Now overrides time.Now, for deterministic tests.
	Now func() time.Time
}

// Run diffs old against new and applies the result as one atomic
// migration, following a nine-step flow: diff, stop when there is
// nothing to apply, optional impact analysis (an unsafe migration is
// rejected unless Force is set), bootstrap, preview/prompt, BEGIN,
// execute each step, record history, COMMIT.
func Run(ctx context.Context, d *qail.Driver, old, new *schema.Catalog, opts RunOptions) (Result, error) {
	cmds := Diff(old, new)
	if len(cmds) == 0 {
		return Result{Skipped: true}, nil
	}

	var refs []Reference
	if opts.ScanRoot != "" {
		var err error
		refs, err = Scan(opts.ScanRoot)
		if err != nil {
			return Result{}, fmt.Errorf("migrate: scanning codebase: %w", err)
		}
	}

	report := Analyze(cmds, refs, old, new)
	if !report.SafeToRun && !opts.Force {
		return Result{}, &UnsafeMigrationError{Report: report}
	}

	if _, err := d.Execute(ctx, BootstrapCommand()); err != nil {
		return Result{}, fmt.Errorf("migrate: bootstrap: %w", err)
	}

	if !report.SafeToRun && !opts.NonInteractive {
		decision := DecisionProceed
		if opts.Prompt != nil {
			decision = opts.Prompt(GroupPreview(report))
		}
		switch decision {
		case DecisionCancel:
			return Result{Skipped: true}, nil
		case DecisionBackupToFile, DecisionBackupToDatabase:
			if opts.Backup != nil {
				if err := opts.Backup(GroupPreview(report), decision); err != nil {
					return Result{}, fmt.Errorf("migrate: backup: %w", err)
				}
			}
		}
	}

	tx, err := d.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: begin: %w", err)
	}

	dialect, _ := transpile.ByName("postgres")
	var upSQL strings.Builder
	for i, cmd := range cmds {
		if sql, rerr := transpile.Render(cmd, dialect); rerr == nil {
			upSQL.WriteString(sql)
			upSQL.WriteString(";\n")
		}
		if _, err := tx.Execute(cmd); err != nil {
			tx.Rollback()
			return Result{}, fmt.Errorf("migrate: rolling back: step %d/%d (%s %s): %w",
				i+1, len(cmds), cmd.Action, cmd.Table, err)
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	version := now().UTC().Format("20060102150405")
	name := opts.Name
	if name == "" {
		name = "auto_" + version
	}
	checksum := fmt.Sprintf("%x", md5.Sum([]byte(upSQL.String())))

	if _, err := tx.Execute(InsertHistoryCommand(version, name, checksum, upSQL.String(), "")); err != nil {
		tx.Rollback()
		return Result{}, fmt.Errorf("migrate: rolling back: recording history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("migrate: commit: %w", err)
	}

	return Result{Applied: len(cmds), Version: version}, nil
}
