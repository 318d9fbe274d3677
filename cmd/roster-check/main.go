// Command roster-check opens the configured roster store, evaluates the
// referential-integrity rules against the current state, and prints a summary.
// It exits non-zero when blocking violations are present, so it can gate
// deployments and backups on a healthy store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"fieldroster/internal/core"
	"fieldroster/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("roster-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var jsonOut bool
	fs.BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	store, err := core.OpenPersistentStore(core.NewRulesEngine())
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 2
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	report, err := checkStore(context.Background(), store)
	if err != nil {
		fmt.Fprintf(stderr, "check store: %v\n", err)
		return 2
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "encode report: %v\n", err)
			return 2
		}
	} else {
		printReport(stdout, report)
	}

	if report.Blocking {
		return 1
	}
	return 0
}

type checkReport struct {
	Personnel  int                `json:"personnel"`
	Teams      int                `json:"teams"`
	WorkOrders int                `json:"work_orders"`
	Unassigned int                `json:"unassigned"`
	Migrated   bool               `json:"work_orders_migrated"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Blocking   bool               `json:"blocking"`
}

func checkStore(ctx context.Context, store core.PersistentStore) (checkReport, error) {
	engine := core.NewDefaultRulesEngine()
	var report checkReport
	if err := store.View(ctx, func(view core.TransactionView) error {
		personnel := view.ListPersonnel()
		report.Personnel = len(personnel)
		report.Teams = len(view.ListTeams())
		report.WorkOrders = len(view.ListWorkOrders())
		report.Unassigned = len(domain.UnassignedPersonnel(personnel))

		res, err := engine.Evaluate(ctx, view, nil)
		if err != nil {
			return err
		}
		report.Violations = res.Violations
		report.Blocking = res.HasBlocking()
		return nil
	}); err != nil {
		return checkReport{}, err
	}
	report.Migrated = store.WorkOrdersMigrated()
	return report, nil
}

func printReport(w io.Writer, report checkReport) {
	fmt.Fprintf(w, "personnel: %d (%d unassigned)\n", report.Personnel, report.Unassigned)
	fmt.Fprintf(w, "teams: %d\n", report.Teams)
	fmt.Fprintf(w, "work orders: %d (migrated: %v)\n", report.WorkOrders, report.Migrated)
	if len(report.Violations) == 0 {
		fmt.Fprintln(w, "no rule violations")
		return
	}
	for _, v := range report.Violations {
		fmt.Fprintf(w, "%s [%s] %s\n", v.Rule, v.Severity, v.Message)
	}
}
