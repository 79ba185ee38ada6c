// internal/adapters/output/table.go
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"phishtrace/internal/core/domain"
)

// OutputTable imprime una tabla legible en terminal.
func OutputTable(rec *domain.OutputRecord) error {
	return WriteTable(os.Stdout, rec)
}

// WriteTable escribe las cadenas y la atribución del record en w.
func WriteTable(out io.Writer, rec *domain.OutputRecord) error {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	summary := rec.Summary()

	fmt.Fprintf(w, "\n=== phishtrace run %s ===\n", rec.RunID)
	fmt.Fprintf(w, "Senders:\t%d\n", len(rec.Senders))
	fmt.Fprintf(w, "Chains:\t%d (%d hops)\n", summary.Chains, summary.Hops)
	fmt.Fprintf(w, "Keys:\t%d (%d resolved)\n", summary.Keys, summary.Resolved)
	fmt.Fprintf(w, "Duration:\t%s\n\n", summary.Duration)

	if len(rec.Chains) > 0 {
		fmt.Fprintln(w, "SEED\tHOP\tURL\tSTATUS\tCODE\tREMOTE")
		fmt.Fprintln(w, "----\t---\t---\t------\t----\t------")
		for _, c := range rec.Chains {
			if len(c.Nodes) == 0 {
				fmt.Fprintf(w, "%s\t-\t-\t%s\t-\t-\n", c.Seed.URL, chainLabel(c))
				continue
			}
			for i, n := range c.Nodes {
				seed := ""
				if i == 0 {
					seed = c.Seed.URL
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					seed,
					n.Index,
					n.URL,
					nodeLabel(n),
					dashIfZero(n.StatusCode),
					dashIfEmpty(n.RemoteAddr),
				)
			}
			fmt.Fprintf(w, "\t\t\t=> %s\t\t\n", chainLabel(c))
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "No chains.")
	}

	if len(rec.Attribution) > 0 {
		fmt.Fprintln(w, "KEY\tTYPE\tREGISTRY\tORGANIZATION\tABUSE\tRESULT")
		fmt.Fprintln(w, "---\t----\t--------\t------------\t-----\t------")
		for _, key := range rec.SortedAttributionKeys() {
			a := rec.Attribution[key]
			org, abuse := "-", "-"
			result := "ok"
			if a.Registration != nil {
				org = dashIfEmpty(firstNonEmpty(a.Registration.Organization, a.Registration.Registrar, a.Registration.Name))
				abuse = dashIfEmpty(a.Registration.AbuseEmail)
			}
			if a.Failure != nil {
				result = string(a.Failure.Kind)
			} else if a.Cached {
				result = "ok (cached)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				a.Key,
				dashIfEmpty(string(a.Type)),
				dashIfEmpty(a.Registry),
				org,
				abuse,
				result,
			)
		}
	} else {
		fmt.Fprintln(w, "No attribution keys.")
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	if len(rec.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(rec.Warnings))
		for i, warning := range rec.Warnings {
			fmt.Fprintf(out, "  %d. %s\n", i+1, warning)
		}
	}

	if len(summary.FailuresByKind) > 0 {
		fmt.Fprintln(out, "\nFailures by kind:")
		for _, kind := range sortedKinds(summary.FailuresByKind) {
			fmt.Fprintf(out, "  - %s: %d\n", kind, summary.FailuresByKind[kind])
		}
	}

	fmt.Fprintln(out)
	return nil
}

func chainLabel(c *domain.Chain) string {
	if c.Failure != nil && c.State == domain.ChainError {
		return fmt.Sprintf("%s (%s)", c.State, c.Failure.Kind)
	}
	return string(c.State)
}

func nodeLabel(n *domain.FulfillmentNode) string {
	label := string(n.Status)
	if n.Via == domain.ViaMetaRefresh {
		label += " [meta]"
	}
	if n.Failure != nil && n.Status == domain.NodeError {
		label += " (" + string(n.Failure.Kind) + ")"
	}
	return label
}

func sortedKinds(m map[domain.ErrorKind]int) []domain.ErrorKind {
	kinds := make([]domain.ErrorKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dashIfZero(n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprint(n)
}
