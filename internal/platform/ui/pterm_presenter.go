// internal/platform/ui/pterm_presenter.go
package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"phishtrace/internal/core/domain"
)

// PTermPresenter implementa Presenter usando pterm para renderizar
// el progreso de cadenas y atribuciones en la terminal.
type PTermPresenter struct {
	mu sync.Mutex

	info      RunInfo
	startTime time.Time

	chainsStarted int
	chainsDone    int
	keysDone      int
	byState       map[domain.ChainState]int
	byStatus      map[Status]int

	progress *pterm.ProgressbarPrinter
}

// NewPTermPresenter crea una nueva instancia del presenter con pterm
func NewPTermPresenter() *PTermPresenter {
	return &PTermPresenter{
		byState:  make(map[domain.ChainState]int),
		byStatus: make(map[Status]int),
	}
}

// Start muestra el header y la configuración del run
func (p *PTermPresenter) Start(info RunInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.info = info
	p.startTime = time.Now()

	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("phishtrace - redirect chains & attribution")

	pterm.Println()

	content := fmt.Sprintf("Seed URLs:    %s\n", pterm.Cyan(info.Seeds))
	content += fmt.Sprintf("Senders:      %s\n", pterm.Cyan(info.Senders))
	content += fmt.Sprintf("Max depth:    %d\n", info.MaxDepth)
	content += fmt.Sprintf("Max lookups:  %d\n", info.MaxLookups)
	content += fmt.Sprintf("Workers:      %d\n", info.Workers)
	content += fmt.Sprintf("Deadline:     %s", info.Deadline)

	pterm.DefaultBox.
		WithTitle("Run Configuration").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Println(content)

	pterm.Println()

	if info.Seeds > 0 {
		p.progress, _ = pterm.DefaultProgressbar.
			WithTotal(info.Seeds).
			WithTitle("Following chains").
			WithRemoveWhenDone(true).
			Start()
	}
}

// OnChainStarted cuenta la cadena como en curso
func (p *PTermPresenter) OnChainStarted(seed domain.URLSeed) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chainsStarted++
}

// OnChainComplete renderiza la línea final de una cadena
func (p *PTermPresenter) OnChainComplete(chain *domain.Chain) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chainsDone++
	p.byState[chain.State]++

	status := ChainStatus(chain.State)
	line := fmt.Sprintf("  %s %s %s (%d hops)",
		status.Symbol(),
		chain.Seed.URL,
		status.Style().Sprint(string(chain.State)),
		chain.Hops(),
	)
	if last := chain.Last(); last != nil && last.URL != chain.Seed.URL {
		line += pterm.Gray(" -> " + last.URL)
	}
	pterm.Println(line)

	if p.progress != nil {
		p.progress.Increment()
	}
}

// OnAttribution renderiza una clave publicada
func (p *PTermPresenter) OnAttribution(rec *domain.AttributionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keysDone++
	status := AttributionStatus(rec)
	p.byStatus[status]++

	detail := ""
	switch {
	case rec.OK():
		detail = describeRegistration(rec.Registration)
		if rec.Cached {
			detail += pterm.Gray(" (cached)")
		}
	case rec.Failure != nil:
		detail = string(rec.Failure.Kind)
	}
	status.Style().Printfln("  %s %s %s", status.Symbol(), rec.Key, detail)
}

// Warning muestra una advertencia
func (p *PTermPresenter) Warning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.Warning.Println(msg)
}

// Finish muestra el resumen del record
func (p *PTermPresenter) Finish(rec *domain.OutputRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopProgress()

	summary := rec.Summary()
	duration := summary.Duration
	if duration == 0 {
		duration = time.Since(p.startTime)
	}

	pterm.Println()
	pterm.DefaultHeader.
		WithBackgroundStyle(pterm.NewStyle(pterm.BgGreen)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("Run Completed")
	pterm.Println()

	content := fmt.Sprintf("Run ID:         %s\n", rec.RunID)
	content += fmt.Sprintf("Duration:       %s\n", pterm.Green(formatDuration(duration)))
	content += fmt.Sprintf("Chains:         %s\n", pterm.Cyan(summary.Chains))
	content += fmt.Sprintf("Hops requested: %d\n", summary.Hops)
	content += fmt.Sprintf("Keys:           %s\n", pterm.Cyan(summary.Keys))
	content += fmt.Sprintf("Resolved:       %s", pterm.Green(summary.Resolved))
	if summary.Warnings > 0 {
		content += fmt.Sprintf("\nWarnings:       %s", pterm.Yellow(summary.Warnings))
	}

	pterm.DefaultBox.
		WithTitle("Run Statistics").
		WithTitleTopCenter().
		WithRightPadding(4).
		WithLeftPadding(4).
		WithBoxStyle(pterm.NewStyle(pterm.FgGreen)).
		Println(content)

	if len(summary.FailuresByKind) > 0 {
		pterm.Println()
		pterm.DefaultSection.WithLevel(2).Println("Attribution failures")

		data := pterm.TableData{{"Kind", "Count"}}
		kinds := make([]string, 0, len(summary.FailuresByKind))
		for kind := range summary.FailuresByKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			data = append(data, []string{kind, fmt.Sprintf("%d", summary.FailuresByKind[domain.ErrorKind(kind)])})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
	}

	for _, w := range rec.Warnings {
		pterm.Warning.Println(w)
	}
	pterm.Println()
}

// Close limpia recursos del presenter
func (p *PTermPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopProgress()
	return nil
}

// Counts retorna cadenas terminadas y claves publicadas
func (p *PTermPresenter) Counts() (chains, keys int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainsDone, p.keysDone
}

func (p *PTermPresenter) stopProgress() {
	if p.progress != nil {
		_, _ = p.progress.Stop()
		p.progress = nil
	}
}

func describeRegistration(reg *domain.Registration) string {
	var parts []string
	if reg.Organization != "" {
		parts = append(parts, reg.Organization)
	} else if reg.Name != "" {
		parts = append(parts, reg.Name)
	}
	if reg.Registrar != "" {
		parts = append(parts, "registrar="+reg.Registrar)
	}
	if reg.AbuseEmail != "" {
		parts = append(parts, "abuse="+reg.AbuseEmail)
	}
	return strings.Join(parts, " ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
