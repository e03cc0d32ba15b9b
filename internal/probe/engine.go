package probe

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/devscan/internal/fetcher"
	"github.com/nao1215/devscan/internal/model"
)

// Requester issues the extra requests active probes need.
// *fetcher.Fetcher satisfies it.
type Requester interface {
	Do(ctx context.Context, req fetcher.Request) (*model.FetchResult, error)
}

// Target is everything a probe may inspect for one page.
//
// Design decision: We pass all data in a single struct rather than
// multiple parameters because:
//  1. Not all probes need all data
//  2. Adding new data doesn't change probe signatures
type Target struct {
	// Page is the fetched page.
	Page *model.FetchResult

	// Forms are the forms discovered on the page.
	Forms []model.Form

	// OriginForm is set when the page is the GET submission of a form that
	// was already probed on the page where it was discovered.
	OriginForm *model.Form

	// Passive is set when the page was reached by a redirect that left the
	// scan's scope. Probes must not send requests for a passive target.
	Passive bool

	// Deadline is the scan's time budget. Zero means none. Active probes
	// stop issuing new requests once it has passed.
	Deadline time.Time

	// Budget bounds the canary requests active probes may send for this
	// page. The engine sets a fresh one per page; nil means unlimited.
	Budget *Budget
}

// expired reports whether the scan deadline has passed.
func (t Target) expired(now time.Time) bool {
	return !t.Deadline.IsZero() && !now.Before(t.Deadline)
}

// Probe is one independent vulnerability check.
//
// Design decision: We use an interface rather than concrete types because:
//  1. Allows for easy extension with new probes
//  2. Enables testing the engine with fake probes
type Probe interface {
	// Name returns the probe's name for logging.
	Name() string

	// Kind returns the vulnerability kind the probe reports.
	Kind() model.VulnerabilityKind

	// Check inspects the target and returns its findings.
	Check(ctx context.Context, target Target) ([]model.Finding, error)
}

// Engine runs registered probes against each page in registration order.
type Engine struct {
	// probes is the list of registered probes to run.
	probes []Probe

	logger *slog.Logger

	// onError is called when a probe fails. Used for metrics.
	onError func(name string, err error)

	// probeBudget is the per-page canary request allowance. Negative
	// means unlimited.
	probeBudget int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger used to report failing probes.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithErrorHook registers a callback for probe failures.
func WithErrorHook(fn func(name string, err error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// WithProbeBudget sets how many canary requests active probes may send
// per page. Zero disables active probing; negative means unlimited.
func WithProbeBudget(n int) EngineOption {
	return func(e *Engine) {
		e.probeBudget = n
	}
}

// NewEngine creates an Engine with the given probes.
func NewEngine(probes []Probe, opts ...EngineOption) *Engine {
	e := &Engine{
		probes:      slices.Clone(probes),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		probeBudget: model.DefaultProbeBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultProbes returns the built-in probes in their declared order:
// headers, cookies, reflection, redirect, disclosure.
func DefaultProbes(client Requester, opts model.ScanOptions) []Probe {
	opts = opts.WithDefaults()
	return []Probe{
		NewHeaderProbe(),
		NewCookieProbe(),
		NewReflectionProbe(client, WithWorkers(opts.ProbeWorkers)),
		NewRedirectProbe(client),
		NewDisclosureProbe(),
	}
}

// NewDefaultEngine creates an Engine with the built-in probes configured
// from scan options.
func NewDefaultEngine(client Requester, opts model.ScanOptions, engineOpts ...EngineOption) *Engine {
	opts = opts.WithDefaults()
	base := []EngineOption{WithProbeBudget(opts.ProbeBudget)}
	return NewEngine(DefaultProbes(client, opts), append(base, engineOpts...)...)
}

// Register adds a probe after the existing ones.
func (e *Engine) Register(p Probe) {
	e.probes = append(e.probes, p)
}

// Probes returns the registered probes in run order.
func (e *Engine) Probes() []Probe {
	return slices.Clone(e.probes)
}

// RunAll runs every probe and concatenates their findings in registration
// order. A probe that returns an error is logged and skipped; findings from
// the other probes are unaffected.
func (e *Engine) RunAll(ctx context.Context, target Target) []model.Finding {
	findings := make([]model.Finding, 0)
	if target.Page == nil {
		return findings
	}
	if target.Budget == nil && e.probeBudget >= 0 {
		target.Budget = NewBudget(e.probeBudget)
	}

	for _, p := range e.probes {
		if ctx.Err() != nil {
			break
		}

		result, err := p.Check(ctx, target)
		if err != nil {
			e.logger.Warn("probe failed, skipping",
				"probe", p.Name(),
				"url", target.Page.URL,
				"error", err,
			)
			if e.onError != nil {
				e.onError(p.Name(), err)
			}
			continue
		}

		findings = append(findings, dedupe(result)...)
	}

	return findings
}

// dedupe drops repeated descriptions within one probe's output, keeping
// the first occurrence.
func dedupe(findings []model.Finding) []model.Finding {
	seen := make(map[string]bool, len(findings))
	result := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		key := strings.ToLower(f.Description)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, f)
	}
	return result
}
