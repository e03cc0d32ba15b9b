package probe

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/devscan/internal/fetcher"
	"github.com/nao1215/devscan/internal/model"
)

// Injection contexts reported in reflection evidence.
const (
	ContextScript    = "script"
	ContextAttribute = "attribute"
	ContextText      = "text"
)

// canarySuffix contains the characters that must be escaped for the
// reflection to be harmless.
const canarySuffix = `<"'>`

// textLikeTypes are the form field types whose values are free text.
var textLikeTypes = map[string]bool{
	"text":     true,
	"search":   true,
	"email":    true,
	"url":      true,
	"tel":      true,
	"hidden":   true,
	"textarea": true,
	"":         true,
}

// ReflectionProbe injects a benign canary into each query parameter and each
// text-like form field and reports the ones echoed back unescaped.
//
// Design decision: The canary is a random token followed by <"'> rather
// than a script payload because:
//  1. It proves the missing encoding without executing anything
//  2. A unique token cannot be confused with page content
type ReflectionProbe struct {
	client  Requester
	workers int
	now     func() time.Time
	token   func() string
}

// ReflectionOption configures a ReflectionProbe.
type ReflectionOption func(*ReflectionProbe)

// WithWorkers sets how many canary requests may be in flight at once.
func WithWorkers(n int) ReflectionOption {
	return func(p *ReflectionProbe) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTokenSource replaces the random token generator.
func WithTokenSource(fn func() string) ReflectionOption {
	return func(p *ReflectionProbe) {
		p.token = fn
	}
}

// NewReflectionProbe creates a new ReflectionProbe sending requests via client.
func NewReflectionProbe(client Requester, opts ...ReflectionOption) *ReflectionProbe {
	p := &ReflectionProbe{
		client:  client,
		workers: model.DefaultProbeWorkers,
		now:     time.Now,
		token: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the probe name.
func (p *ReflectionProbe) Name() string {
	return "reflection"
}

// Kind returns the vulnerability kind.
func (p *ReflectionProbe) Kind() model.VulnerabilityKind {
	return model.KindReflectedInput
}

// injection is one cloned request carrying the canary in one input.
type injection struct {
	param   string
	request fetcher.Request
	token   string
	canary  string
}

// Check sends one request per candidate input, within the page's budget.
func (p *ReflectionProbe) Check(ctx context.Context, target Target) ([]model.Finding, error) {
	if p.client == nil || target.Passive {
		return []model.Finding{}, nil
	}

	candidates := p.candidates(target)
	results := make([]*model.Finding, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, inj := range candidates {
		if ctx.Err() != nil || target.expired(p.now()) {
			break
		}
		if !target.Budget.Take() {
			break
		}
		g.Go(func() error {
			results[i] = p.inject(ctx, inj)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := make([]model.Finding, 0)
	for _, f := range results {
		if f != nil {
			findings = append(findings, *f)
		}
	}
	return findings, nil
}

// candidates lists the injections in a deterministic order: page query
// parameters sorted by name, then form fields in document order.
func (p *ReflectionProbe) candidates(target Target) []injection {
	list := make([]injection, 0)
	page := target.Page

	// Query parameters of a form submission were covered on the form's page.
	if target.OriginForm == nil {
		if u, err := url.Parse(page.URL); err == nil {
			query := u.Query()
			names := make([]string, 0, len(query))
			for name := range query {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				token, canary := p.newCanary()
				injected := *u
				q := u.Query()
				q.Set(name, canary)
				injected.RawQuery = q.Encode()
				list = append(list, injection{
					param:   name,
					request: fetcher.Request{Method: model.MethodGet, URL: injected.String()},
					token:   token,
					canary:  canary,
				})
			}
		}
	}

	for _, form := range target.Forms {
		for _, field := range form.Fields {
			if !textLikeTypes[field.Type] {
				continue
			}
			token, canary := p.newCanary()
			values := form.Values()
			values.Set(field.Name, canary)
			list = append(list, injection{
				param:   field.Name,
				request: fetcher.Request{Method: form.Method, URL: form.Action, Form: values},
				token:   token,
				canary:  canary,
			})
		}
	}

	return list
}

// newCanary returns a fresh token and the full canary string.
func (p *ReflectionProbe) newCanary() (string, string) {
	token := "dvs" + p.token()
	return token, token + canarySuffix
}

// inject sends one request and returns a finding when the canary comes back
// unescaped. Request failures are not findings.
func (p *ReflectionProbe) inject(ctx context.Context, inj injection) *model.Finding {
	resp, err := p.client.Do(ctx, inj.request)
	if err != nil || !strings.Contains(resp.Body, inj.canary) {
		return nil
	}

	where := DetectContext(resp.Body, inj.token)
	return &model.Finding{
		Kind:        model.KindReflectedInput,
		Description: fmt.Sprintf("Reflected input in parameter %s", inj.param),
		Evidence: model.Truncate(
			fmt.Sprintf("parameter %q reflected unescaped in %s context (%s %s)",
				inj.param, where, inj.request.Method, inj.request.URL),
			model.MaxEvidenceSize),
		Severity: model.SeverityHigh,
	}
}

// DetectContext locates the token in the parsed document and reports
// whether it landed inside a script, an attribute value, or text.
func DetectContext(body, token string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ContextText
	}

	inScript := false
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), token) {
			inScript = true
		}
		return !inScript
	})
	if inScript {
		return ContextScript
	}

	inAttr := false
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range s.Nodes[0].Attr {
			if strings.Contains(attr.Val, token) || strings.Contains(attr.Key, strings.ToLower(token)) {
				inAttr = true
				return false
			}
		}
		return true
	})
	if inAttr {
		return ContextAttribute
	}

	return ContextText
}
