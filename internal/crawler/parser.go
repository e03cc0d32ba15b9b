package crawler

import (
	"bufio"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/devscan/internal/model"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// linkAttributes maps elements to the attribute that carries a fetchable URL.
var linkAttributes = map[string]string{
	"a":      "href",
	"area":   "href",
	"link":   "href",
	"iframe": "src",
	"frame":  "src",
	"script": "src",
	"img":    "src",
}

// Inline script patterns. Quoted absolute URLs, bare absolute URLs and
// fetch() calls with a root-relative path are all treated as links.
var (
	quotedURLRegex = regexp.MustCompile(`["'](https?://[^"']+)["']`)
	bareURLRegex   = regexp.MustCompile(`https?://[^\s'"<>` + "`" + `]+`)
	fetchCallRegex = regexp.MustCompile(`fetch\(\s*["'` + "`" + `](/[^"'` + "`" + `]*)["'` + "`" + `]`)
)

// Parser extracts links and forms from an HTML page.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. Inline scripts are available as text nodes and are never executed
type Parser struct {
	// pageURL is the URL of the document. Empty form actions resolve to it.
	pageURL *url.URL

	// baseURL resolves relative links. It equals pageURL unless the
	// document declares <base href>.
	baseURL *url.URL
}

// ParseResult contains everything extracted from one HTML page.
// Links and Forms are deduplicated and kept in first-seen order.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains absolute http(s) URLs.
	Links []string

	// Forms contains the forms found on the page.
	Forms []model.Form
}

// NewParser creates a new HTML parser for a document located at pageURL.
func NewParser(pageURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return &Parser{pageURL: u, baseURL: u}, nil
}

// Extract parses body as the HTML document at pageURL. It never fails:
// unparseable input yields an empty result.
func Extract(body, pageURL string) *ParseResult {
	empty := &ParseResult{Links: []string{}, Forms: []model.Form{}}
	p, err := NewParser(pageURL)
	if err != nil {
		return empty
	}
	result, err := p.Parse(strings.NewReader(body))
	if err != nil {
		return empty
	}
	return result
}

// Parse parses HTML content and extracts links, forms and the title.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	p.applyBase(doc)

	c := &collector{
		result:    &ParseResult{Links: []string{}, Forms: []model.Form{}},
		seenLinks: make(map[string]bool),
		seenForms: make(map[string]bool),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, c)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return c.result, nil
}

// collector accumulates deduplicated results during a walk.
type collector struct {
	result    *ParseResult
	seenLinks map[string]bool
	seenForms map[string]bool
}

func (c *collector) addLink(link string) {
	if link == "" || c.seenLinks[link] {
		return
	}
	c.seenLinks[link] = true
	c.result.Links = append(c.result.Links, link)
}

func (c *collector) addForm(form model.Form) {
	var key strings.Builder
	key.WriteString(form.Method)
	key.WriteString(" ")
	key.WriteString(form.Action)
	for _, f := range form.Fields {
		key.WriteString(" ")
		key.WriteString(f.Name)
	}
	if c.seenForms[key.String()] {
		return
	}
	c.seenForms[key.String()] = true
	c.result.Forms = append(c.result.Forms, form)
}

// applyBase switches the link base to the first <base href> in the document.
func (p *Parser) applyBase(doc *html.Node) {
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "base" {
			if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
				if u, err := url.Parse(href); err == nil {
					p.baseURL = p.pageURL.ResolveReference(u)
					return true
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if find(child) {
				return true
			}
		}
		return false
	}
	find(doc)
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, c *collector) {
	switch n.Data {
	case "title":
		if c.result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			c.result.Title = strings.TrimSpace(n.FirstChild.Data)
		}
	case "form":
		c.addForm(p.extractForm(n))
	}

	if attr, ok := linkAttributes[n.Data]; ok {
		if v := getAttr(n, attr); v != "" {
			c.addLink(p.resolveURL(v))
		}
	}

	if n.Data == "script" && getAttr(n, "src") == "" {
		for _, link := range p.scriptLinks(textContent(n)) {
			c.addLink(link)
		}
	}
}

// extractForm builds a form description from a <form> element.
func (p *Parser) extractForm(n *html.Node) model.Form {
	form := model.Form{
		Method: model.MethodGet,
		Fields: []model.FormField{},
	}
	if strings.EqualFold(strings.TrimSpace(getAttr(n, "method")), model.MethodPost) {
		form.Method = model.MethodPost
	}

	action := strings.TrimSpace(getAttr(n, "action"))
	if action == "" {
		form.Action = p.pageURL.String()
	} else if resolved := p.resolveURL(action); resolved != "" {
		form.Action = resolved
	} else {
		form.Action = p.pageURL.String()
	}

	p.extractFormFields(n, &form)
	return form
}

// extractFormFields recursively extracts named fields in document order.
func (p *Parser) extractFormFields(n *html.Node, form *model.Form) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case htmlElementInput:
			field := model.FormField{
				Name:  getAttr(n, "name"),
				Type:  strings.ToLower(getAttr(n, "type")),
				Value: getAttr(n, "value"),
			}
			if field.Type == "" {
				field.Type = "text"
			}
			if field.Name != "" {
				form.Fields = append(form.Fields, field)
			}
		case htmlElementTextarea:
			if name := getAttr(n, "name"); name != "" {
				form.Fields = append(form.Fields, model.FormField{
					Name:  name,
					Type:  htmlElementTextarea,
					Value: textContent(n),
				})
			}
			return
		case htmlElementSelect:
			if name := getAttr(n, "name"); name != "" {
				form.Fields = append(form.Fields, model.FormField{
					Name:  name,
					Type:  htmlElementSelect,
					Value: selectDefault(n),
				})
			}
			return
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		p.extractFormFields(child, form)
	}
}

// selectDefault returns the value a browser would submit for a <select>:
// the selected option, or else the first one.
func selectDefault(n *html.Node) string {
	var first, selected *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "option" {
			if first == nil {
				first = node
			}
			if selected == nil && hasAttr(node, "selected") {
				selected = node
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	option := selected
	if option == nil {
		option = first
	}
	if option == nil {
		return ""
	}
	if hasAttr(option, "value") {
		return getAttr(option, "value")
	}
	return strings.TrimSpace(textContent(option))
}

// scriptLinks finds URLs referenced by inline script code.
func (p *Parser) scriptLinks(code string) []string {
	links := make([]string, 0)
	for _, m := range quotedURLRegex.FindAllStringSubmatch(code, -1) {
		links = append(links, p.resolveURL(m[1]))
	}
	for _, m := range fetchCallRegex.FindAllStringSubmatch(code, -1) {
		links = append(links, p.resolveURL(m[1]))
	}
	for _, m := range bareURLRegex.FindAllString(code, -1) {
		links = append(links, p.resolveURL(strings.TrimRight(m, ");,")))
	}
	return links
}

// resolveURL resolves a reference against the base URL. It returns ""
// for non-navigable references and for anything that is not http(s).
//
// Design decision: We resolve URLs rather than storing them as-is because:
//  1. Makes deduplication easier
//  2. Scope checks need an absolute host
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// ExtractRobots returns the crawlable URLs named by a robots.txt body:
// literal Allow/Disallow paths (wildcard rules are skipped) and Sitemap URLs.
func ExtractRobots(body, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return []string{}
	}

	links := make([]string, 0)
	seen := make(map[string]bool)
	add := func(ref string) {
		u, err := url.Parse(ref)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u).String()
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(field)) {
		case "allow", "disallow":
			if strings.HasPrefix(value, "/") && !strings.ContainsAny(value, "*$") {
				add(value)
			}
		case "sitemap":
			add(value)
		}
	}

	return links
}

// ExtractSitemap returns the <loc> URLs of a sitemap or sitemap index.
func ExtractSitemap(body, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return []string{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return []string{}
	}

	links := make([]string, 0)
	seen := make(map[string]bool)
	doc.Find("loc").Each(func(_ int, s *goquery.Selection) {
		loc := strings.TrimSpace(s.Text())
		if loc == "" {
			return
		}
		u, err := url.Parse(loc)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u).String()
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links
}

// textContent returns the concatenated text of n's descendants.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether the node carries the attribute at all.
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
