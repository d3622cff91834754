package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// ChromeEngine runs audits by driving a headless Chrome instance: it
// navigates to the target, replays the task's pre-audit actions, injects
// HTML_CodeSniffer and collects the messages it produces.
type ChromeEngine struct {
	cfg    Config
	logger *logging.Logger
}

// NewChromeEngine creates a Chrome-backed audit engine.
func NewChromeEngine(cfg *Config) *ChromeEngine {
	c := *cfg
	if c.SnifferURL == "" {
		c.SnifferURL = DefaultSnifferURL
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	return &ChromeEngine{
		cfg:    c,
		logger: logging.Default().WithComponent("chrome_engine"),
	}
}

const injectSnifferJS = `new Promise((resolve, reject) => {
	if (window.HTMLCS) { resolve(true); return; }
	const script = document.createElement('script');
	script.src = %q;
	script.onload = () => resolve(true);
	script.onerror = () => reject(new Error('failed to load sniffer script'));
	document.head.appendChild(script);
})`

const processJS = `new Promise((resolve, reject) => {
	try {
		HTMLCS.process(%q, window.document, () => {
			const hide = %q;
			const selectorFor = (el) => {
				if (!el || !el.tagName) return '';
				const parts = [];
				while (el && el.nodeType === 1 && parts.length < 10) {
					let part = el.tagName.toLowerCase();
					if (el.id) { parts.unshift(part + '#' + el.id); break; }
					const parent = el.parentNode;
					if (parent && parent.children) {
						const same = Array.from(parent.children).filter(c => c.tagName === el.tagName);
						if (same.length > 1) {
							part += ':nth-child(' + (Array.from(parent.children).indexOf(el) + 1) + ')';
						}
					}
					parts.unshift(part);
					el = parent;
				}
				return parts.join(' > ');
			};
			const typeName = (t) => t === 1 ? 'error' : t === 2 ? 'warning' : 'notice';
			const messages = HTMLCS.getMessages().filter((m) => {
				if (!hide || !m.element || !m.element.closest) return true;
				try { return m.element.closest(hide) === null; } catch (e) { return true; }
			}).map((m) => ({
				code: m.code,
				type: typeName(m.type),
				message: m.msg,
				context: m.element && m.element.outerHTML ? m.element.outerHTML.slice(0, 300) : '',
				selector: selectorFor(m.element)
			}));
			resolve(messages);
		});
	} catch (err) {
		reject(err);
	}
})`

// Run implements contracts.AuditEngine. The invocation is bounded by the
// task timeout (falling back to the configured default); there is no
// retry, the caller decides whether to run again.
func (e *ChromeEngine) Run(ctx context.Context, url string, opts *contracts.EngineOptions) (*contracts.EngineResult, error) {
	if opts == nil {
		opts = &contracts.EngineOptions{}
	}

	timeout := e.cfg.DefaultTimeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if e.cfg.NoSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}
	if e.cfg.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(e.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(runCtx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	actions, err := e.buildActions(url, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrEngine, err)
	}

	var issues []accessibility.Issue
	actions = append(actions,
		chromedp.Evaluate(fmt.Sprintf(injectSnifferJS, e.cfg.SnifferURL), nil, awaitPromise),
		chromedp.Evaluate(fmt.Sprintf(processJS, e.standard(opts), opts.HideElements), &issues, awaitPromise),
	)

	e.logger.Engine("Audit run starting", "url", url, "standard", e.standard(opts), "timeout", timeout.String())

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		e.logger.Engine("Audit run failed", "url", url, "error", err.Error())
		return nil, fmt.Errorf("%w: %w", contracts.ErrEngine, err)
	}

	issues = filterIgnored(issues, opts.Ignore)

	e.logger.Engine("Audit run finished", "url", url, "issues", len(issues))
	return &contracts.EngineResult{Issues: issues}, nil
}

// buildActions assembles the navigation sequence: headers first, then the
// page load, then the task's ordered pre-audit actions, then the settle wait.
func (e *ChromeEngine) buildActions(url string, opts *contracts.EngineOptions) ([]chromedp.Action, error) {
	var actions []chromedp.Action

	headers := make(network.Headers)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.Username != "" || opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers["Authorization"] = "Basic " + credentials
	}
	if len(headers) > 0 {
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	actions = append(actions, chromedp.Navigate(url))

	preAudit, err := ParseActions(opts.Actions)
	if err != nil {
		return nil, err
	}
	actions = append(actions, preAudit...)

	if opts.Wait > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(opts.Wait)*time.Millisecond))
	}

	return actions, nil
}

func (e *ChromeEngine) standard(opts *contracts.EngineOptions) accessibility.Standard {
	if opts.Standard != "" {
		return opts.Standard
	}
	return accessibility.DefaultStandard
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// filterIgnored drops issues whose rule code is in the ignore set.
// Comparison is case-insensitive, matching the sniffer's loose casing.
func filterIgnored(issues []accessibility.Issue, ignore []string) []accessibility.Issue {
	if len(ignore) == 0 {
		return issues
	}
	ignored := make(map[string]bool, len(ignore))
	for _, code := range ignore {
		ignored[strings.ToLower(code)] = true
	}
	kept := issues[:0]
	for _, issue := range issues {
		if !ignored[strings.ToLower(issue.Code)] {
			kept = append(kept, issue)
		}
	}
	return kept
}
