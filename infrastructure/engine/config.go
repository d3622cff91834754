// Package engine provides audit engine implementations behind the
// contracts.AuditEngine interface: a headless-Chrome runner that injects
// HTML_CodeSniffer into the target page, and a stub for tests and for
// running the dashboard on machines without Chrome.
package engine

import "time"

// DefaultSnifferURL is the HTML_CodeSniffer build injected into audited
// pages when no override is configured.
const DefaultSnifferURL = "https://squizlabs.github.io/HTML_CodeSniffer/build/HTMLCS.js"

// Config holds audit engine configuration.
type Config struct {
	// Mode selects the implementation: "chrome" or "stub".
	Mode string `env:"ENGINE_MODE" default:"chrome"`

	// ChromePath optionally points at a specific Chrome/Chromium binary.
	ChromePath string `env:"ENGINE_CHROME_PATH"`

	// NoSandbox disables the Chrome sandbox, needed in most containers.
	NoSandbox bool `env:"ENGINE_NO_SANDBOX" default:"false"`

	// SnifferURL is where the HTML_CodeSniffer build is loaded from.
	SnifferURL string `env:"ENGINE_SNIFFER_URL"`

	// DefaultTimeout bounds a run when the task carries no timeout.
	DefaultTimeout time.Duration `env:"ENGINE_DEFAULT_TIMEOUT" default:"30s"`
}
