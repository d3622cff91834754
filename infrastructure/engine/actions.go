package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ParseAction translates one string-encoded pre-audit browser action into
// a chromedp action. Recognized forms:
//
//	click element <selector>
//	set field <selector> to <value>
//	wait for element <selector> to be visible
//	wait for url to be <url>
//	wait for <milliseconds>
//
// Actions are replayed sequentially in task order before the sniffer runs.
func ParseAction(action string) (chromedp.Action, error) {
	action = strings.TrimSpace(action)

	switch {
	case strings.HasPrefix(action, "click element "):
		selector := strings.TrimPrefix(action, "click element ")
		return chromedp.Click(selector, chromedp.ByQuery), nil

	case strings.HasPrefix(action, "set field "):
		rest := strings.TrimPrefix(action, "set field ")
		idx := strings.Index(rest, " to ")
		if idx < 0 {
			return nil, fmt.Errorf("malformed set-field action %q", action)
		}
		selector, value := rest[:idx], rest[idx+len(" to "):]
		return chromedp.SetValue(selector, value, chromedp.ByQuery), nil

	case strings.HasPrefix(action, "wait for element "):
		rest := strings.TrimPrefix(action, "wait for element ")
		selector := strings.TrimSuffix(rest, " to be visible")
		if selector == rest {
			return nil, fmt.Errorf("malformed wait-for-element action %q", action)
		}
		return chromedp.WaitVisible(selector, chromedp.ByQuery), nil

	case strings.HasPrefix(action, "wait for url to be "):
		target := strings.TrimPrefix(action, "wait for url to be ")
		var reached bool
		return chromedp.Poll(
			fmt.Sprintf("window.location.href === %q", target),
			&reached,
		), nil

	case strings.HasPrefix(action, "wait for "):
		ms, err := strconv.ParseInt(strings.TrimPrefix(action, "wait for "), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed wait action %q", action)
		}
		return chromedp.Sleep(time.Duration(ms) * time.Millisecond), nil
	}

	return nil, fmt.Errorf("unknown action %q", action)
}

// ParseActions translates an ordered action list, preserving order.
func ParseActions(actions []string) ([]chromedp.Action, error) {
	out := make([]chromedp.Action, 0, len(actions))
	for _, raw := range actions {
		parsed, err := ParseAction(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
