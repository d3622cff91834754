package accessibility

import (
	"sort"
	"time"
)

// IssueType classifies a single audit finding.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
	IssueNotice  IssueType = "notice"
)

// Issue is one rule violation found during an audit run.
type Issue struct {
	Code     string    `json:"code"`
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
	Context  string    `json:"context"`
	Selector string    `json:"selector"`
}

// Count tallies issues by type. It must always be internally consistent
// with the issue list it was derived from.
type Count struct {
	Error   int `json:"error"`
	Warning int `json:"warning"`
	Notice  int `json:"notice"`
}

// Total returns the sum of all three tallies.
func (c Count) Total() int {
	return c.Error + c.Warning + c.Notice
}

// TallyCount computes the per-type tally for a list of issues.
func TallyCount(issues []Issue) Count {
	var c Count
	for _, issue := range issues {
		switch issue.Type {
		case IssueError:
			c.Error++
		case IssueWarning:
			c.Warning++
		case IssueNotice:
			c.Notice++
		}
	}
	return c
}

// Result is one completed audit run's output. A result is immutable once
// created and owned by exactly one task; it is only ever destroyed as a
// side effect of deleting that task.
type Result struct {
	ID       string    `json:"id"`
	Task     string    `json:"task"`
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Standard Standard  `json:"standard"`
	Date     time.Time `json:"date"`
	Count    Count     `json:"count"`
	Ignore   []string  `json:"ignore,omitempty"`
	Results  []Issue   `json:"results"`
}

// NewResult builds a result for a completed run against task. Identity
// fields and the ignore set are snapshotted from the task as it was at run
// time; the count is tallied from the issue list so the two can never
// disagree.
func NewResult(id string, task *Task, date time.Time, issues []Issue) *Result {
	return &Result{
		ID:       id,
		Task:     task.ID,
		URL:      task.URL,
		Name:     task.Name,
		Standard: task.Standard,
		Date:     date,
		Count:    TallyCount(issues),
		Ignore:   append([]string(nil), task.Ignore...),
		Results:  issues,
	}
}

// Summary returns the denormalized record cached on the owning task.
func (r *Result) Summary() *ResultSummary {
	return &ResultSummary{ID: r.ID, Date: r.Date, Count: r.Count}
}

// Clone returns a deep copy of the result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Ignore = append([]string(nil), r.Ignore...)
	cp.Results = append([]Issue(nil), r.Results...)
	return &cp
}

// SortResultsNewestFirst orders results descending by run date, in place.
func SortResultsNewestFirst(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.After(results[j].Date)
	})
}
