// Package presenters formats reconciled view models for templates and
// the JSON API.
package presenters

import (
	"sort"
	"time"

	"a11ydash/application"
	"a11ydash/domain/accessibility"
)

// TaskCardView is one card on the task list page.
type TaskCardView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Standard  string `json:"standard"`
	HasStats  bool   `json:"has_stats"`
	Errors    int    `json:"errors"`
	Warnings  int    `json:"warnings"`
	Notices   int    `json:"notices"`
	LastRun   string `json:"last_run,omitempty"`
	Runs      int64  `json:"runs"`
	Synthetic bool   `json:"synthetic"`
	NoResults bool   `json:"no_results"`
}

// HistoryRowView is one entry of the detail page's run history.
type HistoryRowView struct {
	Ordinal  int    `json:"ordinal"`
	ResultID string `json:"result_id"`
	Date     string `json:"date"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Notices  int    `json:"notices"`
}

// RuleGroupView is one collapsible results-by-rule section: all issues
// of one rule code within one type, with every affected selector.
type RuleGroupView struct {
	Type      string   `json:"type"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Count     int      `json:"count"`
	Selectors []string `json:"selectors"`
}

// DetailPageView is the rendered task detail page model.
type DetailPageView struct {
	ID       string
	Name     string
	URL      string
	Standard string
	Known    bool

	HasLastRun   bool
	LastRunDate  string
	LastErrors   int
	LastWarnings int
	LastNotices  int

	History []HistoryRowView
	Groups  []RuleGroupView
}

// TaskPresenter formats reconciled views for rendering.
type TaskPresenter struct{}

// NewTaskPresenter creates a task presenter.
func NewTaskPresenter() *TaskPresenter {
	return &TaskPresenter{}
}

// FormatList converts the reconciled list view into card view models.
func (p *TaskPresenter) FormatList(view *application.ListView) []TaskCardView {
	cards := make([]TaskCardView, 0, len(view.Cards))
	for _, card := range view.Cards {
		cardView := TaskCardView{
			ID:        card.Task.ID,
			Name:      card.Task.Name,
			URL:       card.Task.URL,
			Standard:  string(card.Task.Standard),
			HasStats:  card.HasStats,
			Runs:      card.Runs,
			Synthetic: card.Synthetic,
			NoResults: card.NoResults,
		}
		if summary := card.Task.LastResult; summary != nil {
			cardView.Errors = summary.Count.Error
			cardView.Warnings = summary.Count.Warning
			cardView.Notices = summary.Count.Notice
			cardView.LastRun = p.FormatDate(summary.Date)
		}
		cards = append(cards, cardView)
	}
	return cards
}

// FormatDetail converts the reconciled detail view into the page model:
// last-run stats, the full history (ordinal, date, three counts) and the
// results-by-rule groups synthesized from the newest result.
func (p *TaskPresenter) FormatDetail(view *application.DetailView) *DetailPageView {
	page := &DetailPageView{
		ID:       view.Task.ID,
		Name:     view.Task.Name,
		URL:      view.Task.URL,
		Standard: string(view.Task.Standard),
		Known:    view.Known,
	}

	if view.LastRun != nil {
		page.HasLastRun = true
		page.LastRunDate = p.FormatDate(view.LastRun.Date)
		page.LastErrors = view.LastRun.Count.Error
		page.LastWarnings = view.LastRun.Count.Warning
		page.LastNotices = view.LastRun.Count.Notice
		page.Groups = p.GroupIssues(view.LastRun.Results)
	}

	for i, result := range view.Results {
		page.History = append(page.History, HistoryRowView{
			Ordinal:  len(view.Results) - i,
			ResultID: result.ID,
			Date:     p.FormatDate(result.Date),
			Errors:   result.Count.Error,
			Warnings: result.Count.Warning,
			Notices:  result.Count.Notice,
		})
	}

	return page
}

// issueTypeOrder renders errors before warnings before notices.
var issueTypeOrder = []accessibility.IssueType{
	accessibility.IssueError,
	accessibility.IssueWarning,
	accessibility.IssueNotice,
}

// GroupIssues groups issues by type then by rule code. Within a type,
// groups are sorted by descending member count, ties broken by code.
func (p *TaskPresenter) GroupIssues(issues []accessibility.Issue) []RuleGroupView {
	type groupKey struct {
		issueType accessibility.IssueType
		code      string
	}

	grouped := make(map[groupKey]*RuleGroupView)
	for _, issue := range issues {
		key := groupKey{issueType: issue.Type, code: issue.Code}
		group, ok := grouped[key]
		if !ok {
			group = &RuleGroupView{
				Type:    string(issue.Type),
				Code:    issue.Code,
				Message: issue.Message,
			}
			grouped[key] = group
		}
		group.Count++
		group.Selectors = append(group.Selectors, issue.Selector)
	}

	var views []RuleGroupView
	for _, issueType := range issueTypeOrder {
		var ofType []RuleGroupView
		for key, group := range grouped {
			if key.issueType == issueType {
				ofType = append(ofType, *group)
			}
		}
		sort.Slice(ofType, func(i, j int) bool {
			if ofType[i].Count != ofType[j].Count {
				return ofType[i].Count > ofType[j].Count
			}
			return ofType[i].Code < ofType[j].Code
		})
		views = append(views, ofType...)
	}
	return views
}

// FormatDate renders a timestamp the way the dashboard displays run dates.
func (p *TaskPresenter) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2 Jan 2006, 3:04pm")
}
