package jira

import (
	"sort"
	"strings"

	"github.com/bbeale/GitTreasures/internal/models"
)

// Rules holds what the parse step needs beyond the raw issue
type Rules struct {
	Roster      models.Roster
	HotfixLabel string
	DefectTypes []string
	// BaseURL of the issue tracker, used for browse and attachment links
	BaseURL string
}

// Rules builds parse rules from the tracker settings and tester roster
func (c *Client) Rules(roster models.Roster) Rules {
	return Rules{
		Roster:      roster,
		HotfixLabel: c.cfg.HotfixLabel,
		DefectTypes: c.cfg.DefectTypes,
		BaseURL:     c.baseURL,
	}
}

// Parse derives a work item from a raw issue fetched with its changelog
func Parse(issue Issue, rules Rules) models.WorkItem {
	f := issue.Fields
	base := strings.TrimRight(rules.BaseURL, "/")

	item := models.WorkItem{
		Key:            issue.Key,
		URL:            base + "/browse/" + issue.Key,
		Summary:        models.SanitizeText(f.Summary),
		Description:    models.SanitizeText(f.Description),
		IssueType:      f.IssueType.Name,
		Created:        f.Created.Time,
		Updated:        f.Updated.Time,
		Status:         f.Status.Name,
		StatusCategory: f.Status.StatusCategory.Name,
		TestedBy:       models.Unassigned,
		IsDefect:       f.IssueType.Subtask || containsFold(rules.DefectTypes, f.IssueType.Name),
	}

	for _, l := range f.Labels {
		label := strings.ToLower(l)
		item.Labels = append(item.Labels, label)
		if rules.HotfixLabel != "" && label == strings.ToLower(rules.HotfixLabel) {
			item.IsHotfix = true
		}
	}

	for _, a := range f.Attachment {
		link := a.Content
		if link == "" {
			link = base + "/secure/attachment/" + a.ID + "/" + a.Filename
		}
		item.Attachments = append(item.Attachments, link)
	}

	for _, s := range f.Subtasks {
		item.Subtasks = append(item.Subtasks, s.Key+" "+models.SanitizeText(s.Fields.Summary))
	}

	for _, c := range f.Comment.Comments {
		item.Comments = append(item.Comments, models.Comment{
			Author:  c.Author.DisplayName,
			Body:    models.SanitizeText(c.Body),
			Updated: c.Updated.Time,
		})
	}
	sort.SliceStable(item.Comments, func(i, j int) bool {
		return item.Comments[i].Updated.After(item.Comments[j].Updated)
	})

	item.Transitions = transitions(issue.Changelog, rules.Roster)
	derive(&item)
	return item
}

func transitions(log Changelog, roster models.Roster) []models.Transition {
	var out []models.Transition
	for _, h := range log.Histories {
		for _, it := range h.Items {
			if it.Field != "status" {
				continue
			}
			out = append(out, models.Transition{
				At:       h.Created.Time,
				Author:   h.Author.DisplayName,
				From:     it.FromString,
				To:       it.ToString,
				ByTester: roster.IsTester(h.Author.DisplayName),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out
}

// derive fills the predicates computed from the transition history (newest first)
func derive(item *models.WorkItem) {
	for _, t := range item.Transitions {
		if t.ByTester {
			if !item.TesterInHistory {
				item.TestedBy = t.Author
			}
			item.TesterInHistory = true
			if t.Is(models.StatusQATesting, models.StatusInProgress) {
				item.HasFailedQA = true
			}
			if t.Is(models.StatusReadyForQA, models.StatusQATesting) {
				item.ForQATeam = true
			}
		}
		if item.QAReadyAt.IsZero() && t.Is(models.StatusInProgress, models.StatusReadyForQA) {
			item.QAReadyAt = t.At
		}
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
