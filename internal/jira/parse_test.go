package jira

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roster = models.Roster{{JiraDisplayName: "Pat Tester", TrelloID: "m-pat"}}

func rules() Rules {
	return Rules{
		Roster:      roster,
		HotfixLabel: "hotfix",
		DefectTypes: []string{"Defect", "QA Subtask"},
		BaseURL:     "https://jira.example/",
	}
}

func at(day, hour int) Time {
	return Time{time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC)}
}

func history(author string, when Time, from, to string) History {
	return History{
		Author:  User{DisplayName: author},
		Created: when,
		Items:   []HistoryItem{{Field: "status", FromString: from, ToString: to}},
	}
}

func TestParseFreshQAReady(t *testing.T) {
	issue := Issue{
		Key: "ABC-1",
		Fields: IssueFields{
			Summary:     "Add *bold* `login`",
			Description: "Steps:\n# one\n\"two\"",
			IssueType:   IssueType{Name: "Story"},
			Status:      Status{Name: models.StatusReadyForQA, StatusCategory: StatusCategory{Name: "In Progress"}},
			Labels:      []string{"Frontend"},
		},
		Changelog: Changelog{Histories: []History{
			history("Dev One", at(1, 9), "Backlog", models.StatusInProgress),
			history("Dev One", at(2, 9), models.StatusInProgress, models.StatusReadyForQA),
		}},
	}

	item := Parse(issue, rules())

	assert.Equal(t, "https://jira.example/browse/ABC-1", item.URL)
	assert.Equal(t, "Add bold login", item.Summary)
	assert.Equal(t, "Steps:\n one\ntwo", item.Description)
	assert.Equal(t, []string{"frontend"}, item.Labels)
	assert.Equal(t, models.Unassigned, item.TestedBy)
	assert.False(t, item.HasFailedQA)
	assert.False(t, item.TesterInHistory)
	assert.False(t, item.IsHotfix)
	assert.False(t, item.IsDefect)
	assert.True(t, item.QAReadyAt.Equal(at(2, 9).Time))
	assert.True(t, item.IsFreshQAReady())
	require.Len(t, item.Transitions, 2)
	assert.Equal(t, models.StatusReadyForQA, item.Transitions[0].To, "newest first")
}

func TestParseStaleQAReadyAfterTesterFail(t *testing.T) {
	issue := Issue{
		Key: "ABC-2",
		Fields: IssueFields{
			IssueType: IssueType{Name: "Story"},
			Status:    Status{Name: models.StatusReadyForQA},
			Labels:    []string{"HotFix"},
		},
		Changelog: Changelog{Histories: []History{
			history("Dev One", at(1, 9), models.StatusInProgress, models.StatusReadyForQA),
			history("Pat Tester", at(2, 9), models.StatusReadyForQA, models.StatusQATesting),
			history("Pat Tester", at(3, 9), models.StatusQATesting, models.StatusInProgress),
			history("Dev One", at(4, 9), models.StatusInProgress, models.StatusReadyForQA),
		}},
	}

	item := Parse(issue, rules())

	assert.True(t, item.HasFailedQA)
	assert.True(t, item.TesterInHistory)
	assert.True(t, item.ForQATeam)
	assert.True(t, item.IsHotfix)
	assert.Equal(t, "Pat Tester", item.TestedBy)
	assert.True(t, item.QAReadyAt.Equal(at(4, 9).Time), "most recent QA-ready transition")
	assert.True(t, item.IsStaleQAReady())
	assert.Len(t, item.TesterTransitions(), 2)
}

func TestParseFailByDeveloperIsNotAFail(t *testing.T) {
	issue := Issue{
		Key:    "ABC-5",
		Fields: IssueFields{Status: Status{Name: models.StatusReadyForQA}},
		Changelog: Changelog{Histories: []History{
			history("Dev One", at(1, 9), models.StatusQATesting, models.StatusInProgress),
			history("Dev One", at(2, 9), models.StatusInProgress, models.StatusReadyForQA),
		}},
	}

	item := Parse(issue, rules())
	assert.False(t, item.HasFailedQA)
	assert.Equal(t, models.Unassigned, item.TestedBy)
}

func TestParseDefectAndSubtask(t *testing.T) {
	defect := Parse(Issue{Key: "ABC-6", Fields: IssueFields{IssueType: IssueType{Name: "defect"}}}, rules())
	assert.True(t, defect.IsDefect)

	sub := Parse(Issue{Key: "ABC-7", Fields: IssueFields{IssueType: IssueType{Name: "Task", Subtask: true}}}, rules())
	assert.True(t, sub.IsDefect)
	assert.False(t, sub.HasQAReadyDate())
}

func TestParseIgnoresNonStatusHistory(t *testing.T) {
	issue := Issue{
		Key: "ABC-8",
		Changelog: Changelog{Histories: []History{{
			Author:  User{DisplayName: "Pat Tester"},
			Created: at(1, 9),
			Items:   []HistoryItem{{Field: "assignee", FromString: "a", ToString: "b"}},
		}}},
	}
	item := Parse(issue, rules())
	assert.Empty(t, item.Transitions)
	assert.False(t, item.TesterInHistory)
}

const issueJSON = `{
  "id": "10001",
  "key": "ABC-9",
  "fields": {
    "summary": "Checkout 'totals'",
    "description": null,
    "issuetype": {"name": "Story", "subtask": false},
    "status": {"name": "Done", "statusCategory": {"key": "done", "name": "Done"}},
    "labels": ["hotfix"],
    "created": "2024-06-01T09:00:00.000+0000",
    "updated": "2024-06-05T09:00:00.000+0200",
    "comment": {"comments": [
      {"author": {"displayName": "Dev One"}, "body": "first", "updated": "2024-06-02T09:00:00.000+0000"},
      {"author": {"displayName": "Pat Tester"}, "body": "*looks* good", "updated": "2024-06-04T09:00:00.000+0000"}
    ]},
    "attachment": [
      {"id": "77", "filename": "shot.png", "content": "https://jira.example/secure/attachment/77/shot.png"},
      {"id": "78", "filename": "log.txt"}
    ],
    "subtasks": [{"key": "ABC-10", "fields": {"summary": "QA #1"}}]
  },
  "changelog": {"histories": [
    {"author": {"displayName": "Pat Tester"}, "created": "2024-06-04T10:00:00.000+0000",
     "items": [{"field": "status", "fromString": "QA Testing", "toString": "Done"}]},
    {"author": {"displayName": "Dev One"}, "created": "2024-06-03T10:00:00.000+0000",
     "items": [{"field": "status", "fromString": "In Progress", "toString": "Ready for QA Release"}]}
  ]}
}`

func TestParseFromJSON(t *testing.T) {
	var issue Issue
	require.NoError(t, json.Unmarshal([]byte(issueJSON), &issue))

	item := Parse(issue, rules())

	assert.Equal(t, "Checkout totals", item.Summary)
	assert.Empty(t, item.Description)
	assert.True(t, item.PassedQA())
	assert.True(t, item.IsHotfix)
	assert.Equal(t, "Pat Tester", item.TestedBy)
	assert.Equal(t, []string{
		"https://jira.example/secure/attachment/77/shot.png",
		"https://jira.example/secure/attachment/78/log.txt",
	}, item.Attachments)
	assert.Equal(t, []string{"ABC-10 QA 1"}, item.Subtasks)
	require.Len(t, item.Comments, 2)
	assert.Equal(t, "looks good", item.Comments[0].Body, "newest comment first")
	assert.True(t, item.Updated.Equal(time.Date(2024, 6, 5, 7, 0, 0, 0, time.UTC)))
	assert.True(t, item.QAReadyAt.Equal(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)))
}
