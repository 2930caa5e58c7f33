package jira

import (
	"strings"
	"time"
)

// timeLayout is the issue tracker's timestamp format
const timeLayout = "2006-01-02T15:04:05.000-0700"

// Time decodes the tracker's timestamps
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := time.Parse(timeLayout, s)
	if err != nil {
		if v, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	t.Time = v
	return nil
}

type Issue struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Self      string      `json:"self"`
	Fields    IssueFields `json:"fields"`
	Changelog Changelog   `json:"changelog"`
}

type IssueFields struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	IssueType   IssueType  `json:"issuetype"`
	Status      Status     `json:"status"`
	Labels      []string   `json:"labels"`
	Created     Time       `json:"created"`
	Updated     Time       `json:"updated"`
	Comment     Comments   `json:"comment"`
	Attachment  []Attach   `json:"attachment"`
	Subtasks    []Subtask  `json:"subtasks"`
	Parent      *IssueLink `json:"parent,omitempty"`
}

type IssueType struct {
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

type Status struct {
	Name           string         `json:"name"`
	StatusCategory StatusCategory `json:"statusCategory"`
}

type StatusCategory struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type Comments struct {
	Comments []Comment `json:"comments"`
}

type Comment struct {
	Author  User   `json:"author"`
	Body    string `json:"body"`
	Updated Time   `json:"updated"`
}

type Attach struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type Subtask struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

type IssueLink struct {
	Key string `json:"key"`
}

type Changelog struct {
	Histories []History `json:"histories"`
}

type History struct {
	Author  User          `json:"author"`
	Created Time          `json:"created"`
	Items   []HistoryItem `json:"items"`
}

type HistoryItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// Filter is a saved search
type Filter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	JQL  string `json:"jql"`
	Self string `json:"self"`
}

type Sprint struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// CreatedIssue is the response to creating an issue
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}
