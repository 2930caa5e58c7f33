package models

// ListRole is the part a board list plays in the QA workflow
type ListRole int

const (
	ListNone ListRole = iota
	ListOther
	ListTodo
	ListFailed
	ListTesting
	ListComplete
)

// TrackedLists are the lists a reconciliation run reads and writes, in board order
var TrackedLists = []ListRole{ListOther, ListTodo, ListFailed, ListTesting, ListComplete}

func (r ListRole) String() string {
	switch r {
	case ListOther:
		return "Other Priorities"
	case ListTodo:
		return "Todo"
	case ListFailed:
		return "Failed"
	case ListTesting:
		return "Testing"
	case ListComplete:
		return "Complete"
	default:
		return "None"
	}
}

// IsLive is true for lists whose cards still need QA attention
func (r ListRole) IsLive() bool {
	return r != ListNone && r != ListComplete
}

func (r ListRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
