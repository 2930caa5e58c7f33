package models

import "fmt"

// MutationKind identifies a single board change
type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationMove
	MutationDelete
	MutationAddLabel
	MutationAddMember
	MutationArchive
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return "create"
	case MutationMove:
		return "move"
	case MutationDelete:
		return "delete"
	case MutationAddLabel:
		return "label"
	case MutationAddMember:
		return "member"
	case MutationArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ArchiveTarget is where Complete cards are filed
type ArchiveTarget struct {
	BoardID  string `json:"board_id" yaml:"board_id"`
	ListName string `json:"list_name" yaml:"list_name"`
	Count    int    `json:"count" yaml:"count"`
}

// Mutation is one planned board change
type Mutation struct {
	Kind MutationKind `json:"kind" yaml:"kind"`
	Key  string       `json:"key,omitempty" yaml:"key,omitempty"`
	// CardID is the existing card a move, delete, label or member change applies to
	CardID   string         `json:"card_id,omitempty" yaml:"card_id,omitempty"`
	From     ListRole       `json:"from,omitempty" yaml:"from,omitempty"`
	To       ListRole       `json:"to,omitempty" yaml:"to,omitempty"`
	Position Position       `json:"pos,omitempty" yaml:"pos,omitempty"`
	Card     *NewCard       `json:"card,omitempty" yaml:"card,omitempty"`
	Label    Label          `json:"label,omitempty" yaml:"label,omitempty"`
	MemberID string         `json:"member_id,omitempty" yaml:"member_id,omitempty"`
	Archive  *ArchiveTarget `json:"archive,omitempty" yaml:"archive,omitempty"`
	// Reason names the classification that produced the change
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (m Mutation) String() string {
	switch m.Kind {
	case MutationCreate:
		return fmt.Sprintf("create %s in %s at %s", m.Key, m.To, m.Position)
	case MutationMove:
		return fmt.Sprintf("move %s from %s to %s at %s", m.Key, m.From, m.To, m.Position)
	case MutationDelete:
		return fmt.Sprintf("delete duplicate %s from %s", m.Key, m.From)
	case MutationAddLabel:
		return fmt.Sprintf("label %s with %q", m.Key, m.Label.Name)
	case MutationAddMember:
		return fmt.Sprintf("assign %s to member %s", m.Key, m.MemberID)
	case MutationArchive:
		if m.Archive == nil {
			return "archive complete cards"
		}
		return fmt.Sprintf("archive %d complete cards to %s", m.Archive.Count, m.Archive.ListName)
	default:
		return m.Kind.String()
	}
}
