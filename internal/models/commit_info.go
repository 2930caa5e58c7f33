package models

import "time"

// CommitInfo contains information about a git commit as reported by a commit source
type CommitInfo struct {
	// Hash is the full commit hash
	Hash string
	// Message is the full commit message
	Message string
	// Tickets are issue keys found in the message (e.g., ["ABC-123", "ABC-456"])
	Tickets []string
	// Branch the commit was observed on
	Branch string
	// AuthorName and AuthorEmail come from the commit author signature
	AuthorName  string
	AuthorEmail string
	// CommittedAt is the committer timestamp
	CommittedAt time.Time
}

// NewCommitInfo creates a new CommitInfo
func NewCommitInfo(hash, message string, tickets []string) CommitInfo {
	return CommitInfo{
		Hash:    hash,
		Message: message,
		Tickets: tickets,
	}
}

// ShortHash returns the first 7 characters of the hash
func (c CommitInfo) ShortHash() string {
	if len(c.Hash) <= 7 {
		return c.Hash
	}
	return c.Hash[:7]
}
