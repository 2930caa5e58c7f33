package models

import "time"

// CommitRecord is a commit persisted in the ledger
type CommitRecord struct {
	// Seq is the monotonic sequence index assigned at insert time
	Seq         int64     `json:"seq" yaml:"seq"`
	Hash        string    `json:"hash" yaml:"hash"`
	CommittedAt time.Time `json:"committed_at" yaml:"committed_at"`
	Branch      string    `json:"branch" yaml:"branch"`
	AuthorName  string    `json:"author_name" yaml:"author_name"`
	AuthorEmail string    `json:"author_email" yaml:"author_email"`
	// Message is sanitized before it is stored
	Message string `json:"message" yaml:"message"`
}
