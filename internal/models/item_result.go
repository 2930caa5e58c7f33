package models

// ItemStatus is the outcome of reconciling a single work item
type ItemStatus interface {
	isItemStatus()
}

type itemStatusCreated struct{}
type itemStatusMoved struct{}
type itemStatusUnchanged struct{}
type itemStatusSkipped struct{ Reason string }
type itemStatusFailed struct{ Error string }

func (itemStatusCreated) isItemStatus()   {}
func (itemStatusMoved) isItemStatus()     {}
func (itemStatusUnchanged) isItemStatus() {}
func (itemStatusSkipped) isItemStatus()   {}
func (itemStatusFailed) isItemStatus()    {}

// ItemStatus variants
var (
	// Created indicates a new card was created
	Created ItemStatus = itemStatusCreated{}
	// Moved indicates an existing card was copied to another list
	Moved ItemStatus = itemStatusMoved{}
	// Unchanged indicates the card already matched its target state
	Unchanged ItemStatus = itemStatusUnchanged{}
)

// Skipped creates an ItemStatus for an item left alone with a reason
func Skipped(reason string) ItemStatus {
	return itemStatusSkipped{Reason: reason}
}

// Failed creates an ItemStatus for an item whose board change failed
func Failed(err string) ItemStatus {
	return itemStatusFailed{Error: err}
}

// ItemResult is the result of reconciling a single work item
type ItemResult struct {
	Key    string
	Status ItemStatus
	// CardID of the live card after the run, if any
	CardID string
}

func IsStatusCreated(s ItemStatus) bool {
	_, ok := s.(itemStatusCreated)
	return ok
}

func IsStatusMoved(s ItemStatus) bool {
	_, ok := s.(itemStatusMoved)
	return ok
}

func IsStatusSkipped(s ItemStatus) bool {
	_, ok := s.(itemStatusSkipped)
	return ok
}

func IsStatusFailed(s ItemStatus) bool {
	_, ok := s.(itemStatusFailed)
	return ok
}

// GetStatusReason returns the reason string for Skipped or Failed statuses
func GetStatusReason(s ItemStatus) string {
	if skipped, ok := s.(itemStatusSkipped); ok {
		return skipped.Reason
	}
	if failed, ok := s.(itemStatusFailed); ok {
		return failed.Error
	}
	return ""
}
