package models

type ProposalStatus string
type NotificationCategory string

const (
	ProposalStatusPending      ProposalStatus = "pending"
	ProposalStatusInterviewing ProposalStatus = "interviewing"
	ProposalStatusAccepted     ProposalStatus = "accepted"
	ProposalStatusRejected     ProposalStatus = "rejected"

	NotificationCategoryNewProposal    NotificationCategory = "new_proposal"
	NotificationCategoryProposalStatus NotificationCategory = "proposal_status"
	NotificationCategoryNewMessage     NotificationCategory = "new_message"
)

// ParseProposalStatus принимает только известные статусы.
func ParseProposalStatus(s string) (ProposalStatus, bool) {
	switch st := ProposalStatus(s); st {
	case ProposalStatusPending, ProposalStatusInterviewing, ProposalStatusAccepted, ProposalStatusRejected:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further review transition is accepted.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusAccepted || s == ProposalStatusRejected
}
