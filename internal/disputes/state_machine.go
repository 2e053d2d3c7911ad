package disputes

import (
	"context"
)

// transitionRule is one row of the transition table: who may perform the
// action from the keyed status, the resulting status, and the events the
// transition appends. The first event is the primary one; the rest are the
// deterministic follow-ups committed in the same append.
type transitionRule struct {
	Actor  Party
	To     Status
	Events []EventSpec
}

// transitionTable is the single authoritative map of legal moves. Any
// (status, action) pair not present here is rejected.
var transitionTable = map[Status]map[Action]transitionRule{
	StatusPendingAtOperator: {
		ActionForwardToBank: {
			Actor: PartyOperator,
			To:    StatusPendingAtBank,
			Events: []EventSpec{
				{Kind: EventForwardedToBank, Party: PartyPartnerBank, Title: "Forwarded to partner bank", Description: "The operator forwarded the chargeback file to the partner bank for review."},
			},
		},
	},
	StatusPendingAtBank: {
		ActionRequestInfo: {
			Actor: PartyPartnerBank,
			To:    StatusPendingInfo,
			Events: []EventSpec{
				{Kind: EventInfoRequested, Party: PartyPartnerBank, Title: "Additional information requested", Description: "The partner bank requested supporting documents from the customer."},
			},
		},
		ActionApprove: {
			Actor: PartyPartnerBank,
			To:    StatusApproved,
			Events: []EventSpec{
				{Kind: EventApproved, Party: PartyPartnerBank, Title: "Chargeback approved", Description: "The partner bank ruled in favor of the customer."},
				{Kind: EventFundsTransferred, Party: PartyPartnerBank, Title: "Funds transferred", Description: "The disputed amount was refunded to the customer's wallet."},
				{Kind: EventCustomerNotified, Party: PartyOperator, Title: "Customer notified", Description: "The customer was informed that the refund has been processed."},
			},
		},
		ActionReject: {
			Actor: PartyPartnerBank,
			To:    StatusRejected,
			Events: []EventSpec{
				{Kind: EventRejected, Party: PartyPartnerBank, Title: "Chargeback rejected", Description: "The partner bank ruled against the dispute."},
				{Kind: EventCustomerNotified, Party: PartyOperator, Title: "Customer notified", Description: "The customer was informed that the dispute was rejected."},
			},
		},
	},
	StatusPendingInfo: {
		ActionResumeReview: {
			Actor: PartyOperator,
			To:    StatusPendingAtBank,
			Events: []EventSpec{
				{Kind: EventReviewResumed, Party: PartyOperator, Title: "Review resumed", Description: "Requested documents were received; the case returned to the partner bank."},
			},
		},
	},
}

// StateMachine validates and commits case transitions against the log. The
// decision logic is pure; the only I/O is the head read and the append, which
// the store makes atomic.
type StateMachine struct {
	log *Log
}

// NewStateMachine creates a state machine over the given timeline log.
func NewStateMachine(log *Log) *StateMachine {
	return &StateMachine{log: log}
}

// Transition applies action to the case on behalf of actor and returns the
// resulting status. It fails with *TerminalStateError for approved/rejected
// cases, *InvalidTransitionError for moves not in the table, and
// *ConcurrentModificationError when another writer wins the append race; in
// every failure case nothing is written.
func (sm *StateMachine) Transition(ctx context.Context, caseID string, action Action, actor Party) (Status, error) {
	head, err := sm.log.Head(ctx, caseID)
	if err != nil {
		return "", err
	}

	if head.Status.Terminal() {
		return "", &TerminalStateError{CaseID: caseID, Status: head.Status}
	}

	rule, ok := transitionTable[head.Status][action]
	if !ok || rule.Actor != actor {
		return "", &InvalidTransitionError{CaseID: caseID, Status: head.Status, Action: action, Actor: actor}
	}

	if _, err := sm.log.Append(ctx, caseID, head, rule.To, rule.Events); err != nil {
		return "", err
	}
	return rule.To, nil
}
