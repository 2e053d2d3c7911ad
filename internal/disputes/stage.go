package disputes

// Stage is the human-readable label the presentation layer shows for a case.
type Stage string

const (
	StageInitialReview  Stage = "Initial Review"
	StageBankReview     Stage = "Bank Review"
	StageWaitingForInfo Stage = "Waiting for Additional Info"
	StageRefundDone     Stage = "Refund Processed"
	StageRejected       Stage = "Dispute Rejected"
)

// CaseAction is an operation the presentation layer may offer on a case.
type CaseAction string

const (
	CaseActionForwardToBank   CaseAction = "FORWARD_TO_BANK"
	CaseActionUploadDocuments CaseAction = "UPLOAD_DOCUMENTS"
)

// ComputeStage maps a status to its display label. Pure; the single source of
// truth for stage rendering.
func ComputeStage(status Status) Stage {
	switch status {
	case StatusPendingAtOperator:
		return StageInitialReview
	case StatusPendingAtBank:
		return StageBankReview
	case StatusPendingInfo:
		return StageWaitingForInfo
	case StatusApproved:
		return StageRefundDone
	case StatusRejected:
		return StageRejected
	default:
		return ""
	}
}

// ComputeAvailableActions returns the operations currently offered for a case.
// Forwarding is available only before the bank has the file; uploads only
// while the bank is waiting for additional information.
func ComputeAvailableActions(status Status) []CaseAction {
	switch status {
	case StatusPendingAtOperator:
		return []CaseAction{CaseActionForwardToBank}
	case StatusPendingInfo:
		return []CaseAction{CaseActionUploadDocuments}
	default:
		return nil
	}
}
