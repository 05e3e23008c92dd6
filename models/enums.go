package models

type MovementType string

const (
	MovementTypeInitialize MovementType = "INITIALIZE"
	MovementTypeDepart     MovementType = "DEPART"
	MovementTypeReturn     MovementType = "RETURN"
	MovementTypeSurplus    MovementType = "SURPLUS"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	MovementTypePurchase   MovementType = "PURCHASE"
	// Settlement postings. CONFLICT_RETURN credits stock back;
	// CONFLICT_LOSS_CONFIRMED is audit-only and never moves the balance
	// (the loss already left the balance at departure time).
	MovementTypeConflictReturn        MovementType = "CONFLICT_RETURN"
	MovementTypeConflictLossConfirmed MovementType = "CONFLICT_LOSS_CONFIRMED"
)

type TourStatus string

const (
	TourStatusOngoing   TourStatus = "ONGOING"
	TourStatusReturning TourStatus = "RETURNING"
	TourStatusCompleted TourStatus = "COMPLETED"
	TourStatusConflict  TourStatus = "CONFLICT"
)

// ActiveTourStatuses are the statuses whose crates count as in transit.
func ActiveTourStatuses() []TourStatus {
	return []TourStatus{TourStatusOngoing, TourStatusReturning}
}

type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "PENDING"
	ConflictStatusResolved ConflictStatus = "RESOLVED"
	// Set by the tour workflow, never by the settlement engine.
	ConflictStatusCancelled ConflictStatus = "CANCELLED"
)

// IsTerminal reports whether the settlement engine must refuse further
// mutations. Anything that is not PENDING is terminal, including statuses
// owned by external workflows.
func (s ConflictStatus) IsTerminal() bool {
	return s != ConflictStatusPending
}

type ResolutionType string

const (
	ResolutionTypeCrateReturn ResolutionType = "CRATE_RETURN"
	ResolutionTypePayment     ResolutionType = "PAYMENT"
)

type PaymentMode string

const (
	PaymentModeCash            PaymentMode = "CASH"
	PaymentModeSalaryDeduction PaymentMode = "SALARY_DEDUCTION"
)

func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeSalaryDeduction:
		return true
	}
	return false
}
