package entity

// Invoice lifecycle statuses. The literal values are persisted; adding a
// status requires a coordinated data migration, existing values are never
// removed.
const (
	StatusPendingReview   = "pendiente_revision"
	StatusInReview        = "en_revision"
	StatusCorrected       = "corregida"
	StatusPartiallySynced = "parcialmente_sincronizada"
	StatusSynced          = "sincronizada"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPendingReview, StatusInReview, StatusCorrected,
		StatusPartiallySynced, StatusSynced:
		return true
	}
	return false
}

// CanBeginReview reports whether a reviewer may take the invoice into
// en_revision.
func CanBeginReview(status string) bool {
	return status == StatusPendingReview || status == StatusInReview
}

// CanFinalize reports whether the review can be finalized to corregida.
func CanFinalize(status string) bool {
	return status == StatusPendingReview || status == StatusInReview
}

// CanSync reports whether a sync attempt is permitted from the given
// status. Only finalized invoices and partial syncs (retrying failed items)
// are eligible; sincronizada is terminal.
func CanSync(status string) bool {
	return status == StatusCorrected || status == StatusPartiallySynced
}

// StatusAfterSync computes the status resulting from a sync attempt with
// the given outcome counts. When nothing succeeded the invoice keeps its
// current status: the attempt is reported as a failure without moving the
// lifecycle forward.
func StatusAfterSync(current string, successful, total int) string {
	switch {
	case total > 0 && successful == total:
		return StatusSynced
	case successful > 0 && successful < total:
		return StatusPartiallySynced
	default:
		return current
	}
}
