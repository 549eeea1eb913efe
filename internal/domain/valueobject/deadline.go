package valueobject

import "time"

type DeadlineStatus string

const (
	DeadlineStatusNone    DeadlineStatus = "none"
	DeadlineStatusNormal  DeadlineStatus = "normal"
	DeadlineStatusWarning DeadlineStatus = "warning"
	DeadlineStatusUrgent  DeadlineStatus = "urgent"
	DeadlineStatusOverdue DeadlineStatus = "overdue"
)

const (
	urgentThreshold  = 24 * time.Hour
	warningThreshold = 48 * time.Hour
)

// ClassifyDeadline вычисляет статус срока сдачи на момент now. Ничего не хранит.
func ClassifyDeadline(deadline *time.Time, now time.Time) DeadlineStatus {
	if deadline == nil {
		return DeadlineStatusNone
	}

	left := deadline.Sub(now)
	switch {
	case now.After(*deadline):
		return DeadlineStatusOverdue
	case left < urgentThreshold:
		return DeadlineStatusUrgent
	case left < warningThreshold:
		return DeadlineStatusWarning
	default:
		return DeadlineStatusNormal
	}
}
