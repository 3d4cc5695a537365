// Package queue defines message payloads exchanged over the message
// broker and the background consumer that journals them.
package queue

// NotificationQueueName is the durable queue notification events are
// published to.
const NotificationQueueName = "recruit.notification"

// Notification event kinds.
const (
	KindJoinApplication = "join-application"
	KindJoinDecision    = "join-decision"
)

// NotificationEvent is published whenever a join request is filed or
// decided.  It carries enough information for downstream consumers to
// journal or notify without querying the primary database.  The same
// payload is broadcast to the target user's private realtime room.
type NotificationEvent struct {
	Kind         string `json:"kind"`
	RecruitID    uint64 `json:"recruit_id"`
	RecruitTitle string `json:"recruit_title"`
	TargetUserID uint64 `json:"target_user_id"`
	ApplicantID  uint64 `json:"applicant_id,omitempty"`
	Approved     *bool  `json:"approved,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
