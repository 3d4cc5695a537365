package model

import "time"

// Message is one chat message inside a recruit's room.  Messages are
// persisted before they are broadcast, so a disconnected subscriber
// only misses live delivery, not the message itself.
type Message struct {
	ID        uint64    `json:"id"`         // recruit_messages.id
	RecruitID uint64    `json:"recruit_id"` // recruit_messages.recruit_id
	AuthorID  uint64    `json:"author_id"`  // recruit_messages.author_id
	Content   string    `json:"content"`    // recruit_messages.content
	CreatedAt time.Time `json:"created_at"` // recruit_messages.created_at
}
