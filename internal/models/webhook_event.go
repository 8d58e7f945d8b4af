package models

import "time"

// WebhookEvent is a permanent dedupe record for provider callbacks.
// (Provider, Reference) is unique, so a retransmitted callback is applied
// at most once. Rows are never mutated after insertion.
type WebhookEvent struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Provider   string `gorm:"not null;index;uniqueIndex:uq_provider_reference" json:"provider"`
	Event      string `gorm:"not null;index" json:"event"`
	Reference  string `gorm:"not null;uniqueIndex:uq_provider_reference" json:"reference"`
	Payload    string `json:"-"`
	ReceivedAt time.Time
}
