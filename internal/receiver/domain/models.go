// Package domain holds the per-tenant receiver (user) model. Receivers live
// in tenant-named tables, so the model carries no TableName; every query
// scopes the table explicitly.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Compliance statuses a receiver may carry.
const (
	ComplianceUnknown    = ""
	ComplianceVerified   = "VERIFIED"
	ComplianceUnverified = "NOT_VERIFIED"
)

// User is a payable receiver within one tenant.
type User struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	Username string       `gorm:"type:text;not null;index" json:"username"`
	// CallbackID is the opaque token used on the quote path. It may equal
	// the username.
	CallbackID       string `gorm:"type:text;index;column:callback_id" json:"callback_id"`
	ComplianceStatus string `gorm:"type:text;column:compliance_status" json:"compliance_status"`

	// Settlement routing hints.
	ChannelIDs []string `gorm:"serializer:json;column:channel_ids" json:"channel_ids"`
	NodePubKey string   `gorm:"type:text;column:node_pub_key" json:"node_pub_key"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
