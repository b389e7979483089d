// Package domain holds the compliance records written on completed quotes
// and received settlement proofs. Like receivers, these live in tenant-named
// tables and are always queried with an explicit table scope.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentRecord captures one completed quote.
type PaymentRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	ReceiverID      snowflake.ID   `gorm:"index;column:receiver_id" json:"receiver_id"`
	InvoiceRef      string         `gorm:"type:text;column:invoice_ref" json:"invoice_ref"`
	AmountMsats     int64          `gorm:"column:amount_msats" json:"amount_msats"`
	Currency        string         `gorm:"type:text" json:"currency"`
	ConversionRate  float64        `gorm:"column:conversion_rate" json:"conversion_rate"`
	SenderDomain    string         `gorm:"type:text;column:sender_domain" json:"sender_domain"`
	PayerIdentifier string         `gorm:"type:text;column:payer_identifier" json:"payer_identifier"`
	TravelRuleData  datatypes.JSON `gorm:"column:travel_rule_data" json:"travel_rule_data,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

// UtxoRecord captures one disclosed settlement reference from a
// post-settlement callback.
type UtxoRecord struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Utxo         string       `gorm:"type:text;not null" json:"utxo"`
	AmountMsats  int64        `gorm:"column:amount_msats" json:"amount_msats"`
	SenderDomain string       `gorm:"type:text;column:sender_domain" json:"sender_domain"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}
