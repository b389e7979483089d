package domain

import "context"

// Repository appends compliance records into a tenant's payment and utxo
// tables.
type Repository interface {
	InsertPayment(ctx context.Context, table string, rec *PaymentRecord) error
	InsertUtxos(ctx context.Context, table string, recs []UtxoRecord) error
	ListPayments(ctx context.Context, table string) ([]PaymentRecord, error)
	ListUtxos(ctx context.Context, table string) ([]UtxoRecord, error)
}
