// Package service records quote and settlement activity for audit.
package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/umagate/umagate/internal/clock"
	"github.com/umagate/umagate/internal/compliance/domain"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

// Sink stamps and persists compliance records.
type Sink struct {
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewSink(p Params) *Sink {
	return &Sink{repo: p.Repo, genID: p.GenID, clock: p.Clock}
}

// RecordPayment persists one completed-quote record.
func (s *Sink) RecordPayment(ctx context.Context, table string, rec domain.PaymentRecord) error {
	rec.ID = s.genID.Generate()
	rec.CreatedAt = s.clock.Now()
	return s.repo.InsertPayment(ctx, table, &rec)
}

// RecordUtxos persists the disclosed settlement references from one callback.
func (s *Sink) RecordUtxos(ctx context.Context, table string, recs []domain.UtxoRecord) error {
	now := s.clock.Now()
	for i := range recs {
		recs[i].ID = s.genID.Generate()
		recs[i].CreatedAt = now
	}
	return s.repo.InsertUtxos(ctx, table, recs)
}

func (s *Sink) Payments(ctx context.Context, table string) ([]domain.PaymentRecord, error) {
	return s.repo.ListPayments(ctx, table)
}

func (s *Sink) Utxos(ctx context.Context, table string) ([]domain.UtxoRecord, error) {
	return s.repo.ListUtxos(ctx, table)
}
