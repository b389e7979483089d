package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umagate/umagate/internal/protocol"
	"go.uber.org/zap"
)

// SettlementCallback records the settlement references a counterparty
// discloses after paying an invoice.
func (s *Server) SettlementCallback(c *gin.Context) {
	ctx := c.Request.Context()
	rec := tenantFromContext(c)
	adapter := s.vasps.ForTenant(rec)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayReqBody))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}
	cb, err := s.codec.ParseSettlementCallback(body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	senderKeys, err := s.pubkeys.Get(ctx, cb.SenderVaspDomain)
	if err != nil {
		s.log.Warn("sender key fetch failed",
			zap.String("tenant_id", rec.ID),
			zap.String("sender_domain", cb.SenderVaspDomain),
			zap.Error(err))
		s.metrics.RecordVerificationFailure(ctx, rec.ID, "utxocallback")
		AbortWithError(c, protocol.ErrVerification)
		return
	}
	if err := s.codec.VerifySettlementCallback(ctx, cb, senderKeys, s.nonces); err != nil {
		s.metrics.RecordVerificationFailure(ctx, rec.ID, "utxocallback")
		AbortWithError(c, err)
		return
	}

	if err := adapter.RecordSettlement(ctx, cb.SenderVaspDomain, cb.Utxos); err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordSettlementCallback(ctx, rec.ID)
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
