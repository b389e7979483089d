package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	compliancedomain "github.com/umagate/umagate/internal/compliance/domain"
	"github.com/umagate/umagate/internal/currency"
	"github.com/umagate/umagate/internal/invoice"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/vasp"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxPayReqBody = 1 << 20

// Quote turns a pay request into an invoice. Bare requests get the minimal
// invoice-only shape; signed requests are verified and answered with
// conversion metadata, and leave a compliance record.
func (s *Server) Quote(c *gin.Context) {
	ctx := c.Request.Context()
	rec := tenantFromContext(c)
	adapter := s.vasps.ForTenant(rec)

	user, err := adapter.UserByCallbackID(ctx, c.Param("callbackId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, ErrUserNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayReqBody))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}
	p, err := s.codec.ParsePayRequest(body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	mode := "bare"
	if p.IsEnhanced() {
		mode = "rich"
		senderKeys, err := s.pubkeys.Get(ctx, p.SenderVaspDomain)
		if err != nil {
			s.log.Warn("sender key fetch failed",
				zap.String("tenant_id", rec.ID),
				zap.String("sender_domain", p.SenderVaspDomain),
				zap.Error(err))
			s.metrics.RecordVerificationFailure(ctx, rec.ID, "payreq")
			AbortWithError(c, protocol.ErrVerification)
			return
		}
		if err := s.codec.VerifyPayRequest(ctx, p, senderKeys, s.nonces); err != nil {
			s.metrics.RecordVerificationFailure(ctx, rec.ID, "payreq")
			AbortWithError(c, err)
			return
		}
	}

	amount := currency.ParseAmount(p.Amount)
	if amount.IsZero() {
		AbortWithError(c, fmt.Errorf("%w: unparseable amount %q", protocol.ErrParse, p.Amount))
		return
	}

	code := amount.Currency
	multiplier := 1.0
	msats := amount.Value
	if code == "" {
		code = "MSAT"
	} else {
		multiplier, err = adapter.ConversionRate(ctx, code, "MSAT")
		if err != nil {
			// Misconfiguration, not client error: the caller sees the
			// generic 500 body, the distinction lives in the logs.
			if errors.Is(err, vasp.ErrUnsupportedConversion) {
				s.log.Warn("unsupported currency conversion",
					zap.String("tenant_id", rec.ID),
					zap.String("currency", code))
			}
			AbortWithError(c, err)
			return
		}
		msats = currency.ToMillisats(amount.Value, multiplier)
	}

	if msats < adapter.MinSendableMsats() || msats > adapter.MaxSendableMsats() {
		AbortWithError(c, ErrAmountOutOfBounds)
		return
	}

	// Travel-rule decryption is best effort; a failed payload is logged and
	// counted but never blocks the quote.
	var travelRule []byte
	if p.IsEnhanced() && p.PayerData != nil && p.PayerData.Compliance != nil {
		if sealed := p.PayerData.Compliance.EncryptedTravelRule; sealed != "" {
			travelRule, err = s.codec.DecryptTravelRule(adapter.EncryptionPrivKey(), sealed)
			if err != nil {
				s.log.Warn("travel-rule decrypt failed",
					zap.String("tenant_id", rec.ID),
					zap.String("sender_domain", p.SenderVaspDomain),
					zap.Error(err))
				s.metrics.RecordTravelRuleFailure(ctx, rec.ID)
				travelRule = nil
			}
		}
	}

	receiverAddress := user.Username + "@" + rec.Domain
	pr, err := adapter.CreateInvoice(ctx, invoice.Request{
		AmountMsats: msats,
		Description: discoveryMetadata(receiverAddress),
		NodePubKey:  user.NodePubKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := protocol.NewQuoteResponse(pr)
	if p.IsEnhanced() {
		resp.PaymentInfo = &protocol.PaymentInfo{
			CurrencyCode:    code,
			MultiplierMsats: multiplier,
			Decimals:        currency.Decimals(code),
			AmountMsats:     msats,
		}
		resp.UtxoCallback = adapter.UtxoCallbackURL()

		record := compliancedomain.PaymentRecord{
			ReceiverID:      user.ID,
			InvoiceRef:      pr,
			AmountMsats:     msats,
			Currency:        code,
			ConversionRate:  multiplier,
			SenderDomain:    p.SenderVaspDomain,
			PayerIdentifier: p.PayerIdentifier(),
			TravelRuleData:  travelRuleJSON(travelRule),
		}
		if err := adapter.RecordQuote(ctx, record); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	s.metrics.RecordQuote(ctx, rec.ID, mode)
	c.JSON(http.StatusOK, resp)
}

// travelRuleJSON stores the decrypted disclosure as JSON: verbatim when it
// already is JSON, as a quoted string otherwise.
func travelRuleJSON(plain []byte) datatypes.JSON {
	if len(plain) == 0 {
		return nil
	}
	if json.Valid(plain) {
		return datatypes.JSON(plain)
	}
	quoted, err := json.Marshal(strings.ToValidUTF8(string(plain), "�"))
	if err != nil {
		return nil
	}
	return datatypes.JSON(quoted)
}
