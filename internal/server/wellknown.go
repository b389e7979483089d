package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umagate/umagate/internal/protocol"
	"github.com/umagate/umagate/internal/vasp"
	"go.uber.org/zap"
)

const protocolVersion = "1.0"

// PublishKeys serves the tenant's public key set for counterparty signature
// verification and travel-rule encryption.
func (s *Server) PublishKeys(c *gin.Context) {
	rec := tenantFromContext(c)

	c.JSON(http.StatusOK, protocol.PubKeys{
		SigningPubKeyHex:    rec.Keys.SigningPubKey,
		EncryptionPubKeyHex: rec.Keys.EncryptionPubKey,
	})
}

// Discovery answers an address lookup. Bare LNURL queries get the fixed
// minimal shape; signed queries are verified and answered with the tenant's
// full capability set.
func (s *Server) Discovery(c *gin.Context) {
	ctx := c.Request.Context()
	rec := tenantFromContext(c)
	adapter := s.vasps.ForTenant(rec)

	username := c.Param("username")
	user, err := adapter.UserByUsername(ctx, username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil {
		AbortWithError(c, ErrUserNotFound)
		return
	}

	q, err := s.codec.ParseDiscovery(c.Request.URL.Query())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	q.ReceiverAddress = username + "@" + rec.Domain

	mode := "bare"
	if q.IsEnhanced() {
		mode = "rich"
		senderKeys, err := s.pubkeys.Get(ctx, q.SenderVaspDomain)
		if err != nil {
			s.log.Warn("sender key fetch failed",
				zap.String("tenant_id", rec.ID),
				zap.String("sender_domain", q.SenderVaspDomain),
				zap.Error(err))
			s.metrics.RecordVerificationFailure(ctx, rec.ID, "discovery")
			AbortWithError(c, protocol.ErrVerification)
			return
		}
		if err := s.codec.VerifyDiscovery(ctx, q, senderKeys, s.nonces); err != nil {
			s.metrics.RecordVerificationFailure(ctx, rec.ID, "discovery")
			AbortWithError(c, err)
			return
		}
	}

	resp := protocol.DiscoveryResponse{
		Callback:    adapter.PayReqURL(user.CallbackID),
		MinSendable: adapter.MinSendableMsats(),
		MaxSendable: adapter.MaxSendableMsats(),
		Metadata:    discoveryMetadata(q.ReceiverAddress),
		Tag:         "payRequest",
	}
	if q.IsEnhanced() {
		resp.Currencies = currencyInfos(adapter)
		resp.PayerData = payerDataOptions(adapter)
		resp.ReceiverKycStatus = user.ComplianceStatus
		resp.ProtocolVersion = protocolVersion
	}

	s.metrics.RecordDiscovery(ctx, rec.ID, mode)
	c.JSON(http.StatusOK, resp)
}

// discoveryMetadata builds the LNURL metadata string the invoice description
// hash commits to.
func discoveryMetadata(receiverAddress string) string {
	entries := [][]string{
		{"text/plain", fmt.Sprintf("Pay to %s", receiverAddress)},
		{"text/identifier", receiverAddress},
	}
	raw, _ := json.Marshal(entries)
	return string(raw)
}

func currencyInfos(adapter vasp.Adapter) []protocol.CurrencyInfo {
	currencies := adapter.Currencies()
	infos := make([]protocol.CurrencyInfo, 0, len(currencies))
	for _, cur := range currencies {
		info := protocol.CurrencyInfo{
			Code:            cur.Code,
			Name:            cur.Name,
			Symbol:          cur.Symbol,
			MultiplierMsats: cur.MultiplierMsats,
			MinSendable:     cur.MinSendable,
			MaxSendable:     cur.MaxSendable,
			Decimals:        cur.Decimals,
		}
		if info.MinSendable == 0 {
			info.MinSendable = adapter.MinSendableMsats()
		}
		if info.MaxSendable == 0 {
			info.MaxSendable = adapter.MaxSendableMsats()
		}
		infos = append(infos, info)
	}
	return infos
}

func payerDataOptions(adapter vasp.Adapter) map[string]protocol.PayerDataOption {
	options := adapter.PayerDataOptions()
	out := make(map[string]protocol.PayerDataOption, len(options))
	for field, mandatory := range options {
		out[field] = protocol.PayerDataOption{Mandatory: mandatory}
	}
	return out
}
