// Package invoice abstracts settlement-invoice creation. Production
// deployments plug a node-backed implementation; the built-in one produces
// deterministic development invoices.
package invoice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/umagate/umagate/internal/clock"
)

// Request carries everything an invoice backend needs for one quote.
type Request struct {
	AmountMsats int64
	// Description becomes the invoice memo; the protocol puts the receiver's
	// metadata hash here.
	Description string
	// NodePubKey routes the invoice to the receiver's node when the backend
	// supports it.
	NodePubKey string
}

// Creator mints a payable invoice string.
type Creator interface {
	CreateInvoice(ctx context.Context, req Request) (string, error)
}

type dev struct {
	clock clock.Clock
}

// NewDev returns a Creator that fabricates deterministic, clearly
// non-payable invoice strings for local development and tests.
func NewDev(clk clock.Clock) Creator {
	return &dev{clock: clk}
}

func (d *dev) CreateInvoice(ctx context.Context, req Request) (string, error) {
	if req.AmountMsats <= 0 {
		return "", fmt.Errorf("invoice: non-positive amount %d", req.AmountMsats)
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%s|%s|%d",
		req.AmountMsats, req.Description, req.NodePubKey, d.clock.Now().UnixNano()))
	return fmt.Sprintf("lnbcdev%dm%s", req.AmountMsats, hex.EncodeToString(sum[:16])), nil
}
