package valueobject

import (
	"fmt"
	"strings"
)

// GatewayType identifies a payment processor integration.
type GatewayType struct {
	value string
}

var (
	GatewayPaynow = GatewayType{"paynow"}
	GatewayPaypal = GatewayType{"paypal"}
	GatewayStripe = GatewayType{"stripe"}
	GatewayIveri  = GatewayType{"iveri"}
	GatewayCash   = GatewayType{"cash"}
	GatewayManual = GatewayType{"manual"}
)

var validGatewayTypes = map[string]GatewayType{
	"paynow": GatewayPaynow,
	"paypal": GatewayPaypal,
	"stripe": GatewayStripe,
	"iveri":  GatewayIveri,
	"cash":   GatewayCash,
	"manual": GatewayManual,
}

// NewGatewayType validates and creates a GatewayType from a string.
func NewGatewayType(s string) (GatewayType, error) {
	if gt, ok := validGatewayTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return gt, nil
	}
	return GatewayType{}, fmt.Errorf("unknown gateway type: %q", s)
}

// String returns the string representation of the gateway type.
func (g GatewayType) String() string {
	return g.value
}

// IsLocal reports whether the gateway settles outside any processor (cash, manual).
// Pending rows for local gateways are intentional and never reconciled.
func (g GatewayType) IsLocal() bool {
	return g == GatewayCash || g == GatewayManual
}

// IsZero returns true if the gateway type is uninitialized.
func (g GatewayType) IsZero() bool {
	return g.value == ""
}
