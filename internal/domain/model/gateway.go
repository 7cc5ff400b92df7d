package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

// Gateway is a configured payment processor integration. The config blob is
// opaque here; each adapter decodes it into its own settings type.
type Gateway struct {
	id          uuid.UUID
	gatewayType valueobject.GatewayType
	name        string
	isActive    bool
	config      json.RawMessage
}

// ReconstructGateway recreates a Gateway from persistence.
func ReconstructGateway(id uuid.UUID, gatewayType valueobject.GatewayType, name string, isActive bool, config json.RawMessage) Gateway {
	return Gateway{
		id:          id,
		gatewayType: gatewayType,
		name:        name,
		isActive:    isActive,
		config:      config,
	}
}

func (g Gateway) ID() uuid.UUID { return g.id }
func (g Gateway) Type() valueobject.GatewayType { return g.gatewayType }
func (g Gateway) Name() string { return g.name }
func (g Gateway) IsActive() bool { return g.isActive }
func (g Gateway) RawConfig() json.RawMessage { return g.config }

// DecodeConfig unmarshals the config blob into v. An empty blob decodes as {}.
func (g Gateway) DecodeConfig(v any) error {
	raw := g.config
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ConfigurationError{Gateway: g.gatewayType.String(), Field: "config", Reason: fmt.Sprintf("is not valid JSON: %v", err)}
	}
	return nil
}
