package adapters

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
	"github.com/hunters2410/zimaio-sub004/pkg/validate"
)

var _ port.AdapterRegistry = (*Registry)(nil)

// Registry maps gateway types to adapters. Types without an adapter (paypal,
// stripe) are reported as unsupported by the caller.
type Registry struct {
	adapters map[valueobject.GatewayType]port.GatewayAdapter
}

func NewRegistry(adapters ...port.GatewayAdapter) *Registry {
	r := &Registry{adapters: make(map[valueobject.GatewayType]port.GatewayAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

// NewDefaultRegistry registers every adapter the service ships with.
func NewDefaultRegistry(client *ProcessorClient, v *validator.Validate, instructions port.InstructionRepository, logger *slog.Logger) *Registry {
	return NewRegistry(
		NewPaynowAdapter(client, v, logger.With("gateway", valueobject.GatewayPaynow.String())),
		NewIveriAdapter(client, v, logger.With("gateway", valueobject.GatewayIveri.String())),
		NewCashAdapter(),
		NewManualAdapter(instructions),
	)
}

func (r *Registry) Lookup(gatewayType valueobject.GatewayType) (port.GatewayAdapter, bool) {
	a, ok := r.adapters[gatewayType]
	return a, ok
}

// configError turns a validator failure on a gateway config blob into a
// *model.ConfigurationError naming the first offending field.
func configError(gatewayType valueobject.GatewayType, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		cfgErr := &model.ConfigurationError{Gateway: gatewayType.String(), Field: fe.Field()}
		if fe.Tag() != "required" {
			cfgErr.Reason = "is invalid"
		}
		return cfgErr
	}
	return &model.ConfigurationError{Gateway: gatewayType.String(), Field: "config", Reason: err.Error()}
}

// detailsError turns a validator failure on request details into a
// *model.ValidationError.
func detailsError(err error) error {
	if fields := validate.Fields(err); fields != nil {
		return &model.ValidationError{Message: "invalid payment details", Fields: fields}
	}
	return &model.ValidationError{Message: err.Error()}
}
