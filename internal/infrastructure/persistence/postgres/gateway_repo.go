package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
	"github.com/hunters2410/zimaio-sub004/internal/domain/valueobject"
)

var (
	_ port.GatewayRepository     = (*GatewayRepo)(nil)
	_ port.InstructionRepository = (*InstructionRepo)(nil)
)

// GatewayRepo reads configured payment gateways.
type GatewayRepo struct {
	pool *pgxpool.Pool
}

func NewGatewayRepo(pool *pgxpool.Pool) *GatewayRepo {
	return &GatewayRepo{pool: pool}
}

// FindActiveByType returns the most recently updated active configuration.
func (r *GatewayRepo) FindActiveByType(ctx context.Context, gatewayType valueobject.GatewayType) (model.Gateway, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, gateway_type, name, is_active, config
		FROM payment_gateways
		WHERE gateway_type = $1 AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, gatewayType.String())
	g, err := scanGateway(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Gateway{}, fmt.Errorf("%s: %w", gatewayType, model.ErrGatewayUnavailable)
		}
		return model.Gateway{}, fmt.Errorf("query payment gateway: %w", err)
	}
	return g, nil
}

func (r *GatewayRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Gateway, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, gateway_type, name, is_active, config
		FROM payment_gateways
		WHERE id = $1
	`, id)
	g, err := scanGateway(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Gateway{}, fmt.Errorf("gateway %s: %w", id, model.ErrGatewayUnavailable)
		}
		return model.Gateway{}, fmt.Errorf("query payment gateway: %w", err)
	}
	return g, nil
}

func scanGateway(row pgx.Row) (model.Gateway, error) {
	var (
		id       uuid.UUID
		typeStr  string
		name     string
		isActive bool
		config   []byte
	)
	if err := row.Scan(&id, &typeStr, &name, &isActive, &config); err != nil {
		return model.Gateway{}, err
	}
	gatewayType, err := valueobject.NewGatewayType(typeStr)
	if err != nil {
		return model.Gateway{}, fmt.Errorf("gateway %s: %w", id, err)
	}
	return model.ReconstructGateway(id, gatewayType, name, isActive, config), nil
}

// InstructionRepo reads manual payment instructions.
type InstructionRepo struct {
	pool *pgxpool.Pool
}

func NewInstructionRepo(pool *pgxpool.Pool) *InstructionRepo {
	return &InstructionRepo{pool: pool}
}

func (r *InstructionRepo) ListActiveByGateway(ctx context.Context, gatewayID uuid.UUID) ([]model.PaymentInstruction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, gateway_id, step_number, title, description
		FROM payment_instructions
		WHERE gateway_id = $1 AND is_active
		ORDER BY step_number ASC
	`, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("query payment instructions: %w", err)
	}
	defer rows.Close()

	steps := []model.PaymentInstruction{}
	for rows.Next() {
		var s model.PaymentInstruction
		if err := rows.Scan(&s.ID, &s.GatewayID, &s.StepNumber, &s.Title, &s.Description); err != nil {
			return nil, fmt.Errorf("scan payment instruction: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment instructions: %w", err)
	}
	return steps, nil
}
