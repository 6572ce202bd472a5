package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gatedesk/models"
)

// ErrOperatorNotFound is returned when no account exists for a guard code.
var ErrOperatorNotFound = errors.New("operator not found")

// Operators stores console login accounts under "operator:<code>".
type Operators struct {
	kv KV
}

func NewOperators(kv KV) *Operators {
	return &Operators{kv: kv}
}

// GetOperator retrieves an account by guard code.
func (o *Operators) GetOperator(ctx context.Context, code string) (*models.Operator, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrOperatorNotFound
	}

	raw, err := o.kv.Get(ctx, OperatorKey(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	if raw == nil {
		return nil, ErrOperatorNotFound
	}

	var op models.Operator
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operator %s: %w", code, err)
	}
	return &op, nil
}

// SaveOperator creates or replaces an account.
func (o *Operators) SaveOperator(ctx context.Context, op *models.Operator) error {
	op.Code = normalizeCode(op.Code)
	if op.Code == "" {
		return errors.New("operator code is required")
	}

	raw, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to encode operator: %w", err)
	}
	if err := o.kv.Set(ctx, OperatorKey(op.Code), raw); err != nil {
		return fmt.Errorf("failed to save operator: %w", err)
	}
	return nil
}

// DeleteOperator removes an account. Deleting a missing account is not an error.
func (o *Operators) DeleteOperator(ctx context.Context, code string) error {
	if err := o.kv.Delete(ctx, OperatorKey(normalizeCode(code))); err != nil {
		return fmt.Errorf("failed to delete operator: %w", err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
