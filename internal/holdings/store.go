package holdings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/price-relay/internal/model"
)

// Errors
var (
	ErrNotFound     = errors.New("holding not found")
	ErrInvalidInput = errors.New("invalid holding")
)

// Store persists holdings.
type Store interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Holding, error)
	Get(ctx context.Context, id uuid.UUID) (model.Holding, error)
	Create(ctx context.Context, userID uuid.UUID, in model.HoldingInput) (model.Holding, error)
	Update(ctx context.Context, id uuid.UUID, in model.HoldingInput) (model.Holding, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Validate normalizes the symbol and checks the numeric fields.
func Validate(in model.HoldingInput) (model.HoldingInput, error) {
	in.Symbol = model.NormalizeSymbol(in.Symbol)
	if in.Symbol == "" {
		return in, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if math.IsNaN(in.Quantity) || in.Quantity <= 0 {
		return in, fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
	}
	if math.IsNaN(in.AvgCost) || in.AvgCost < 0 {
		return in, fmt.Errorf("%w: avg_cost must be >= 0", ErrInvalidInput)
	}
	return in, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS holdings (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	symbol     TEXT NOT NULL,
	quantity   DOUBLE PRECISION NOT NULL,
	avg_cost   DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS holdings_user_id_idx ON holdings (user_id);
`

// PGStore is a Store backed by a pgx pool.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a store using db.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the holdings table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create holdings schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// List returns the user's holdings ordered by symbol.
func (s *PGStore) List(ctx context.Context, userID uuid.UUID) ([]model.Holding, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, symbol, quantity, avg_cost
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Holding, error) {
		return scanHolding(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return out, nil
}

// Get returns one holding.
func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (model.Holding, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, symbol, quantity, avg_cost
		FROM holdings
		WHERE id = $1
	`, id)
	return s.scanOne(row, "get holding")
}

// Create inserts a holding for userID.
func (s *PGStore) Create(ctx context.Context, userID uuid.UUID, in model.HoldingInput) (model.Holding, error) {
	in, err := Validate(in)
	if err != nil {
		return model.Holding{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO holdings (id, user_id, symbol, quantity, avg_cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, symbol, quantity, avg_cost
	`, uuid.New(), userID, in.Symbol, in.Quantity, in.AvgCost)
	return s.scanOne(row, "create holding")
}

// Update replaces the symbol, quantity and cost of a holding.
func (s *PGStore) Update(ctx context.Context, id uuid.UUID, in model.HoldingInput) (model.Holding, error) {
	in, err := Validate(in)
	if err != nil {
		return model.Holding{}, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE holdings
		SET symbol = $2, quantity = $3, avg_cost = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, symbol, quantity, avg_cost
	`, id, in.Symbol, in.Quantity, in.AvgCost)
	return s.scanOne(row, "update holding")
}

// Delete removes a holding.
func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM holdings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) scanOne(row pgx.Row, op string) (model.Holding, error) {
	h, err := scanHolding(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Holding{}, ErrNotFound
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("%s: %w", op, err)
	}
	return h, nil
}

func scanHolding(row pgx.Row) (model.Holding, error) {
	var h model.Holding
	err := row.Scan(&h.ID, &h.UserID, &h.Symbol, &h.Quantity, &h.AvgCost)
	return h, err
}
