package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/enum"
)

// Catalog lookups are the read-only collaborator consumed at
// order-build time. Prices come back in minor units and are snapshotted
// onto order items; later menu edits never change an existing order.

type GetMenuItemForOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	Name        string
	BasePrice   int64
	IsAvailable bool
	Station     enum.Station
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	var row GetMenuItemForOrderRow
	err := q.db.QueryRow(ctx, `
		SELECT id, name, base_price, is_available, station
		FROM menu_items WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	).Scan(&row.ID, &row.Name, &row.BasePrice, &row.IsAvailable, &row.Station)
	return row, err
}

type GetVariantForOrderRow struct {
	ID              uuid.UUID
	MenuItemID      uuid.UUID
	Name            string
	PriceAdjustment int64
	IsAvailable     bool
}

func (q *Queries) GetVariantForOrder(ctx context.Context, id uuid.UUID) (GetVariantForOrderRow, error) {
	var row GetVariantForOrderRow
	err := q.db.QueryRow(ctx, `
		SELECT id, menu_item_id, name, price_adjustment, is_available
		FROM menu_item_variants WHERE id = $1`,
		id,
	).Scan(&row.ID, &row.MenuItemID, &row.Name, &row.PriceAdjustment, &row.IsAvailable)
	return row, err
}

type GetBranchRatesRow struct {
	TaxRatePct       pgtype.Numeric
	ServiceChargePct pgtype.Numeric
}

// GetBranchRates returns the branch tax and service-charge percentages.
// Absent configuration surfaces as pgx.ErrNoRows; the service applies the
// 10% / 5% defaults.
func (q *Queries) GetBranchRates(ctx context.Context, branchID uuid.UUID) (GetBranchRatesRow, error) {
	var row GetBranchRatesRow
	err := q.db.QueryRow(ctx,
		`SELECT tax_rate_pct, service_charge_pct FROM branch_settings WHERE branch_id = $1`,
		branchID,
	).Scan(&row.TaxRatePct, &row.ServiceChargePct)
	if err != nil {
		return GetBranchRatesRow{}, err
	}
	return row, nil
}
