package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/enum"
	"github.com/arunika-pos/api/internal/pricing"
)

const maxOrderNumberRetries = 3

// Default branch rates applied when branch_settings has no row.
var (
	defaultTaxRatePct       = decimal.NewFromInt(10)
	defaultServiceChargePct = decimal.NewFromInt(5)
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the engine needs.
// Satisfied by *database.Queries (and its in-transaction variant).
type OrderStore interface {
	NextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	GetVariantForOrder(ctx context.Context, id uuid.UUID) (database.GetVariantForOrderRow, error)
	GetBranchRates(ctx context.Context, branchID uuid.UUID) (database.GetBranchRatesRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, arg database.GetOrderByIdempotencyKeyParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	InsertStatusHistory(ctx context.Context, arg database.InsertStatusHistoryParams) error
	InsertOrderEvent(ctx context.Context, arg database.InsertOrderEventParams) (int64, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
// BranchID is always explicit; there is no ambient tenant context.
type CreateOrderRequest struct {
	BranchID       uuid.UUID
	CreatedBy      uuid.UUID
	TerminalID     string
	OrderType      string
	TableID        string
	CustomerID     string
	IdempotencyKey string
	Notes          string
	Items          []OrderItemRequest
}

// OrderItemRequest is a single item in a create or append request.
type OrderItemRequest struct {
	MenuItemID string
	VariantID  string
	Quantity   int32
	Notes      string
	Modifiers  []ModifierRequest
}

// ModifierRequest is a free-form {name, price} pair contributing to the
// item's unit price. Price is in minor units.
type ModifierRequest struct {
	Name  string
	Price int64
}

// OrderResult is an order with its items, plus warnings from non-fatal
// side effects (table occupancy) that must reach the caller.
type OrderResult struct {
	Order database.Order
	Items []OrderItemResult
	// AlreadyExists is set when an idempotency-key collision resolved to
	// the previously created order.
	AlreadyExists bool
	Warnings      []string
}

// OrderItemResult is an item with its modifiers.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// ConfirmedEventPayload is the outbox payload for an order confirmation,
// consumed by the kitchen ticket dispatcher.
type ConfirmedEventPayload struct {
	OrderID     uuid.UUID            `json:"order_id"`
	BranchID    uuid.UUID            `json:"branch_id"`
	OrderNumber string               `json:"order_number"`
	OrderType   enum.OrderType       `json:"order_type"`
	CreatedAt   time.Time            `json:"created_at"`
	Items       []ConfirmedEventItem `json:"items"`
}

type ConfirmedEventItem struct {
	OrderItemID uuid.UUID    `json:"order_item_id"`
	Name        string       `json:"name"`
	Quantity    int32        `json:"quantity"`
	Station     enum.Station `json:"station"`
	Notes       string       `json:"notes,omitempty"`
}

// OrderService is the order lifecycle engine: it owns creation, status
// transitions, item appends, and the coordination of their side effects.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. pool must also satisfy
// database.DBTX (both *pgxpool.Pool and pgx.Tx do): non-transactional
// side queries run directly against it.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	if _, ok := pool.(database.DBTX); !ok {
		panic("service: pool must implement database.DBTX")
	}
	return &OrderService{pool: pool, newStore: newStore}
}

// pricedItem holds a catalog-resolved item ready for insertion.
type pricedItem struct {
	params    database.CreateOrderItemParams
	modifiers []ModifierRequest
}

// CreateOrder validates, snapshots prices, and creates an order atomically
// in DRAFT status. Duplicate submissions with the same idempotency key
// resolve to the first order instead of creating a second one. Retries up
// to maxOrderNumberRetries times on order_number unique violations
// (concurrent transactions in the same branch observing the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	orderType := enum.OrderType(req.OrderType)
	if !orderType.Valid() {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateItemRequests(req.Items); err != nil {
		return nil, err
	}

	tableID := pgtype.UUID{}
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, orderType, tableID, idempotencyKey)
		if err == nil {
			s.occupyTable(ctx, result, orderType, tableID)
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		if isIdempotencyConflict(err) {
			return s.fetchExisting(ctx, req.BranchID, idempotencyKey)
		}
		return nil, err
	}
	return nil, storeErr("create order", lastErr)
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, orderType enum.OrderType, tableID pgtype.UUID, idempotencyKey string) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Validate the table reference before any write.
	if tableID.Valid {
		if _, err := store.GetTable(ctx, uuid.UUID(tableID.Bytes)); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, storeErr("get table", err)
		}
	}

	nextNum, err := store.NextOrderNumber(ctx, req.BranchID)
	if err != nil {
		return nil, storeErr("next order number", err)
	}
	orderNumber := fmt.Sprintf("ARN-%05d", nextNum)

	items, err := resolveItems(ctx, store, req.BranchID, req.Items)
	if err != nil {
		return nil, err
	}

	totals, err := branchTotals(ctx, store, req.BranchID, items)
	if err != nil {
		return nil, err
	}

	customerID := pgtype.UUID{}
	if req.CustomerID != "" {
		cid, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("invalid customer_id: %w", err)
		}
		customerID = pgtype.UUID{Bytes: cid, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:       req.BranchID,
		OrderNumber:    orderNumber,
		OrderNumberSeq: nextNum,
		IdempotencyKey: idempotencyKey,
		TableID:        tableID,
		CustomerID:     customerID,
		OrderType:      orderType,
		Status:         enum.OrderStatusDraft,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		ServiceCharge:  totals.ServiceCharge,
		DiscountTotal:  0,
		Total:          totals.Total,
		CreatedBy:      req.CreatedBy,
		TerminalID:     req.TerminalID,
		Notes:          textOrNull(req.Notes),
	})
	if err != nil {
		if isOrderNumberConflict(err) || isIdempotencyConflict(err) {
			return nil, err
		}
		return nil, storeErr("create order", err)
	}

	itemResults, err := insertItems(ctx, store, order.ID, items)
	if err != nil {
		return nil, err
	}

	// Audit trail starts at birth: NULL -> DRAFT.
	if err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID:  order.ID,
		ToStatus: enum.OrderStatusDraft,
		Actor:    req.CreatedBy,
	}); err != nil {
		return nil, storeErr("insert status history", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit tx", err)
	}

	return &OrderResult{Order: order, Items: itemResults}, nil
}

// occupyTable marks the table OCCUPIED after a dine-in order commits.
// Non-fatal: a failure becomes a warning on the result, never an error.
func (s *OrderService) occupyTable(ctx context.Context, result *OrderResult, orderType enum.OrderType, tableID pgtype.UUID) {
	if orderType != enum.OrderTypeDineIn || !tableID.Valid {
		return
	}
	store := s.newStore(s.poolDB())
	err := store.SetTableStatus(ctx, database.SetTableStatusParams{
		ID:     uuid.UUID(tableID.Bytes),
		Status: enum.TableStatusOccupied,
	})
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("table %s could not be marked OCCUPIED, reconcile manually", uuid.UUID(tableID.Bytes)))
	}
}

// fetchExisting resolves an idempotency-key collision to the order the
// winning submission created.
func (s *OrderService) fetchExisting(ctx context.Context, branchID uuid.UUID, key string) (*OrderResult, error) {
	store := s.newStore(s.poolDB())
	order, err := store.GetOrderByIdempotencyKey(ctx, database.GetOrderByIdempotencyKeyParams{
		BranchID:       branchID,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, storeErr("get order by idempotency key", err)
	}
	items, err := loadItems(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order, Items: items, AlreadyExists: true}, nil
}

// TransitionRequest asks for one status transition on an order.
type TransitionRequest struct {
	BranchID  uuid.UUID
	OrderID   uuid.UUID
	NewStatus enum.OrderStatus
	Actor     uuid.UUID
	Reason    string
}

// ConfirmOrder moves a DRAFT order to CONFIRMED and durably records the
// order.confirmed event that triggers kitchen ticket dispatch. Exactly one
// dispatch attempt is initiated per confirmation; dispatch failure never
// rolls the confirmation back.
func (s *OrderService) ConfirmOrder(ctx context.Context, req TransitionRequest) (*OrderResult, error) {
	req.NewStatus = enum.OrderStatusConfirmed
	return s.UpdateOrderStatus(ctx, req)
}

// UpdateOrderStatus applies one transition from the table. The status
// write is a compare-and-set against the status and version read in the
// same transaction; a stale transition fails with ErrConflict instead of
// being applied. Terminal statuses free the table of a dine-in order.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req TransitionRequest) (*OrderResult, error) {
	if !req.NewStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, storeErr("get order", err)
	}

	if err := ValidateTransition(current.Status, req.NewStatus); err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         current.ID,
		NewStatus:  req.NewStatus,
		PrevStatus: current.Status,
		Version:    current.Version,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status or version moved between our read and write.
			return nil, ErrConflict
		}
		return nil, storeErr("update order status", err)
	}

	if err := store.InsertStatusHistory(ctx, database.InsertStatusHistoryParams{
		OrderID:    updated.ID,
		FromStatus: pgtype.Text{String: string(current.Status), Valid: true},
		ToStatus:   req.NewStatus,
		Actor:      req.Actor,
		Reason:     textOrNull(req.Reason),
	}); err != nil {
		return nil, storeErr("insert status history", err)
	}

	items, err := loadItems(ctx, store, updated.ID)
	if err != nil {
		return nil, err
	}

	// Confirmation durably records its event in the same transaction; the
	// dispatcher reacts to it at-least-once after commit.
	if req.NewStatus == enum.OrderStatusConfirmed {
		payload, err := json.Marshal(confirmedPayload(updated, items))
		if err != nil {
			return nil, fmt.Errorf("marshal confirmed event: %w", err)
		}
		if _, err := store.InsertOrderEvent(ctx, database.InsertOrderEventParams{
			OrderID:   updated.ID,
			EventType: enum.EventOrderConfirmed,
			Payload:   payload,
		}); err != nil {
			return nil, storeErr("insert order event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit tx", err)
	}

	result := &OrderResult{Order: updated, Items: items}
	s.releaseTable(ctx, result)
	return result, nil
}

// releaseTable frees the table once a dine-in order reaches a terminal
// status. Same non-fatal semantics as occupyTable.
func (s *OrderService) releaseTable(ctx context.Context, result *OrderResult) {
	o := result.Order
	if !o.Status.Terminal() || o.OrderType != enum.OrderTypeDineIn || !o.TableID.Valid {
		return
	}
	store := s.newStore(s.poolDB())
	err := store.SetTableStatus(ctx, database.SetTableStatusParams{
		ID:     uuid.UUID(o.TableID.Bytes),
		Status: enum.TableStatusAvailable,
	})
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("table %s could not be freed, reconcile manually", uuid.UUID(o.TableID.Bytes)))
	}
}

// AddOrderItemsRequest appends items to an existing order.
type AddOrderItemsRequest struct {
	BranchID uuid.UUID
	OrderID  uuid.UUID
	Actor    uuid.UUID
	Items    []OrderItemRequest
}

// AddOrderItems inserts additional items and recomputes the totals of the
// whole order in one transaction. The order row is locked FOR UPDATE for
// the duration, so two concurrent appends serialize and neither overwrites
// the other's totals.
func (s *OrderService) AddOrderItems(ctx context.Context, req AddOrderItemsRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateItemRequests(req.Items); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, storeErr("lock order", err)
	}
	if order.BranchID != req.BranchID {
		return nil, ErrOrderNotFound
	}
	if order.Status != enum.OrderStatusDraft && order.Status != enum.OrderStatusConfirmed {
		return nil, ErrOrderNotEditable
	}

	newItems, err := resolveItems(ctx, store, req.BranchID, req.Items)
	if err != nil {
		return nil, err
	}
	if _, err := insertItems(ctx, store, order.ID, newItems); err != nil {
		return nil, err
	}

	// Recompute over the then-current item set: existing plus appended.
	all, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, storeErr("list order items", err)
	}
	lines := make([]pricing.Line, len(all))
	for i, it := range all {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	taxPct, svcPct, err := branchRates(ctx, store, req.BranchID)
	if err != nil {
		return nil, err
	}
	totals := pricing.CalculateTotals(lines, taxPct, svcPct)

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:            order.ID,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		ServiceCharge: totals.ServiceCharge,
		DiscountTotal: order.DiscountTotal,
		Total:         totals.Total - order.DiscountTotal,
	})
	if err != nil {
		return nil, storeErr("update order totals", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit tx", err)
	}

	items := make([]OrderItemResult, len(all))
	for i, it := range all {
		items[i] = OrderItemResult{Item: it}
	}
	return &OrderResult{Order: updated, Items: items}, nil
}

// --- Helpers ---

// poolDB adapts the TxBeginner back to a DBTX for non-transactional side
// queries. In production both are the same *pgxpool.Pool; NewOrderService
// asserts the conversion up front.
func (s *OrderService) poolDB() database.DBTX {
	return s.pool.(database.DBTX)
}

func validateItemRequests(items []OrderItemRequest) error {
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.MenuItemID == "" {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		for j, mod := range item.Modifiers {
			if mod.Price < 0 {
				return fmt.Errorf("item[%d].modifiers[%d]: %w", i, j, ErrNegativeModifier)
			}
		}
	}
	return nil
}

// resolveItems snapshots catalog prices for every requested item:
// unit_price = base_price + variant_adjustment + sum of modifier prices.
// Unavailable items are collected, not short-circuited, so the caller sees
// every offending name at once; any unavailability rejects the whole set.
func resolveItems(ctx context.Context, store OrderStore, branchID uuid.UUID, reqs []OrderItemRequest) ([]pricedItem, error) {
	var unavailable []string
	var items []pricedItem

	for i, req := range reqs {
		menuItemID, err := uuid.Parse(req.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuItem, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:       menuItemID,
			BranchID: branchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, storeErr("get menu item", err)
		}
		if !menuItem.IsAvailable {
			unavailable = append(unavailable, menuItem.Name)
		}

		unitPrice := menuItem.BasePrice
		variantID := pgtype.UUID{}
		if req.VariantID != "" {
			vid, err := uuid.Parse(req.VariantID)
			if err != nil {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidVariantID)
			}
			variant, err := store.GetVariantForOrder(ctx, vid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d]: %w", i, ErrVariantNotFound)
				}
				return nil, storeErr("get variant", err)
			}
			if variant.MenuItemID != menuItemID {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrVariantMismatch)
			}
			if !variant.IsAvailable {
				unavailable = append(unavailable, menuItem.Name+" ("+variant.Name+")")
			}
			variantID = pgtype.UUID{Bytes: vid, Valid: true}
			unitPrice += variant.PriceAdjustment
		}
		for _, mod := range req.Modifiers {
			unitPrice += mod.Price
		}

		items = append(items, pricedItem{
			params: database.CreateOrderItemParams{
				MenuItemID: menuItemID,
				VariantID:  variantID,
				Name:       menuItem.Name,
				Quantity:   req.Quantity,
				UnitPrice:  unitPrice,
				ItemTotal:  unitPrice * int64(req.Quantity),
				Station:    menuItem.Station,
				Notes:      textOrNull(req.Notes),
			},
			modifiers: req.Modifiers,
		})
	}

	if len(unavailable) > 0 {
		return nil, &UnavailableItemError{Names: unavailable}
	}
	return items, nil
}

func insertItems(ctx context.Context, store OrderStore, orderID uuid.UUID, items []pricedItem) ([]OrderItemResult, error) {
	var results []OrderItemResult
	for _, pi := range items {
		pi.params.OrderID = orderID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, storeErr("create order item", err)
		}
		var mods []database.OrderItemModifier
		for _, mod := range pi.modifiers {
			m, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID: item.ID,
				Name:        mod.Name,
				Price:       mod.Price,
			})
			if err != nil {
				return nil, storeErr("create order item modifier", err)
			}
			mods = append(mods, m)
		}
		results = append(results, OrderItemResult{Item: item, Modifiers: mods})
	}
	return results, nil
}

func loadItems(ctx context.Context, store OrderStore, orderID uuid.UUID) ([]OrderItemResult, error) {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr("list order items", err)
	}
	results := make([]OrderItemResult, len(items))
	for i, it := range items {
		results[i] = OrderItemResult{Item: it}
	}
	return results, nil
}

func branchRates(ctx context.Context, store OrderStore, branchID uuid.UUID) (taxPct, svcPct decimal.Decimal, err error) {
	rates, err := store.GetBranchRates(ctx, branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultTaxRatePct, defaultServiceChargePct, nil
		}
		return decimal.Zero, decimal.Zero, storeErr("get branch rates", err)
	}
	return numericToDecimal(rates.TaxRatePct), numericToDecimal(rates.ServiceChargePct), nil
}

func branchTotals(ctx context.Context, store OrderStore, branchID uuid.UUID, items []pricedItem) (pricing.Totals, error) {
	taxPct, svcPct, err := branchRates(ctx, store, branchID)
	if err != nil {
		return pricing.Totals{}, err
	}
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.params.UnitPrice, Quantity: it.params.Quantity}
	}
	return pricing.CalculateTotals(lines, taxPct, svcPct), nil
}

func confirmedPayload(order database.Order, items []OrderItemResult) ConfirmedEventPayload {
	p := ConfirmedEventPayload{
		OrderID:     order.ID,
		BranchID:    order.BranchID,
		OrderNumber: order.OrderNumber,
		OrderType:   order.OrderType,
		CreatedAt:   order.CreatedAt,
	}
	for _, ir := range items {
		it := ir.Item
		p.Items = append(p.Items, ConfirmedEventItem{
			OrderItemID: it.ID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Station:     it.Station,
			Notes:       it.Notes.String,
		})
	}
	return p
}

// isOrderNumberConflict checks for a unique violation on the branch-scoped
// order number (two transactions observed the same MAX).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_branch_id_order_number_seq_key"
	}
	return false
}

// isIdempotencyConflict checks for a unique violation on the idempotency
// key: the same create request already won.
func isIdempotencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_branch_id_idempotency_key_key"
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
