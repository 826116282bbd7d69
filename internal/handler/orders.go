package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/enum"
	"github.com/arunika-pos/api/internal/middleware"
	"github.com/arunika-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	ConfirmOrder(ctx context.Context, req service.TransitionRequest) (*service.OrderResult, error)
	UpdateOrderStatus(ctx context.Context, req service.TransitionRequest) (*service.OrderResult, error)
	AddOrderItems(ctx context.Context, req service.AddOrderItemsRequest) (*service.OrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
	ListKitchenTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.KitchenTicket, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/confirm", h.Confirm)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/items", h.AddItems)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType  string             `json:"order_type"`
	TableID    string             `json:"table_id"`
	CustomerID string             `json:"customer_id"`
	TerminalID string             `json:"terminal_id"`
	Notes      string             `json:"notes"`
	Items      []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	MenuItemID string            `json:"menu_item_id"`
	VariantID  string            `json:"variant_id"`
	Quantity   int32             `json:"quantity"`
	Notes      string            `json:"notes"`
	Modifiers  []modifierRequest `json:"modifiers"`
}

type modifierRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type addItemsRequest struct {
	Items []orderItemRequest `json:"items"`
}

// orderResponse carries money as integer minor units.
type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	BranchID      uuid.UUID           `json:"branch_id"`
	OrderNumber   string              `json:"order_number"`
	TableID       *string             `json:"table_id"`
	CustomerID    *string             `json:"customer_id"`
	OrderType     string              `json:"order_type"`
	Status        string              `json:"status"`
	Subtotal      int64               `json:"subtotal"`
	Tax           int64               `json:"tax"`
	ServiceCharge int64               `json:"service_charge"`
	DiscountTotal int64               `json:"discount_total"`
	Total         int64               `json:"total"`
	Notes         *string             `json:"notes"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	TerminalID    string              `json:"terminal_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items"`
	Warnings      []string            `json:"warnings,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID          `json:"id"`
	MenuItemID uuid.UUID          `json:"menu_item_id"`
	VariantID  *string            `json:"variant_id"`
	Name       string             `json:"name"`
	Quantity   int32              `json:"quantity"`
	UnitPrice  int64              `json:"unit_price"`
	ItemTotal  int64              `json:"item_total"`
	Status     string             `json:"status"`
	Station    string             `json:"station"`
	Notes      *string            `json:"notes"`
	Modifiers  []modifierResponse `json:"modifiers"`
}

type modifierResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price int64     `json:"price"`
}

type paymentResponse struct {
	ID              uuid.UUID `json:"id"`
	PaymentMethod   string    `json:"payment_method"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	ReferenceNumber *string   `json:"reference_number"`
	ProcessedBy     uuid.UUID `json:"processed_by"`
	ProcessedAt     time.Time `json:"processed_at"`
}

type statusHistoryResponse struct {
	FromStatus *string   `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      uuid.UUID `json:"actor"`
	Reason     *string   `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type ticketResponse struct {
	ID        uuid.UUID `json:"id"`
	Station   string    `json:"station"`
	Status    string    `json:"status"`
	Priority  int32     `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse for the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Payments      []paymentResponse       `json:"payments"`
	StatusHistory []statusHistoryResponse `json:"status_history"`
	Tickets       []ticketResponse        `json:"kitchen_tickets"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders. The Idempotency-Key header
// makes retried submissions safe: a duplicate returns the original order
// with 200 instead of creating a second one.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:       branchID,
		CreatedBy:      claims.UserID,
		TerminalID:     req.TerminalID,
		OrderType:      req.OrderType,
		TableID:        req.TableID,
		CustomerID:     req.CustomerID,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Notes:          req.Notes,
		Items:          toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyExists {
		status = http.StatusOK
	}
	writeJSON(w, status, toOrderResponse(result))
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	if offset > math.MaxInt32 {
		offset = math.MaxInt32
	}

	params := database.ListOrdersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.OrderStatus(s).Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		if !enum.OrderType(s).Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type filter"})
			return
		}
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}: the order with its items,
// modifiers, payments, status history, and kitchen tickets.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResponses := make([]orderItemResponse, len(items))
	for i, item := range items {
		mods, err := h.store.ListOrderItemModifiersByOrderItem(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list order item modifiers: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		itemResponses[i] = dbOrderItemToResponse(item, mods)
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}

	history, err := h.store.ListStatusHistoryByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list status history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	historyResps := make([]statusHistoryResponse, len(history))
	for i, hrow := range history {
		historyResps[i] = dbHistoryToResponse(hrow)
	}

	tickets, err := h.store.ListKitchenTicketsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list kitchen tickets: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	ticketResps := make([]ticketResponse, len(tickets))
	for i, tk := range tickets {
		ticketResps[i] = ticketResponse{
			ID:        tk.ID,
			Station:   string(tk.Station),
			Status:    string(tk.Status),
			Priority:  tk.Priority,
			CreatedAt: tk.CreatedAt,
		}
	}

	orderResp := dbOrderToResponse(order)
	orderResp.Items = itemResponses

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: orderResp,
		Payments:      paymentResps,
		StatusHistory: historyResps,
		Tickets:       ticketResps,
	})
}

// Confirm handles POST /branches/{bid}/orders/{id}/confirm.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.ConfirmOrder(r.Context(), service.TransitionRequest{
		BranchID: branchID,
		OrderID:  orderID,
		Actor:    claims.UserID,
	})
	if err != nil {
		writeServiceError(w, "confirm order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /branches/{bid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateOrderStatus(r.Context(), service.TransitionRequest{
		BranchID:  branchID,
		OrderID:   orderID,
		NewStatus: enum.OrderStatus(req.Status),
		Actor:     claims.UserID,
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// AddItems handles POST /branches/{bid}/orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	result, err := h.svc.AddOrderItems(r.Context(), service.AddOrderItemsRequest{
		BranchID: branchID,
		OrderID:  orderID,
		Actor:    claims.UserID,
		Items:    toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, "add order items", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// --- Helpers ---

func toServiceItems(items []orderItemRequest) []service.OrderItemRequest {
	svcItems := make([]service.OrderItemRequest, len(items))
	for i, item := range items {
		mods := make([]service.ModifierRequest, len(item.Modifiers))
		for j, mod := range item.Modifiers {
			mods[j] = service.ModifierRequest{Name: mod.Name, Price: mod.Price}
		}
		svcItems[i] = service.OrderItemRequest{
			MenuItemID: item.MenuItemID,
			VariantID:  item.VariantID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
			Modifiers:  mods,
		}
	}
	return svcItems
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Warnings = result.Warnings
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(ir.Item, ir.Modifiers)
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		BranchID:      o.BranchID,
		OrderNumber:   o.OrderNumber,
		OrderType:     string(o.OrderType),
		Status:        string(o.Status),
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		ServiceCharge: o.ServiceCharge,
		DiscountTotal: o.DiscountTotal,
		Total:         o.Total,
		CreatedBy:     o.CreatedBy,
		TerminalID:    o.TerminalID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         []orderItemResponse{},
	}

	if o.TableID.Valid {
		s := uuid.UUID(o.TableID.Bytes).String()
		resp.TableID = &s
	}
	if o.CustomerID.Valid {
		s := uuid.UUID(o.CustomerID.Bytes).String()
		resp.CustomerID = &s
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}

	return resp
}

func dbOrderItemToResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	resp := orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		ItemTotal:  item.ItemTotal,
		Status:     string(item.Status),
		Station:    string(item.Station),
		Modifiers:  make([]modifierResponse, len(mods)),
	}

	if item.VariantID.Valid {
		s := uuid.UUID(item.VariantID.Bytes).String()
		resp.VariantID = &s
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}

	for j, mod := range mods {
		resp.Modifiers[j] = modifierResponse{
			ID:    mod.ID,
			Name:  mod.Name,
			Price: mod.Price,
		}
	}

	return resp
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	resp := paymentResponse{
		ID:            p.ID,
		PaymentMethod: p.PaymentMethod,
		Amount:        p.Amount,
		Status:        string(p.Status),
		ProcessedBy:   p.ProcessedBy,
		ProcessedAt:   p.ProcessedAt,
	}
	if p.ReferenceNumber.Valid {
		resp.ReferenceNumber = &p.ReferenceNumber.String
	}
	return resp
}

func dbHistoryToResponse(h database.OrderStatusHistory) statusHistoryResponse {
	resp := statusHistoryResponse{
		ToStatus:  string(h.ToStatus),
		Actor:     h.Actor,
		CreatedAt: h.CreatedAt,
	}
	if h.FromStatus.Valid {
		resp.FromStatus = &h.FromStatus.String
	}
	if h.Reason.Valid {
		resp.Reason = &h.Reason.String
	}
	return resp
}
