package kitchen

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/enum"
	"github.com/arunika-pos/api/internal/service"
	"github.com/arunika-pos/api/internal/ws"
)

// --- Mock implementations ---

type mockTx struct {
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { m.committed = true; return nil }
func (m *mockTx) Rollback(ctx context.Context) error        { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

type mockTxBeginner struct {
	tx *mockTx
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) { return m.tx, nil }

type mockTicketStore struct {
	pendingOrderEventsFn       func(ctx context.Context, limit int32) ([]database.OrderEvent, error)
	markOrderEventDispatchedFn func(ctx context.Context, id int64) error
	createKitchenTicketFn      func(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error)
	createKitchenTicketItemFn  func(ctx context.Context, arg database.CreateKitchenTicketItemParams) error
}

func (m *mockTicketStore) PendingOrderEvents(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
	return m.pendingOrderEventsFn(ctx, limit)
}
func (m *mockTicketStore) MarkOrderEventDispatched(ctx context.Context, id int64) error {
	return m.markOrderEventDispatchedFn(ctx, id)
}
func (m *mockTicketStore) CreateKitchenTicket(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
	return m.createKitchenTicketFn(ctx, arg)
}
func (m *mockTicketStore) CreateKitchenTicketItem(ctx context.Context, arg database.CreateKitchenTicketItemParams) error {
	return m.createKitchenTicketItemFn(ctx, arg)
}

type mockBroadcaster struct {
	events []ws.Event
}

func (m *mockBroadcaster) BroadcastToBranch(branchID uuid.UUID, event ws.Event) {
	m.events = append(m.events, event)
}

type mockPublisher struct {
	msgs []TicketMessage
	err  error
}

func (m *mockPublisher) PublishTicket(ctx context.Context, msg TicketMessage) error {
	m.msgs = append(m.msgs, msg)
	return m.err
}

// --- Test helpers ---

func confirmedEvent(t *testing.T, id int64, payload service.ConfirmedEventPayload) database.OrderEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return database.OrderEvent{
		ID:        id,
		OrderID:   payload.OrderID,
		EventType: enum.EventOrderConfirmed,
		Payload:   raw,
	}
}

func newTestDispatcher(store *mockTicketStore) (*Dispatcher, *mockTx, *mockBroadcaster, *mockPublisher) {
	tx := &mockTx{}
	hub := &mockBroadcaster{}
	pub := &mockPublisher{}
	d := NewDispatcher(&mockTxBeginner{tx: tx}, func(db database.DBTX) TicketStore { return store }, hub, pub, time.Second)
	return d, tx, hub, pub
}

// --- Tests ---

func TestDispatchGroupsItemsByStation(t *testing.T) {
	orderID := uuid.New()
	branchID := uuid.New()
	grillItem := uuid.New()
	grillItem2 := uuid.New()
	bevItem := uuid.New()

	payload := service.ConfirmedEventPayload{
		OrderID:     orderID,
		BranchID:    branchID,
		OrderNumber: "ARN-00007",
		OrderType:   enum.OrderTypeDineIn,
		CreatedAt:   time.Now(),
		Items: []service.ConfirmedEventItem{
			{OrderItemID: grillItem, Name: "Sate Ayam", Quantity: 2, Station: enum.StationGrill},
			{OrderItemID: bevItem, Name: "Es Teh", Quantity: 1, Station: enum.StationBeverage},
			{OrderItemID: grillItem2, Name: "Sate Kambing", Quantity: 1, Station: enum.StationGrill, Notes: "extra pedas"},
		},
	}

	var tickets []database.CreateKitchenTicketParams
	var ticketItems []database.CreateKitchenTicketItemParams
	var dispatched []int64

	store := &mockTicketStore{
		pendingOrderEventsFn: func(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
			return []database.OrderEvent{confirmedEvent(t, 1, payload)}, nil
		},
		createKitchenTicketFn: func(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
			tickets = append(tickets, arg)
			return database.KitchenTicket{
				ID: uuid.New(), OrderID: arg.OrderID, BranchID: arg.BranchID,
				Station: arg.Station, Status: enum.TicketStatusQueued, Priority: arg.Priority,
			}, nil
		},
		createKitchenTicketItemFn: func(ctx context.Context, arg database.CreateKitchenTicketItemParams) error {
			ticketItems = append(ticketItems, arg)
			return nil
		},
		markOrderEventDispatchedFn: func(ctx context.Context, id int64) error {
			dispatched = append(dispatched, id)
			return nil
		},
	}

	d, tx, hub, pub := newTestDispatcher(store)
	n, err := d.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if n != 1 {
		t.Errorf("handled: got %d, want 1", n)
	}
	if !tx.committed {
		t.Fatal("transaction was not committed")
	}

	if len(tickets) != 2 {
		t.Fatalf("tickets: got %d, want one per station (2)", len(tickets))
	}
	if tickets[0].Station != enum.StationGrill || tickets[1].Station != enum.StationBeverage {
		t.Errorf("stations in first-seen order: got %s, %s", tickets[0].Station, tickets[1].Station)
	}
	for _, tk := range tickets {
		if tk.Priority != 2 { // fresh dine-in
			t.Errorf("%s priority: got %d, want 2", tk.Station, tk.Priority)
		}
	}

	if len(ticketItems) != 3 {
		t.Fatalf("ticket items: got %d, want 3", len(ticketItems))
	}
	if ticketItems[2].Notes.String != "extra pedas" {
		t.Errorf("item notes were not carried onto the ticket")
	}

	if len(dispatched) != 1 || dispatched[0] != 1 {
		t.Errorf("dispatched events: got %v, want [1]", dispatched)
	}
	if len(hub.events) != 2 {
		t.Errorf("broadcasts: got %d, want 2", len(hub.events))
	}
	for _, e := range hub.events {
		if e.Type != "ticket.created" {
			t.Errorf("broadcast type: got %q", e.Type)
		}
	}
	if len(pub.msgs) != 2 {
		t.Errorf("broker publishes: got %d, want 2", len(pub.msgs))
	}
	if pub.msgs[0].OrderNumber != "ARN-00007" {
		t.Errorf("published order number: got %q", pub.msgs[0].OrderNumber)
	}
}

func TestDispatchRedeliveryIsIdempotent(t *testing.T) {
	payload := service.ConfirmedEventPayload{
		OrderID:   uuid.New(),
		BranchID:  uuid.New(),
		OrderType: enum.OrderTypeTakeaway,
		CreatedAt: time.Now(),
		Items: []service.ConfirmedEventItem{
			{OrderItemID: uuid.New(), Name: "Es Teh", Quantity: 1, Station: enum.StationBeverage},
		},
	}

	marked := false
	store := &mockTicketStore{
		pendingOrderEventsFn: func(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
			return []database.OrderEvent{confirmedEvent(t, 9, payload)}, nil
		},
		createKitchenTicketFn: func(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
			// ON CONFLICT DO NOTHING: the ticket already exists.
			return database.KitchenTicket{}, pgx.ErrNoRows
		},
		createKitchenTicketItemFn: func(ctx context.Context, arg database.CreateKitchenTicketItemParams) error {
			t.Fatal("no items may be written for a duplicate ticket")
			return nil
		},
		markOrderEventDispatchedFn: func(ctx context.Context, id int64) error {
			marked = true
			return nil
		},
	}

	d, tx, hub, pub := newTestDispatcher(store)
	if _, err := d.DispatchPending(context.Background()); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if !marked {
		t.Error("redelivered event must still be marked dispatched")
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
	if len(hub.events) != 0 || len(pub.msgs) != 0 {
		t.Error("duplicate tickets must not be re-announced")
	}
}

func TestDispatchSkipsUnknownEventTypes(t *testing.T) {
	marked := false
	store := &mockTicketStore{
		pendingOrderEventsFn: func(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
			return []database.OrderEvent{{ID: 3, EventType: "order.refunded", Payload: []byte(`{}`)}}, nil
		},
		createKitchenTicketFn: func(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
			t.Fatal("unknown event types must not create tickets")
			return database.KitchenTicket{}, nil
		},
		markOrderEventDispatchedFn: func(ctx context.Context, id int64) error {
			marked = true
			return nil
		},
	}

	d, _, _, _ := newTestDispatcher(store)
	if _, err := d.DispatchPending(context.Background()); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if !marked {
		t.Error("unknown events must be marked dispatched so they cannot wedge the outbox")
	}
}

func TestDispatchEmptyOutbox(t *testing.T) {
	store := &mockTicketStore{
		pendingOrderEventsFn: func(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
			return nil, nil
		},
	}

	d, _, hub, pub := newTestDispatcher(store)
	n, err := d.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if n != 0 {
		t.Errorf("handled: got %d, want 0", n)
	}
	if len(hub.events) != 0 || len(pub.msgs) != 0 {
		t.Error("nothing to announce on an empty outbox")
	}
}

func TestDispatchPriorityReflectsOrderAge(t *testing.T) {
	payload := service.ConfirmedEventPayload{
		OrderID:   uuid.New(),
		BranchID:  uuid.New(),
		OrderType: enum.OrderTypeDelivery,
		CreatedAt: time.Now().Add(-30 * time.Minute),
		Items: []service.ConfirmedEventItem{
			{OrderItemID: uuid.New(), Name: "Nasi Goreng", Quantity: 1, Station: enum.StationRice},
		},
	}

	var priority int32
	store := &mockTicketStore{
		pendingOrderEventsFn: func(ctx context.Context, limit int32) ([]database.OrderEvent, error) {
			return []database.OrderEvent{confirmedEvent(t, 5, payload)}, nil
		},
		createKitchenTicketFn: func(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error) {
			priority = arg.Priority
			return database.KitchenTicket{ID: uuid.New(), Station: arg.Station}, nil
		},
		createKitchenTicketItemFn: func(ctx context.Context, arg database.CreateKitchenTicketItemParams) error {
			return nil
		},
		markOrderEventDispatchedFn: func(ctx context.Context, id int64) error { return nil },
	}

	d, _, _, _ := newTestDispatcher(store)
	if _, err := d.DispatchPending(context.Background()); err != nil {
		t.Fatalf("DispatchPending: %v", err)
	}
	if priority != 4 { // delivery (3) + waiting boost (1)
		t.Errorf("priority: got %d, want 4", priority)
	}
}
