package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/database"
	"github.com/arunika-pos/api/internal/enum"
	"github.com/arunika-pos/api/internal/service"
	"github.com/arunika-pos/api/internal/ws"
)

const defaultBatchSize = 50

// TicketStore defines the DB methods the dispatcher needs.
// Satisfied by *database.Queries.
type TicketStore interface {
	PendingOrderEvents(ctx context.Context, limit int32) ([]database.OrderEvent, error)
	MarkOrderEventDispatched(ctx context.Context, id int64) error
	CreateKitchenTicket(ctx context.Context, arg database.CreateKitchenTicketParams) (database.KitchenTicket, error)
	CreateKitchenTicketItem(ctx context.Context, arg database.CreateKitchenTicketItemParams) error
}

// NewTicketStore creates a TicketStore from a DBTX (pool or tx).
type NewTicketStore func(db database.DBTX) TicketStore

// Broadcaster pushes a ticket event to the kitchen displays of one branch.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToBranch(branchID uuid.UUID, event ws.Event)
}

// Publisher forwards a ticket to an external broker. Optional.
type Publisher interface {
	PublishTicket(ctx context.Context, msg TicketMessage) error
}

// TicketMessage is the wire form of a created ticket, shared by the
// WebSocket broadcast and the broker publish.
type TicketMessage struct {
	TicketID    uuid.UUID        `json:"ticket_id"`
	OrderID     uuid.UUID        `json:"order_id"`
	BranchID    uuid.UUID        `json:"branch_id"`
	OrderNumber string           `json:"order_number"`
	Station     enum.Station     `json:"station"`
	Priority    int32            `json:"priority"`
	Items       []TicketItemInfo `json:"items"`
}

type TicketItemInfo struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Name        string    `json:"name"`
	Quantity    int32     `json:"quantity"`
	Notes       string    `json:"notes,omitempty"`
}

// Dispatcher drains the order_events outbox and turns confirmed orders
// into per-station kitchen tickets. Delivery is at-least-once: an event
// stays pending until its tickets are committed in the same transaction
// that marks it dispatched, and the (order_id, station) unique constraint
// absorbs redeliveries.
type Dispatcher struct {
	pool      service.TxBeginner
	newStore  NewTicketStore
	hub       Broadcaster
	publisher Publisher
	interval  time.Duration
	batchSize int32
	now       func() time.Time
}

// NewDispatcher creates a Dispatcher. publisher may be nil when no broker
// is configured; tickets then reach displays over WebSocket only.
func NewDispatcher(pool service.TxBeginner, newStore NewTicketStore, hub Broadcaster, publisher Publisher, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		newStore:  newStore,
		hub:       hub,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				log.Printf("ERROR: kitchen dispatch: %v", err)
			}
		}
	}
}

// DispatchPending processes one batch of pending outbox events and
// returns how many it handled. Exported so a confirmation handler can
// nudge the dispatcher instead of waiting for the next tick.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := d.newStore(tx)

	events, err := store.PendingOrderEvents(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var created []TicketMessage
	for _, event := range events {
		msgs, err := d.handleEvent(ctx, store, event)
		if err != nil {
			return 0, fmt.Errorf("event %d: %w", event.ID, err)
		}
		created = append(created, msgs...)

		if err := store.MarkOrderEventDispatched(ctx, event.ID); err != nil {
			return 0, fmt.Errorf("mark event %d dispatched: %w", event.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	// Notifications go out only after the tickets are durable. A crash
	// here loses the push, not the ticket; displays reconcile on reload.
	for _, msg := range created {
		d.notify(ctx, msg)
	}
	return len(events), nil
}

// handleEvent turns one order.confirmed event into per-station tickets.
// Unknown event types are skipped, not failed, so a bad row cannot wedge
// the outbox.
func (d *Dispatcher) handleEvent(ctx context.Context, store TicketStore, event database.OrderEvent) ([]TicketMessage, error) {
	if event.EventType != enum.EventOrderConfirmed {
		log.Printf("WARN: skipping unknown event type %q (event %d)", event.EventType, event.ID)
		return nil, nil
	}

	var payload service.ConfirmedEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		log.Printf("WARN: skipping undecodable payload (event %d): %v", event.ID, err)
		return nil, nil
	}

	priority := TicketPriority(payload.OrderType, payload.CreatedAt, d.now())
	var msgs []TicketMessage

	for _, station := range stationOrder(payload.Items) {
		ticket, err := store.CreateKitchenTicket(ctx, database.CreateKitchenTicketParams{
			OrderID:  payload.OrderID,
			BranchID: payload.BranchID,
			Station:  station,
			Priority: priority,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Redelivered event; this station's ticket already exists.
				continue
			}
			return nil, fmt.Errorf("create ticket (%s): %w", station, err)
		}

		msg := TicketMessage{
			TicketID:    ticket.ID,
			OrderID:     payload.OrderID,
			BranchID:    payload.BranchID,
			OrderNumber: payload.OrderNumber,
			Station:     station,
			Priority:    priority,
		}
		for _, item := range payload.Items {
			if item.Station != station {
				continue
			}
			if err := store.CreateKitchenTicketItem(ctx, database.CreateKitchenTicketItemParams{
				TicketID:    ticket.ID,
				OrderItemID: item.OrderItemID,
				Name:        item.Name,
				Quantity:    item.Quantity,
				Notes:       textOrNull(item.Notes),
			}); err != nil {
				return nil, fmt.Errorf("create ticket item: %w", err)
			}
			msg.Items = append(msg.Items, TicketItemInfo{
				OrderItemID: item.OrderItemID,
				Name:        item.Name,
				Quantity:    item.Quantity,
				Notes:       item.Notes,
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// notify pushes one ticket to WebSocket clients and, when a broker is
// configured, to the topic exchange. Both are best-effort.
func (d *Dispatcher) notify(ctx context.Context, msg TicketMessage) {
	if d.hub != nil {
		raw, err := json.Marshal(msg)
		if err == nil {
			d.hub.BroadcastToBranch(msg.BranchID, ws.Event{Type: "ticket.created", Payload: raw})
		}
	}
	if d.publisher != nil {
		if err := d.publisher.PublishTicket(ctx, msg); err != nil {
			log.Printf("ERROR: publish ticket %s: %v", msg.TicketID, err)
		}
	}
}

// stationOrder returns the distinct stations of the items, in first-seen
// order, so ticket creation is deterministic.
func stationOrder(items []service.ConfirmedEventItem) []enum.Station {
	var stations []enum.Station
	seen := make(map[enum.Station]bool)
	for _, item := range items {
		if !seen[item.Station] {
			seen[item.Station] = true
			stations = append(stations, item.Station)
		}
	}
	return stations
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
