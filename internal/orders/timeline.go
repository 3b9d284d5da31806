package orders

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

var timelineLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:    "Order placed",
	enums.OrderStatusProcessing: "Order processing started",
	enums.OrderStatusShipped:    "Order shipped",
	enums.OrderStatusDelivered:  "Delivered",
	enums.OrderStatusCancelled:  "Order cancelled",
	enums.OrderStatusReturned:   "Order returned",
}

const systemActor = "System"

// Timeline lists the recorded status changes of an order, oldest first, with
// the payment settlement folded in when there is one.
func (s *service) Timeline(ctx context.Context, id uuid.UUID, actor Actor) (*TimelineDTO, error) {
	order, err := s.GetForActor(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	entries := make([]TimelineEntryDTO, 0, len(order.StatusHistory)+2)
	if len(order.StatusHistory) == 0 {
		entries = append(entries, TimelineEntryDTO{
			Key:       "created",
			Label:     "Order created",
			Timestamp: order.CreatedAt,
			UpdatedBy: systemActor,
			Completed: true,
		})
	}
	for _, event := range order.StatusHistory {
		label, ok := timelineLabels[event.Status]
		if !ok {
			label = event.Status.String()
		}
		by := systemActor
		if event.ActorID != nil {
			switch {
			case *event.ActorID == order.UserID:
				by = "Customer"
			default:
				by = event.ActorID.String()
			}
		}
		entries = append(entries, TimelineEntryDTO{
			Key:       event.Status.String(),
			Label:     label,
			Timestamp: event.CreatedAt,
			Note:      event.Note,
			UpdatedBy: by,
			Completed: true,
		})
	}
	if order.IsPaid() && order.PaymentDate != nil {
		entries = append(entries, TimelineEntryDTO{
			Key:       string(enums.PaymentStatusPaid),
			Label:     "Payment received",
			Timestamp: *order.PaymentDate,
			UpdatedBy: systemActor,
			Completed: true,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return &TimelineDTO{CurrentStatus: order.Status, Timeline: entries}, nil
}

// Stats aggregates a user's orders per status. Sums are done in decimal so the
// result does not depend on the store's numeric handling.
func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*StatsDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.ListUserOrderTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &StatsDTO{TotalSpent: decimal.Zero, ByStatus: []StatusStatDTO{}}
	index := map[enums.OrderStatus]int{}
	for _, row := range rows {
		stats.TotalOrders++
		if row.IsPaid() {
			stats.TotalSpent = stats.TotalSpent.Add(row.Total)
		}
		i, ok := index[row.Status]
		if !ok {
			i = len(stats.ByStatus)
			index[row.Status] = i
			stats.ByStatus = append(stats.ByStatus, StatusStatDTO{Status: row.Status, TotalAmount: decimal.Zero})
		}
		stats.ByStatus[i].Count++
		stats.ByStatus[i].TotalAmount = stats.ByStatus[i].TotalAmount.Add(row.Total)
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool {
		return stats.ByStatus[i].Status < stats.ByStatus[j].Status
	})
	return stats, nil
}
