package service

import (
	"fmt"
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"
)

// DeliveryStore is the conditional-write surface the tracker runs on. The
// (message, recipient) uniqueness plus the status-behind guard in
// AdvanceRecipient is the concurrency primitive; the tracker itself holds
// no locks.
type DeliveryStore interface {
	AdvanceRecipient(messageID, recipientID uint, newStatus string, behind []string, at time.Time) (bool, error)
	ListRecipients(messageID uint) ([]models.MessageRecipient, error)
}

var deliveryRank = map[string]int{
	domain.DeliverySent:      0,
	domain.DeliveryDelivered: 1,
	domain.DeliveryRead:      2,
}

// DeliveryService advances per-recipient delivery state exactly once per
// transition: SENT -> DELIVERED -> READ, never backwards.
type DeliveryService struct {
	store DeliveryStore
}

func NewDeliveryService(store DeliveryStore) *DeliveryService {
	return &DeliveryService{store: store}
}

// Advance moves one (message, recipient) record forward. Re-sending an
// already-applied or behind-current status is a no-op returning false, so
// retransmitted and out-of-order receipts are safe to replay.
func (s *DeliveryService) Advance(messageID, recipientID uint, newStatus string) (bool, error) {
	rank, ok := deliveryRank[newStatus]
	if !ok {
		return false, fmt.Errorf("unknown delivery status %q", newStatus)
	}
	if rank == 0 {
		// SENT is the creation state, not a transition target.
		return false, nil
	}
	behind := make([]string, 0, rank)
	for status, r := range deliveryRank {
		if r < rank {
			behind = append(behind, status)
		}
	}
	return s.store.AdvanceRecipient(messageID, recipientID, newStatus, behind, time.Now())
}

// OverallStatus derives the sender-facing aggregate on demand: the minimum
// status across all recipients. It is never stored, so it cannot diverge
// from the per-recipient records.
func (s *DeliveryService) OverallStatus(messageID uint) (string, error) {
	recs, err := s.store.ListRecipients(messageID)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return domain.DeliverySent, nil
	}
	min := deliveryRank[domain.DeliveryRead]
	for _, rec := range recs {
		if r, ok := deliveryRank[rec.Status]; ok && r < min {
			min = r
		}
	}
	for status, r := range deliveryRank {
		if r == min {
			return status, nil
		}
	}
	return domain.DeliverySent, nil
}

// Recipients exposes the raw per-recipient records for the message-info view.
func (s *DeliveryService) Recipients(messageID uint) ([]models.MessageRecipient, error) {
	return s.store.ListRecipients(messageID)
}
