package service

import (
	"sync"
	"testing"
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeliveryStore mirrors the conditional UPDATE the real repository runs:
// the write applies only when the current status is in the behind set.
type fakeDeliveryStore struct {
	mu      sync.Mutex
	records map[[2]uint]*models.MessageRecipient
}

func newFakeDeliveryStore() *fakeDeliveryStore {
	return &fakeDeliveryStore{records: make(map[[2]uint]*models.MessageRecipient)}
}

func (f *fakeDeliveryStore) seed(messageID uint, recipientIDs ...uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rid := range recipientIDs {
		f.records[[2]uint{messageID, rid}] = &models.MessageRecipient{
			MessageID:   messageID,
			RecipientID: rid,
			Status:      domain.DeliverySent,
		}
	}
}

func (f *fakeDeliveryStore) AdvanceRecipient(messageID, recipientID uint, newStatus string, behind []string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[[2]uint{messageID, recipientID}]
	if !ok {
		return false, nil
	}
	for _, status := range behind {
		if rec.Status == status {
			rec.Status = newStatus
			switch newStatus {
			case domain.DeliveryDelivered:
				rec.DeliveredAt = &at
			case domain.DeliveryRead:
				rec.ReadAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDeliveryStore) ListRecipients(messageID uint) ([]models.MessageRecipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MessageRecipient
	for key, rec := range f.records {
		if key[0] == messageID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeDeliveryStore) status(messageID, recipientID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[[2]uint{messageID, recipientID}].Status
}

func TestDeliveryService_Advance(t *testing.T) {
	store := newFakeDeliveryStore()
	store.seed(1, 2)
	svc := NewDeliveryService(store)

	applied, err := svc.Advance(1, 2, domain.DeliveryDelivered)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.DeliveryDelivered, store.status(1, 2))

	t.Run("repeat is a no-op", func(t *testing.T) {
		applied, err := svc.Advance(1, 2, domain.DeliveryDelivered)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("advance to read", func(t *testing.T) {
		applied, err := svc.Advance(1, 2, domain.DeliveryRead)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, domain.DeliveryRead, store.status(1, 2))
	})

	t.Run("late delivered receipt never regresses read", func(t *testing.T) {
		applied, err := svc.Advance(1, 2, domain.DeliveryDelivered)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, domain.DeliveryRead, store.status(1, 2))
	})
}

func TestDeliveryService_AdvanceSkipsDelivered(t *testing.T) {
	// READ straight from SENT is legal: a read receipt implies delivery.
	store := newFakeDeliveryStore()
	store.seed(1, 2)
	svc := NewDeliveryService(store)

	applied, err := svc.Advance(1, 2, domain.DeliveryRead)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.DeliveryRead, store.status(1, 2))
}

func TestDeliveryService_AdvanceRejectsSentAndUnknown(t *testing.T) {
	store := newFakeDeliveryStore()
	store.seed(1, 2)
	svc := NewDeliveryService(store)

	applied, err := svc.Advance(1, 2, domain.DeliverySent)
	require.NoError(t, err)
	assert.False(t, applied, "SENT is the creation state, not a transition target")

	_, err = svc.Advance(1, 2, "TELEPORTED")
	assert.Error(t, err)
}

func TestDeliveryService_AdvanceUnknownRecipient(t *testing.T) {
	store := newFakeDeliveryStore()
	store.seed(1, 2)
	svc := NewDeliveryService(store)

	applied, err := svc.Advance(1, 99, domain.DeliveryRead)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestDeliveryService_ConcurrentReadsApplyOnce(t *testing.T) {
	store := newFakeDeliveryStore()
	store.seed(1, 2)
	svc := NewDeliveryService(store)

	const n = 16
	results := make([]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, err := svc.Advance(1, 2, domain.DeliveryRead)
			assert.NoError(t, err)
			results[i] = applied
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		if r {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one concurrent receipt may apply")
}

func TestDeliveryService_OverallStatus(t *testing.T) {
	store := newFakeDeliveryStore()
	store.seed(1, 2, 3, 4)
	svc := NewDeliveryService(store)

	overall, err := svc.OverallStatus(1)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, overall)

	// One recipient read, rest still sent: the aggregate stays at the minimum.
	_, err = svc.Advance(1, 2, domain.DeliveryRead)
	require.NoError(t, err)
	overall, err = svc.OverallStatus(1)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, overall)

	for _, rid := range []uint{3, 4} {
		_, err = svc.Advance(1, rid, domain.DeliveryDelivered)
		require.NoError(t, err)
	}
	overall, err = svc.OverallStatus(1)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryDelivered, overall)

	for _, rid := range []uint{3, 4} {
		_, err = svc.Advance(1, rid, domain.DeliveryRead)
		require.NoError(t, err)
	}
	overall, err = svc.OverallStatus(1)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRead, overall)
}

func TestDeliveryService_OverallStatusNoRecipients(t *testing.T) {
	svc := NewDeliveryService(newFakeDeliveryStore())
	overall, err := svc.OverallStatus(42)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliverySent, overall)
}
