package scheduler

import (
	"log"
	"time"

	"chatline/internal/repository"
	"chatline/internal/service"
)

const ringSweepInterval = time.Second

// Scheduler runs the two background sweeps: expiring calls that rang past
// their window and purging statuses past their TTL.
type Scheduler struct {
	calls      *service.CallService
	statuses   *service.StatusService
	notifs     *service.NotificationService
	users      *repository.UserRepository
	purgeEvery time.Duration

	stop chan struct{}
	done chan struct{}
}

func New(calls *service.CallService, statuses *service.StatusService, notifs *service.NotificationService, users *repository.UserRepository, purgeEvery time.Duration) *Scheduler {
	return &Scheduler{
		calls:      calls,
		statuses:   statuses,
		notifs:     notifs,
		users:      users,
		purgeEvery: purgeEvery,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.run()
}

// Stop blocks until the sweep loop has exited.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	ringTicker := time.NewTicker(ringSweepInterval)
	defer ringTicker.Stop()
	purgeTicker := time.NewTicker(s.purgeEvery)
	defer purgeTicker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ringTicker.C:
			s.sweepRinging(now)
		case <-purgeTicker.C:
			s.purgeStatuses()
		}
	}
}

func (s *Scheduler) sweepRinging(now time.Time) {
	for _, callID := range s.calls.DueRinging(now) {
		call, err := s.calls.ExpireRinging(callID)
		if err != nil {
			// Lost the race to an answer or decline; nothing to do.
			continue
		}
		callerName := "Unknown"
		if caller, err := s.users.GetByID(call.CallerID); err == nil {
			callerName = caller.Username
		}
		if err := s.notifs.NotifyMissedCall(call.ReceiverID, callerName, call.ID); err != nil {
			log.Printf("[scheduler] missed-call notify for call %d: %v", call.ID, err)
		}
	}
}

func (s *Scheduler) purgeStatuses() {
	purged, err := s.statuses.PurgeExpired()
	if err != nil {
		log.Printf("[scheduler] status purge: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("[scheduler] purged %d expired statuses", purged)
	}
}
