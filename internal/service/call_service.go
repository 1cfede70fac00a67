package service

import (
	"log"
	"sync"
	"time"

	"chatline/internal/domain"
	"chatline/internal/models"
	"chatline/internal/realtime"
)

// CallStore persists transition results. The in-memory entry is the source
// of truth while a call is live; a failed write is logged and does not undo
// the transition.
type CallStore interface {
	Create(c *models.Call) error
	Update(c *models.Call) error
	GetByID(id uint) (*models.Call, error)
	CreateParticipant(p *models.CallParticipant) error
	CloseParticipant(callID, userID uint, at time.Time) error
}

// callEntry guards one live call. The cap-1 channel is the per-call
// mutation lock: whoever holds the token owns the call's state, and an
// acquire that times out reports the same InvalidTransition a lost race
// would.
type callEntry struct {
	mu           chan struct{}
	call         *models.Call
	ringDeadline time.Time
}

// CallService is the call-signaling state machine:
//
//	INITIATED -> RINGING -> ANSWERED -> ENDED
//	                     -> DECLINED | MISSED
//
// Exactly one of Answer, Decline, End, ExpireRinging wins the transition out
// of RINGING; the others observe the advanced state and fail.
type CallService struct {
	mu     sync.Mutex
	live   map[uint]*callEntry
	byUser map[uint]uint // user id -> live call id, both peers indexed

	store       CallStore
	fanout      *realtime.Fanout
	chats       realtime.ChatMembership
	ringWindow  time.Duration
	lockTimeout time.Duration
	now         func() time.Time
}

func NewCallService(store CallStore, fanout *realtime.Fanout, chats realtime.ChatMembership, ringWindow, lockTimeout time.Duration) *CallService {
	return &CallService{
		live:        make(map[uint]*callEntry),
		byUser:      make(map[uint]uint),
		store:       store,
		fanout:      fanout,
		chats:       chats,
		ringWindow:  ringWindow,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

// Initiate creates the call and immediately moves it to RINGING, ringing the
// receiver's private channel. A receiver already on a live call yields
// ErrBusy; the attempt is still recorded as a BUSY call for history.
func (s *CallService) Initiate(callerID, receiverID, chatID uint, callType string) (*models.Call, error) {
	if callType != domain.CallTypeAudio && callType != domain.CallTypeVideo {
		return nil, domain.ErrInvalidTransition
	}
	now := s.now()

	s.mu.Lock()
	_, receiverBusy := s.byUser[receiverID]
	_, callerBusy := s.byUser[callerID]
	if receiverBusy || callerBusy {
		s.mu.Unlock()
		busy := &models.Call{
			ChatID:     chatID,
			CallerID:   callerID,
			ReceiverID: receiverID,
			Type:       callType,
			Status:     domain.CallStatusBusy,
			StartedAt:  now,
			EndedAt:    &now,
		}
		if err := s.store.Create(busy); err != nil {
			log.Printf("[call] record busy attempt: %v", err)
		}
		return busy, domain.ErrBusy
	}
	// Reserve both peers before releasing the lock so a concurrent
	// Initiate cannot slip in while the row is being created.
	s.byUser[callerID] = 0
	s.byUser[receiverID] = 0
	s.mu.Unlock()

	call := &models.Call{
		ChatID:     chatID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		Type:       callType,
		Status:     domain.CallStatusInitiated,
		StartedAt:  now,
	}
	if err := s.store.Create(call); err != nil {
		s.mu.Lock()
		delete(s.byUser, callerID)
		delete(s.byUser, receiverID)
		s.mu.Unlock()
		return nil, err
	}
	call.Status = domain.CallStatusRinging
	entry := &callEntry{
		mu:           make(chan struct{}, 1),
		call:         call,
		ringDeadline: now.Add(s.ringWindow),
	}
	s.mu.Lock()
	s.live[call.ID] = entry
	s.byUser[callerID] = call.ID
	s.byUser[receiverID] = call.ID
	s.mu.Unlock()

	snap := cloneCall(call)
	s.persist(snap)
	s.publish(realtime.CallIncoming{Call: snap})
	return snap, nil
}

// Answer is legal only from RINGING and only for the receiver.
func (s *CallService) Answer(callID, byUserID uint) (*models.Call, error) {
	entry, err := s.entry(callID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(entry) {
		return nil, domain.ErrInvalidTransition
	}
	if entry.call.Status != domain.CallStatusRinging {
		s.release(entry)
		return nil, domain.ErrInvalidTransition
	}
	if byUserID != entry.call.ReceiverID {
		s.release(entry)
		return nil, domain.ErrForbidden
	}
	now := s.now()
	entry.call.Status = domain.CallStatusAnswered
	entry.call.AnsweredAt = &now
	// Answered calls have no ring window left to expire.
	entry.ringDeadline = time.Time{}
	snap := cloneCall(entry.call)
	s.release(entry)

	s.persist(snap)
	for _, uid := range []uint{snap.CallerID, snap.ReceiverID} {
		if err := s.store.CreateParticipant(&models.CallParticipant{CallID: snap.ID, UserID: uid, JoinedAt: now}); err != nil {
			log.Printf("[call] participant %d on call %d: %v", uid, snap.ID, err)
		}
	}
	s.publish(realtime.CallAnswered{Call: snap})
	return snap, nil
}

// Decline is legal only from RINGING and only for the receiver.
func (s *CallService) Decline(callID, byUserID uint) (*models.Call, error) {
	entry, err := s.entry(callID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(entry) {
		return nil, domain.ErrInvalidTransition
	}
	if entry.call.Status != domain.CallStatusRinging {
		s.release(entry)
		return nil, domain.ErrInvalidTransition
	}
	if byUserID != entry.call.ReceiverID {
		s.release(entry)
		return nil, domain.ErrForbidden
	}
	snap := s.finishLocked(entry, domain.CallStatusDeclined)
	s.release(entry)

	s.persist(snap)
	s.publish(realtime.CallRejected{Call: snap})
	return snap, nil
}

// End is legal from RINGING or ANSWERED. Ending a ringing call resolves to
// MISSED when the caller hangs up and DECLINED when the receiver does; an
// answered call ends with its duration.
func (s *CallService) End(callID, byUserID uint) (*models.Call, error) {
	entry, err := s.entry(callID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(entry) {
		return nil, domain.ErrInvalidTransition
	}
	if byUserID != entry.call.CallerID && byUserID != entry.call.ReceiverID {
		s.release(entry)
		return nil, domain.ErrForbidden
	}
	var snap *models.Call
	switch entry.call.Status {
	case domain.CallStatusRinging:
		status := domain.CallStatusMissed
		if byUserID == entry.call.ReceiverID {
			status = domain.CallStatusDeclined
		}
		snap = s.finishLocked(entry, status)
	case domain.CallStatusAnswered:
		snap = s.finishLocked(entry, domain.CallStatusEnded)
	default:
		s.release(entry)
		return nil, domain.ErrInvalidTransition
	}
	s.release(entry)

	s.persist(snap)
	if snap.EndedAt != nil {
		for _, uid := range []uint{snap.CallerID, snap.ReceiverID} {
			if err := s.store.CloseParticipant(snap.ID, uid, *snap.EndedAt); err != nil {
				log.Printf("[call] close participant %d on call %d: %v", uid, snap.ID, err)
			}
		}
	}
	if snap.Status == domain.CallStatusDeclined {
		s.publish(realtime.CallRejected{Call: snap})
	} else {
		s.publish(realtime.CallEnded{Call: snap})
	}
	return snap, nil
}

// ExpireRinging is the scheduler-driven RINGING -> MISSED transition. It
// competes for the same per-call lock as Answer and Decline, so a
// simultaneous answer either beats it or loses to it, never both.
func (s *CallService) ExpireRinging(callID uint) (*models.Call, error) {
	entry, err := s.entry(callID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(entry) {
		return nil, domain.ErrInvalidTransition
	}
	if entry.call.Status != domain.CallStatusRinging {
		s.release(entry)
		return nil, domain.ErrInvalidTransition
	}
	snap := s.finishLocked(entry, domain.CallStatusMissed)
	s.release(entry)

	s.persist(snap)
	s.publish(realtime.CallEnded{Call: snap})
	return snap, nil
}

// JoinCall adds a chat member to an answered group call.
func (s *CallService) JoinCall(callID, userID uint) error {
	entry, err := s.entry(callID)
	if err != nil {
		return err
	}
	if !s.acquire(entry) {
		return domain.ErrInvalidTransition
	}
	if entry.call.Status != domain.CallStatusAnswered {
		s.release(entry)
		return domain.ErrInvalidTransition
	}
	chatID := entry.call.ChatID
	s.release(entry)
	if s.chats != nil && !s.chats.IsActiveParticipant(chatID, userID) {
		return domain.ErrForbidden
	}
	return s.store.CreateParticipant(&models.CallParticipant{CallID: callID, UserID: userID, JoinedAt: s.now()})
}

func (s *CallService) LeaveCall(callID, userID uint) error {
	return s.store.CloseParticipant(callID, userID, s.now())
}

// Get returns the live snapshot when the call is active, else the stored row.
func (s *CallService) Get(callID uint) (*models.Call, error) {
	s.mu.Lock()
	entry, ok := s.live[callID]
	s.mu.Unlock()
	if ok {
		if !s.acquire(entry) {
			return nil, domain.ErrInvalidTransition
		}
		snap := cloneCall(entry.call)
		s.release(entry)
		return snap, nil
	}
	call, err := s.store.GetByID(callID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return call, nil
}

// DueRinging lists live calls whose ring window has elapsed. ExpireRinging
// revalidates under the call lock, so a stale hit here is harmless.
func (s *CallService) DueRinging(now time.Time) []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []uint
	for id, entry := range s.live {
		if !entry.ringDeadline.IsZero() && now.After(entry.ringDeadline) {
			due = append(due, id)
		}
	}
	return due
}

// finishLocked stamps the terminal status and drops the call from the live
// index. Caller must hold the entry lock.
func (s *CallService) finishLocked(entry *callEntry, status string) *models.Call {
	now := s.now()
	entry.call.Status = status
	entry.call.EndedAt = &now
	if status == domain.CallStatusEnded && entry.call.AnsweredAt != nil {
		entry.call.DurationSeconds = int(now.Sub(*entry.call.AnsweredAt).Seconds())
	}
	snap := cloneCall(entry.call)
	s.mu.Lock()
	delete(s.live, entry.call.ID)
	if s.byUser[entry.call.CallerID] == entry.call.ID {
		delete(s.byUser, entry.call.CallerID)
	}
	if s.byUser[entry.call.ReceiverID] == entry.call.ID {
		delete(s.byUser, entry.call.ReceiverID)
	}
	s.mu.Unlock()
	return snap
}

// entry resolves the live entry; a call unknown to the live index is either
// gone (terminal, InvalidTransition) or never existed (NotFound).
func (s *CallService) entry(callID uint) (*callEntry, error) {
	s.mu.Lock()
	entry, ok := s.live[callID]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}
	call, err := s.store.GetByID(callID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	if !domain.CallTerminal(call.Status) {
		// Known but not live: the in-memory session was lost (restart).
		log.Printf("[call] call %d found in store without a live session", call.ID)
	}
	return nil, domain.ErrInvalidTransition
}

func (s *CallService) acquire(e *callEntry) bool {
	select {
	case e.mu <- struct{}{}:
		return true
	case <-time.After(s.lockTimeout):
		return false
	}
}

func (s *CallService) release(e *callEntry) { <-e.mu }

func (s *CallService) persist(snap *models.Call) {
	if err := s.store.Update(snap); err != nil {
		log.Printf("[call] persist call %d: %v", snap.ID, err)
	}
}

func (s *CallService) publish(ev realtime.DomainEvent) {
	if s.fanout != nil {
		s.fanout.Publish(ev)
	}
}

func cloneCall(c *models.Call) *models.Call {
	snap := *c
	if c.AnsweredAt != nil {
		t := *c.AnsweredAt
		snap.AnsweredAt = &t
	}
	if c.EndedAt != nil {
		t := *c.EndedAt
		snap.EndedAt = &t
	}
	return &snap
}
