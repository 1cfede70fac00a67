package service

import (
	"context"
	"encoding/json"
	"log"

	"chatline/internal/domain"
	"chatline/internal/models"
	"chatline/internal/realtime"
	"chatline/internal/repository"
)

// NotificationService persists in-app notifications and mirrors them to FCM.
// It also implements realtime.PushSender, so user-channel fan-outs reach
// devices without an open socket.
type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      *FCMService
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, fcm *FCMService) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(userID, notifType, title, body, data)
	return nil
}

// Push routes a fan-out envelope to FCM. Incoming calls go as data-only
// pushes so the native call UI fires; read receipts and presence deltas are
// socket-only noise and are skipped.
func (s *NotificationService) Push(userID uint, env realtime.Envelope) {
	switch env.Event {
	case domain.EventMessageSent, domain.EventGroupMessageSent:
		s.sendPush(userID, env.Event, "New message", "You have a new message", map[string]interface{}{"payload": env.Data})
	case domain.EventCallIncoming:
		s.sendCallPush(userID, env)
	case domain.EventCallRejected, domain.EventCallEnded, domain.EventCallAnswered:
		// Peer has an active signaling socket when these matter.
	case domain.EventStatusPosted:
		s.sendPush(userID, env.Event, "Status update", "A contact posted a status", nil)
	}
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s == nil || s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	_ = s.fcm.SendToUser(context.Background(), u.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) sendCallPush(userID uint, env realtime.Envelope) {
	if s == nil || s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.FCMToken == "" {
		return
	}
	payload, err := json.Marshal(env.Data)
	if err != nil {
		log.Printf("[notify] marshal call push: %v", err)
		return
	}
	_ = s.fcm.SendDataOnly(context.Background(), u.FCMToken, map[string]string{
		"type": env.Event,
		"call": string(payload),
	})
}

func (s *NotificationService) NotifyMissedCall(userID uint, callerName string, callID uint) error {
	return s.Notify(userID, "MISSED_CALL", "Missed call", callerName+" tried to call you", map[string]interface{}{"call_id": callID})
}
