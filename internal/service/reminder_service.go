package service

import (
	"context"
	"log"
	"time"

	"configas/internal/domain"
	"configas/internal/models"
	"configas/internal/repository"
	"configas/pkg/sms"
)

// ReminderService fires a single nudge SMS a few minutes after a charge is
// created, but only if it is still waiting for payment at that point.
type ReminderService struct {
	charges   *repository.ChargeRepository
	reminders *repository.ReminderRepository
	sender    *sms.Client
	delay     time.Duration
}

func NewReminderService(charges *repository.ChargeRepository, reminders *repository.ReminderRepository, sender *sms.Client, delay time.Duration) *ReminderService {
	return &ReminderService{charges: charges, reminders: reminders, sender: sender, delay: delay}
}

// Schedule arms the reminder timer for a charge. The charge state is
// re-read at fire time, a payment or expiry in the meantime cancels the
// message naturally.
func (s *ReminderService) Schedule(chargeID uint, phone string) {
	if s.sender == nil || phone == "" {
		return
	}
	time.AfterFunc(s.delay, func() {
		s.fire(chargeID, phone)
	})
}

func (s *ReminderService) fire(chargeID uint, phone string) {
	charge, err := s.charges.GetByID(chargeID)
	if err != nil {
		log.Printf("[Reminder] load charge %d: %v", chargeID, err)
		return
	}
	if charge.Status != domain.StatusWaitingPayment {
		return
	}
	if s.reminders.AlreadySent(chargeID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	providerID, err := s.sender.Send(ctx, phone, sms.ReminderMessage)
	if err != nil {
		log.Printf("[Reminder] send to %s failed: %v", phone, err)
		return
	}
	rem := models.SmsReminder{ChargeID: chargeID, Phone: phone, ProviderID: providerID, SentAt: time.Now()}
	if err := s.reminders.Create(&rem); err != nil {
		log.Printf("[Reminder] record charge %d: %v", chargeID, err)
	}
	log.Printf("[Reminder] payment nudge sent charge=%d", chargeID)
}
