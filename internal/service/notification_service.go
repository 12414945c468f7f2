package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careslot/careslot-api/internal/models"
	"github.com/careslot/careslot-api/pkg/jobs"
)

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes messages to the log instead of delivering them. It is the
// default when no SMTP transport is configured, so development environments
// can see OTP codes and confirmations without a mail server.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("outbound mail", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

type notificationDispatcher interface {
	Enqueue(job jobs.Job) error
}

type mailPayload struct {
	To      string
	Subject string
	Body    string
}

// NotificationService queues outbound mail so request handlers never wait on
// delivery. A nil service drops everything silently.
type NotificationService struct {
	queue  notificationDispatcher
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(queue notificationDispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: logger}
}

// NotificationWorker bridges queue jobs to the mailer.
type NotificationWorker struct {
	mailer Mailer
	logger *zap.Logger
}

// NewNotificationWorker constructs a worker.
func NewNotificationWorker(mailer Mailer, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &NotificationWorker{mailer: mailer, logger: logger}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(mailPayload)
	if !ok {
		w.logger.Warn("discarding notification with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return w.mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
}

// OTPIssued queues the one-time password mail. The code only ever travels
// through this queue; it is never logged or stored in plain text.
func (s *NotificationService) OTPIssued(email, code string, expiresAt time.Time) {
	s.enqueue("otp_issued", mailPayload{
		To:      email,
		Subject: "Your sign-in code",
		Body:    fmt.Sprintf("Your sign-in code is %s. It expires at %s.", code, expiresAt.Format(time.RFC1123)),
	})
}

// AppointmentBooked queues booking confirmations for patient and doctor.
func (s *NotificationService) AppointmentBooked(appt *models.Appointment, doctor *models.Doctor) {
	if appt == nil || doctor == nil {
		return
	}
	when := fmt.Sprintf("%s at %s", appt.AppointmentDate, appt.StartTime)
	s.enqueue("appointment_booked", mailPayload{
		To:      appt.Email,
		Subject: "Appointment requested",
		Body:    fmt.Sprintf("Your appointment with %s on %s is pending confirmation.", doctor.FullName, when),
	})
	s.enqueue("appointment_booked", mailPayload{
		To:      doctor.Email,
		Subject: "New appointment request",
		Body:    fmt.Sprintf("%s %s requested an appointment on %s.", appt.FirstName, appt.LastName, when),
	})
}

// AppointmentStatusChanged notifies the patient of a lifecycle transition.
func (s *NotificationService) AppointmentStatusChanged(appt *models.Appointment, status models.AppointmentStatus) {
	if appt == nil {
		return
	}
	s.enqueue("appointment_status", mailPayload{
		To:      appt.Email,
		Subject: fmt.Sprintf("Appointment %s", status),
		Body:    fmt.Sprintf("Your appointment on %s at %s is now %s.", appt.AppointmentDate, appt.StartTime, status),
	})
}

// DoctorReviewed notifies a doctor of the admin's registration decision.
func (s *NotificationService) DoctorReviewed(doctor *models.Doctor, status models.DoctorStatus) {
	if doctor == nil {
		return
	}
	s.enqueue("doctor_reviewed", mailPayload{
		To:      doctor.Email,
		Subject: fmt.Sprintf("Registration %s", status),
		Body:    fmt.Sprintf("Your registration has been %s.", status),
	})
}

func (s *NotificationService) enqueue(jobType string, payload mailPayload) {
	if s == nil || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: payload}); err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("type", jobType), zap.Error(err))
	}
}
