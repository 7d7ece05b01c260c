package service

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"carthago-travel-backend/internal/domain"
)

type emailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewEmailService(host string, port int, username, password, from string) EmailService {
	return &emailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *emailService) SendReservationConfirmation(ctx context.Context, email, name string, res *domain.Reservation) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Reservation #%d confirmed", res.ID))

	body := fmt.Sprintf(
		"Hello %s,\n\nYour payment was received and your reservation is confirmed.\n\nReservation: #%d\nPickup: %s\nDropoff: %s\nTotal price: %.2f %s\nAmount paid: %.3f %s\n\nSafe travels,\nThe Carthago Travel Team",
		name, res.ID,
		res.PickupDate.Format(domain.DayFormat),
		res.DropoffDate.Format(domain.DayFormat),
		res.TotalPrice, res.Currency,
		float64(res.AmountPaidMillimes)/1000, res.Currency,
	)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send reservation confirmation: %w", err)
	}

	return nil
}

func (s *emailService) SendProlongationRejection(ctx context.Context, email, name string, reservationID int32) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Extension request for reservation #%d declined", reservationID))

	body := fmt.Sprintf(
		"Hello %s,\n\nYour request to extend reservation #%d could not be processed before its requested dropoff date and has been declined. The original reservation is unchanged.\n\nBest regards,\nThe Carthago Travel Team",
		name, reservationID,
	)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send prolongation rejection: %w", err)
	}

	return nil
}
