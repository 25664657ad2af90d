package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"
)

// ExportCompletedCSV renders all completed tickets as a CSV document for
// the admin export surface.
func (s *TicketService) ExportCompletedCSV(ctx context.Context) ([]byte, error) {
	tickets, err := s.tickets.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"ticket_number", "name", "email", "phone", "city",
		"height", "weight", "bust", "waist", "hips",
		"payment_id", "payment_status", "payment_amount", "created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, ticket := range tickets {
		reg := ticket.RegistrationData
		amount := ""
		if reg.PaymentAmount != nil {
			amount = strconv.FormatInt(*reg.PaymentAmount, 10)
		}
		record := []string{
			ticket.TicketNumber,
			reg.Name,
			reg.Email,
			reg.Phone,
			reg.City,
			reg.Height,
			reg.Weight,
			reg.Bust,
			reg.Waist,
			reg.Hips,
			reg.PaymentID,
			reg.PaymentStatus,
			amount,
			ticket.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
