package cron

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type appointmentExpirer interface {
	ExpireAppointments(ctx context.Context, before string) (int64, error)
}

// AppointmentExpiryJob cancels appointments still pending after their date
// has passed. graceDays keeps recent ones open so staff can confirm late.
type AppointmentExpiryJob struct {
	store     appointmentExpirer
	graceDays int
	now       func() time.Time
}

func NewAppointmentExpiryJob(store appointmentExpirer, graceDays int) (*AppointmentExpiryJob, error) {
	if store == nil {
		return nil, fmt.Errorf("appointment store required")
	}
	if graceDays < 0 {
		graceDays = 0
	}
	return &AppointmentExpiryJob{store: store, graceDays: graceDays, now: time.Now}, nil
}

func (j *AppointmentExpiryJob) Name() string { return "appointment-expiry" }

func (j *AppointmentExpiryJob) Run(ctx context.Context) (int64, error) {
	before := j.now().UTC().AddDate(0, 0, -j.graceDays).Format(dateLayout)
	rows, err := j.store.ExpireAppointments(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("appointment expiry: %w", err)
	}
	return rows, nil
}
