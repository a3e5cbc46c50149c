package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/domain/identity"
	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/localtime"
)

const (
	DefaultHorizonDays  = 30
	DefaultSlotDuration = 30 * time.Minute
)

// Repositories bundles the persistence the scheduling workflows run against.
type Repositories struct {
	Availability AvailabilityRepository
	Fees         FeeRepository
	Slots        SlotRepository
	Appointments AppointmentRepository
	Payments     PaymentRepository
}

type Service struct {
	availability AvailabilityRepository
	fees         FeeRepository
	slots        SlotRepository
	appointments AppointmentRepository
	payments     PaymentRepository

	directory Directory
	tx        Transactor
	notifier  Notifier
	metrics   Metrics
	zone      *localtime.Zone
	logger    zerolog.Logger

	horizonDays  int
	slotDuration time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithHorizonDays(days int) Option { return func(s *Service) { s.horizonDays = days } }

func WithSlotDuration(d time.Duration) Option { return func(s *Service) { s.slotDuration = d } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(repos Repositories, dir Directory, tx Transactor, zone *localtime.Zone, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		availability: repos.Availability,
		fees:         repos.Fees,
		slots:        repos.Slots,
		appointments: repos.Appointments,
		payments:     repos.Payments,
		directory:    dir,
		tx:           tx,
		notifier:     nopNotifier{},
		metrics:      nopMetrics{},
		zone:         zone,
		logger:       logger.With().Str("component", "scheduling").Logger(),
		horizonDays:  DefaultHorizonDays,
		slotDuration: DefaultSlotDuration,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HorizonDays is how far ahead slots are generated.
func (s *Service) HorizonDays() int { return s.horizonDays }

func (s *Service) Zone() *localtime.Zone { return s.zone }

func (s *Service) doctor(ctx context.Context, id int64) (*identity.Doctor, error) {
	d, err := s.directory.GetDoctor(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, notFound("doctor", id)
	}
	return d, err
}

func (s *Service) patient(ctx context.Context, id int64) (*identity.Patient, error) {
	p, err := s.directory.GetPatient(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, notFound("patient", id)
	}
	return p, err
}

func (s *Service) slotView(t *TimeSlot) *SlotView {
	return &SlotView{
		ID:              t.ID,
		DoctorID:        t.DoctorID,
		Date:            t.Date.Format("2006-01-02"),
		StartTime:       s.zone.FormatHHMM(t.StartTime),
		EndTime:         s.zone.FormatHHMM(t.EndTime),
		DurationMinutes: t.DurationMinutes,
		IsAvailable:     t.IsAvailable,
	}
}

// render fills the local date and times from the joined slot columns.
func (s *Service) render(a *Appointment) *Appointment {
	if !a.SlotStart.IsZero() {
		a.Date = a.SlotDate.Format("2006-01-02")
		a.StartTime = s.zone.FormatHHMM(a.SlotStart)
		a.EndTime = s.zone.FormatHHMM(a.SlotEnd)
	}
	return a
}

// notify delivers outside the transaction; failures never affect the caller.
func (s *Service) notify(ctx context.Context, userID int64, message, kind string) {
	if err := s.notifier.Notify(ctx, userID, message, kind); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Str("kind", kind).Msg("notification failed")
	}
}

func (s *Service) notifyDoctor(ctx context.Context, doctorID int64, message, kind string) {
	d, err := s.doctor(ctx, doctorID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("doctor_id", doctorID).Msg("cannot resolve doctor for notification")
		return
	}
	s.notify(ctx, d.UserID, message, kind)
}

func (s *Service) notifyPatient(ctx context.Context, patientID int64, message, kind string) {
	p, err := s.patient(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", patientID).Msg("cannot resolve patient for notification")
		return
	}
	s.notify(ctx, p.UserID, message, kind)
}
