package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/db"
)

// -- Availability --

type availabilityRepoPG struct{ pool *pgxpool.Pool }

func NewAvailabilityRepoPG(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepoPG{pool: pool}
}

func (r *availabilityRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const availabilityCols = `id, doctor_id, day_of_week, start_time, end_time, is_recurring, created_at`

func (r *availabilityRepoPG) DeleteByDoctor(ctx context.Context, doctorID int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_availabilities WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

func (r *availabilityRepoPG) Create(ctx context.Context, a *Availability) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_availabilities (doctor_id, day_of_week, start_time, end_time, is_recurring)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		a.DoctorID, a.DayOfWeek, a.StartTime, a.EndTime, a.IsRecurring,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func (r *availabilityRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*Availability, error) {
	return r.list(ctx, `SELECT `+availabilityCols+` FROM doctor_availabilities
		WHERE doctor_id = $1 ORDER BY day_of_week, start_time`, doctorID)
}

func (r *availabilityRepoPG) ListRecurringByDoctor(ctx context.Context, doctorID int64) ([]*Availability, error) {
	return r.list(ctx, `SELECT `+availabilityCols+` FROM doctor_availabilities
		WHERE doctor_id = $1 AND is_recurring ORDER BY day_of_week, start_time`, doctorID)
}

func (r *availabilityRepoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Availability, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	var out []*Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.DayOfWeek, &a.StartTime, &a.EndTime, &a.IsRecurring, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *availabilityRepoPG) DoctorIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT doctor_id FROM doctor_availabilities WHERE is_recurring ORDER BY doctor_id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors with availability: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan doctor id: %w", err)
	}
	return ids, nil
}

func (r *availabilityRepoPG) LockDoctor(ctx context.Context, doctorID int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, doctorID); err != nil {
		return fmt.Errorf("lock doctor %d: %w", doctorID, err)
	}
	return nil
}

// -- Fees --

type feeRepoPG struct{ pool *pgxpool.Pool }

func NewFeeRepoPG(pool *pgxpool.Pool) FeeRepository { return &feeRepoPG{pool: pool} }

func (r *feeRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const feeCols = `id, doctor_id, consultation_type, amount::float8, currency, created_at`

func scanFee(row pgx.Row) (*ConsultationFee, error) {
	var f ConsultationFee
	err := row.Scan(&f.ID, &f.DoctorID, &f.ConsultationType, &f.Amount, &f.Currency, &f.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan fee: %w", err)
	}
	return &f, nil
}

func (r *feeRepoPG) DeleteByDoctor(ctx context.Context, doctorID int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultation_fees WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("delete fees: %w", err)
	}
	return nil
}

func (r *feeRepoPG) Create(ctx context.Context, f *ConsultationFee) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultation_fees (doctor_id, consultation_type, amount, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		f.DoctorID, f.ConsultationType, f.Amount, f.Currency,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fee: %w", err)
	}
	return nil
}

func (r *feeRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*ConsultationFee, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+feeCols+` FROM consultation_fees
		WHERE doctor_id = $1 ORDER BY consultation_type`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var out []*ConsultationFee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *feeRepoPG) Get(ctx context.Context, doctorID int64, consultationType string) (*ConsultationFee, error) {
	return scanFee(r.conn(ctx).QueryRow(ctx, `SELECT `+feeCols+` FROM consultation_fees
		WHERE doctor_id = $1 AND consultation_type = $2`, doctorID, consultationType))
}

// -- Slots --

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const slotCols = `id, doctor_id, date, start_time, end_time, duration_minutes, is_available, retired`

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.DurationMinutes, &s.IsAvailable, &s.Retired)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan slot: %w", err)
	}
	return &s, nil
}

func (r *slotRepoPG) listSlots(ctx context.Context, sql string, args ...interface{}) ([]*TimeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []*TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *slotRepoPG) RetireAll(ctx context.Context, doctorID int64) (int64, error) {
	deleted, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM time_slots t
		WHERE t.doctor_id = $1
		  AND NOT EXISTS (SELECT 1 FROM appointments a WHERE a.time_slot_id = t.id)`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("delete slots: %w", err)
	}
	retired, err := r.conn(ctx).Exec(ctx, `
		UPDATE time_slots SET retired = TRUE, is_available = FALSE
		WHERE doctor_id = $1 AND NOT retired`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("retire slots: %w", err)
	}
	return deleted.RowsAffected() + retired.RowsAffected(), nil
}

func (r *slotRepoPG) InsertBatch(ctx context.Context, slots []*TimeSlot) ([]*TimeSlot, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO time_slots (doctor_id, date, start_time, end_time, duration_minutes, is_available)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (doctor_id, date, start_time) DO UPDATE
			SET retired = FALSE,
			    is_available = NOT EXISTS (
			        SELECT 1 FROM appointments a
			        WHERE a.time_slot_id = time_slots.id AND a.status <> 'cancelled')
			WHERE time_slots.retired AND time_slots.end_time = EXCLUDED.end_time
			RETURNING id, is_available`,
			s.DoctorID, s.Date, s.StartTime, s.EndTime, s.DurationMinutes, s.IsAvailable)
	}

	br := r.conn(ctx).SendBatch(ctx, batch)
	inserted := make([]*TimeSlot, 0, len(slots))
	for _, s := range slots {
		err := br.QueryRow().Scan(&s.ID, &s.IsAvailable)
		if db.IsNoRows(err) {
			continue
		}
		if err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("insert slot: %w", err)
		}
		inserted = append(inserted, s)
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("insert slots: %w", err)
	}
	return inserted, nil
}

func (r *slotRepoPG) GetByID(ctx context.Context, id int64) (*TimeSlot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM time_slots WHERE id = $1`, id))
}

func (r *slotRepoPG) Reserve(ctx context.Context, id, doctorID int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE time_slots SET is_available = FALSE
		WHERE id = $1 AND doctor_id = $2 AND is_available`, id, doctorID)
	if err != nil {
		return false, fmt.Errorf("reserve slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) Release(ctx context.Context, id int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `UPDATE time_slots SET is_available = NOT retired WHERE id = $1`, id); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func (r *slotRepoPG) ListAvailable(ctx context.Context, doctorID int64, from time.Time, date *time.Time) ([]*TimeSlot, error) {
	return r.listSlots(ctx, `SELECT `+slotCols+` FROM time_slots
		WHERE doctor_id = $1 AND is_available AND start_time >= $2
		  AND ($3::date IS NULL OR date = $3::date)
		ORDER BY start_time`, doctorID, from, date)
}

func (r *slotRepoPG) ListOpenBetween(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]*TimeSlot, error) {
	return r.listSlots(ctx, `SELECT `+slotCols+` FROM time_slots
		WHERE doctor_id = $1 AND is_available AND date BETWEEN $2 AND $3
		ORDER BY start_time`, doctorID, startDate, endDate)
}

// -- Appointments --

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const appointmentSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.time_slot_id, a.consultation_type, a.status,
	       a.symptoms, a.notes, a.cancellation_reason, a.created_at, a.updated_at,
	       s.date, s.start_time, s.end_time
	FROM appointments a
	JOIN time_slots s ON s.id = a.time_slot_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.TimeSlotID, &a.ConsultationType, &a.Status,
		&a.Symptoms, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt,
		&a.SlotDate, &a.SlotStart, &a.SlotEnd)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) listAppointments(ctx context.Context, sql string, args ...interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, time_slot_id, consultation_type, status, symptoms, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DoctorID, a.TimeSlotID, a.ConsultationType, a.Status, a.Symptoms, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrSlotUnavailable
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) transition(ctx context.Context, sql string, args ...interface{}) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update appointment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *appointmentRepoPG) Cancel(ctx context.Context, id int64, reason string) (bool, error) {
	return r.transition(ctx, `
		UPDATE appointments SET status = 'cancelled', cancellation_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`, id, reason)
}

func (r *appointmentRepoPG) Complete(ctx context.Context, id int64, notes *string) (bool, error) {
	return r.transition(ctx, `
		UPDATE appointments SET status = 'completed', notes = COALESCE($2, notes), updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'`, id, notes)
}

func (r *appointmentRepoPG) Confirm(ctx context.Context, id int64) (bool, error) {
	return r.transition(ctx, `
		UPDATE appointments SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
}

func (r *appointmentRepoPG) listBy(ctx context.Context, column string, ownerID int64, status string, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments a
		WHERE a.`+column+` = $1 AND ($2 = '' OR a.status = $2)`, ownerID, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	items, err := r.listAppointments(ctx, appointmentSelect+`
		WHERE a.`+column+` = $1 AND ($2 = '' OR a.status = $2)
		ORDER BY s.start_time DESC, a.id DESC
		LIMIT $3 OFFSET $4`, ownerID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID int64, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(ctx, "patient_id", patientID, status, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID int64, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.listBy(ctx, "doctor_id", doctorID, status, limit, offset)
}

func (r *appointmentRepoPG) ListBookedBetween(ctx context.Context, doctorID int64, startDate, endDate time.Time) ([]*Appointment, error) {
	return r.listAppointments(ctx, appointmentSelect+`
		WHERE a.doctor_id = $1 AND a.status <> 'cancelled' AND s.date BETWEEN $2 AND $3
		ORDER BY s.start_time`, doctorID, startDate, endDate)
}

// -- Payments --

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Queryable { return db.Conn(ctx, r.pool) }

const paymentCols = `id, appointment_id, amount::float8, currency, payment_method, status,
	transaction_id, refund_amount::float8, refund_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.AppointmentID, &p.Amount, &p.Currency, &p.PaymentMethod, &p.Status,
		&p.TransactionID, &p.RefundAmount, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (appointment_id, amount, currency, payment_method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.AppointmentID, p.Amount, p.Currency, p.PaymentMethod, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *paymentRepoPG) GetByAppointment(ctx context.Context, appointmentID int64) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE appointment_id = $1`, appointmentID))
}

func (r *paymentRepoPG) SetOutcome(ctx context.Context, id int64, status string, transactionID *string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payments SET status = $2, transaction_id = COALESCE($3, transaction_id), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, status, transactionID)
	if err != nil {
		return false, fmt.Errorf("update payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepoPG) Refund(ctx context.Context, appointmentID int64, reason string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payments SET status = 'refunded', refund_amount = amount, refund_reason = $2, updated_at = NOW()
		WHERE appointment_id = $1 AND status = 'completed'`, appointmentID, reason)
	if err != nil {
		return false, fmt.Errorf("refund payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
