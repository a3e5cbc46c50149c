package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
)

// Service is the doctor and patient directory. Profiles are created by the
// onboarding flow; scheduling only reads them.
type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	logger   zerolog.Logger
}

func NewService(doctors DoctorRepository, patients PatientRepository, logger zerolog.Logger) *Service {
	return &Service{
		doctors:  doctors,
		patients: patients,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	d.FullName = strings.TrimSpace(d.FullName)
	if d.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if d.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if d.VerificationStatus == "" {
		d.VerificationStatus = VerificationPending
	}
	if !validVerificationStatus(d.VerificationStatus) {
		return fmt.Errorf("%w: unknown verification_status %q", ErrValidation, d.VerificationStatus)
	}
	return s.doctors.Create(ctx, d)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if p.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, status string, limit, offset int) ([]*Doctor, int, error) {
	if status != "" && !validVerificationStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown verification_status %q", ErrValidation, status)
	}
	return s.doctors.List(ctx, status, limit, offset)
}

func (s *Service) SetVerificationStatus(ctx context.Context, id int64, status string) (*Doctor, error) {
	if !validVerificationStatus(status) {
		return nil, fmt.Errorf("%w: unknown verification_status %q", ErrValidation, status)
	}
	d, err := s.doctors.SetVerificationStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("doctor_id", id).Str("status", status).Msg("doctor verification changed")
	return d, nil
}

// ResolveProfiles fills in the doctor or patient profile of a caller whose
// token only carries a user id. A caller without a matching profile is
// returned unchanged.
func (s *Service) ResolveProfiles(ctx context.Context, id auth.Identity) (auth.Identity, error) {
	switch {
	case id.Role == auth.RoleDoctor && id.DoctorID == nil:
		d, err := s.doctors.GetByUserID(ctx, id.UserID)
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return id, err
		}
		id.DoctorID = &d.ID
	case id.Role == auth.RolePatient && id.PatientID == nil:
		p, err := s.patients.GetByUserID(ctx, id.UserID)
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return id, err
		}
		id.PatientID = &p.ID
	}
	return id, nil
}
