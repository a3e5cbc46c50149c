package identity

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sushasan11/Bespoke-Health-sub001/internal/platform/auth"
)

// -- Mock Repositories --

type mockDoctorRepo struct {
	doctors map[int64]*Doctor
	nextID  int64
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[int64]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.UserID == d.UserID {
			return ErrDuplicate
		}
	}
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID int64) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockDoctorRepo) SetVerificationStatus(_ context.Context, id int64, status string) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.VerificationStatus = status
	d.UpdatedAt = time.Now()
	return d, nil
}

func (m *mockDoctorRepo) List(_ context.Context, status string, limit, offset int) ([]*Doctor, int, error) {
	var all []*Doctor
	for _, d := range m.doctors {
		if status == "" || d.VerificationStatus == status {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type mockPatientRepo struct {
	patients map[int64]*Patient
	nextID   int64
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[int64]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, userID int64) (*Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func newTestService() *Service {
	return NewService(newMockDoctorRepo(), newMockPatientRepo(), zerolog.Nop())
}

// -- Doctor Tests --

func TestCreateDoctor_DefaultsToPending(t *testing.T) {
	svc := newTestService()
	d := &Doctor{UserID: 10, FullName: "  Dr. Sharma ", Specialization: "cardiology"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == 0 {
		t.Error("expected ID to be set")
	}
	if d.VerificationStatus != VerificationPending {
		t.Errorf("expected pending, got %s", d.VerificationStatus)
	}
	if d.FullName != "Dr. Sharma" {
		t.Errorf("expected trimmed name, got %q", d.FullName)
	}
}

func TestCreateDoctor_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		d    *Doctor
	}{
		{"missing user", &Doctor{FullName: "x"}},
		{"missing name", &Doctor{UserID: 1}},
		{"bad status", &Doctor{UserID: 1, FullName: "x", VerificationStatus: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateDoctor(context.Background(), tt.d)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateDoctor_DuplicateUser(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if err := svc.CreateDoctor(ctx, &Doctor{UserID: 5, FullName: "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.CreateDoctor(ctx, &Doctor{UserID: 5, FullName: "B"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestSetVerificationStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d := &Doctor{UserID: 7, FullName: "Dr. Rai"}
	if err := svc.CreateDoctor(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.SetVerificationStatus(ctx, d.ID, VerificationApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsApproved() {
		t.Error("expected doctor to be approved")
	}

	if _, err := svc.SetVerificationStatus(ctx, d.ID, "verified"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.SetVerificationStatus(ctx, 999, VerificationRejected); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDoctors_FiltersByStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for i, status := range []string{VerificationApproved, VerificationPending, VerificationApproved} {
		d := &Doctor{UserID: int64(i + 1), FullName: "Dr", VerificationStatus: status}
		if err := svc.CreateDoctor(ctx, d); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	items, total, err := svc.ListDoctors(ctx, VerificationApproved, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 approved doctors, got %d/%d", len(items), total)
	}
	if _, _, err := svc.ListDoctors(ctx, "unknown", 10, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// -- Patient Tests --

func TestCreatePatient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p := &Patient{UserID: 20, FullName: "Sita"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != 20 {
		t.Errorf("expected user 20, got %d", got.UserID)
	}
	if err := svc.CreatePatient(ctx, &Patient{UserID: 21}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// -- Profile Resolution Tests --

func TestResolveProfiles_Doctor(t *testing.T) {
	svc := newTestService()
	d := &Doctor{UserID: 55, FullName: "Dr. Rai"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	got, err := svc.ResolveProfiles(context.Background(), auth.Identity{UserID: 55, Role: auth.RoleDoctor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DoctorID == nil || *got.DoctorID != d.ID {
		t.Errorf("expected doctor id %d, got %v", d.ID, got.DoctorID)
	}
	if got.PatientID != nil {
		t.Error("patient id should stay empty")
	}
}

func TestResolveProfiles_KeepsTokenProfile(t *testing.T) {
	svc := newTestService()
	tokenID := int64(9)
	got, err := svc.ResolveProfiles(context.Background(),
		auth.Identity{UserID: 55, Role: auth.RolePatient, PatientID: &tokenID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PatientID != &tokenID {
		t.Error("expected the token's patient id to be kept")
	}
}

func TestResolveProfiles_NoProfile(t *testing.T) {
	svc := newTestService()
	got, err := svc.ResolveProfiles(context.Background(), auth.Identity{UserID: 77, Role: auth.RolePatient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PatientID != nil {
		t.Errorf("expected no patient id, got %d", *got.PatientID)
	}
}
