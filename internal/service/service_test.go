package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/clinic-service/internal/auth"
	"github.com/spec-kit/clinic-service/internal/config"
	"github.com/spec-kit/clinic-service/internal/domain"
	"github.com/spec-kit/clinic-service/internal/events"
	"github.com/spec-kit/clinic-service/internal/repository"
	"github.com/spec-kit/clinic-service/internal/repository/memory"
	"github.com/spec-kit/clinic-service/internal/sharing"
	apperrors "github.com/spec-kit/clinic-service/pkg/util/errorutil"
)

type fixture struct {
	store         *memory.Store
	auth          *AuthService
	patients      *PatientService
	consultations *ConsultationService
	sink          *recordingSink
}

type recordingSink struct {
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, event events.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []events.EventType {
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}
	NewNotificationService(dispatcher, sink, zap.NewNop()).RegisterHandlers()

	formatter := sharing.NewFormatter(config.ShareConfig{
		VideoBaseURL:    "https://meet.jit.si",
		RoomPrefix:      "Prakvedaa",
		WhatsAppBaseURL: "https://wa.me",
	})
	return &fixture{
		store: store,
		auth: NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 60, BcryptCost: bcrypt.MinCost}, AuthDependencies{
			UserRepo: store.Users(),
		}),
		patients: NewPatientService(PatientDependencies{
			PatientRepo: store.Patients(),
			UserRepo:    store.Users(),
			Dispatcher:  dispatcher,
		}),
		consultations: NewConsultationService(ConsultationDependencies{
			ConsultationRepo: store.Consultations(),
			PatientRepo:      store.Patients(),
			Formatter:        formatter,
			Dispatcher:       dispatcher,
		}),
		sink: sink,
	}
}

func (f *fixture) register(t *testing.T, email string, role domain.Role) domain.Caller {
	t.Helper()
	user, err := f.auth.Register(context.Background(), "User "+string(role), email, "password1", role)
	require.NoError(t, err)
	return domain.CallerOf(user)
}

func (f *fixture) patient(t *testing.T, sales domain.Caller, name string, contact *string) *domain.Patient {
	t.Helper()
	p, err := f.patients.CreatePatient(context.Background(), sales, PatientCreateInput{Name: name, Contact: contact})
	require.NoError(t, err)
	return p
}

func hasCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func strPtr(s string) *string { return &s }

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.auth.Register(ctx, "Asha", "  Asha@Clinic.IO ", "password1", domain.RoleSales)
	require.NoError(t, err)
	assert.Equal(t, "asha@clinic.io", user.Email)
	assert.NotEqual(t, "password1", user.PasswordHash)

	t.Run("duplicate normalized email conflicts", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "Asha 2", "ASHA@clinic.io", "password2", domain.RoleDoctor)
		hasCode(t, err, "CONFLICT")
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "X", "x@clinic.io", "password1", domain.Role("nurse"))
		hasCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("login returns the same identity and a verifiable token", func(t *testing.T) {
		result, err := f.auth.Login(ctx, "asha@clinic.io ", "password1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, 60*time.Minute, result.ExpiresIn)

		claims, err := f.auth.TokenManager().ParseToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "asha@clinic.io", claims.Subject)
		assert.Equal(t, domain.RoleSales, claims.Role)
	})

	t.Run("wrong password and unknown email fail the same way", func(t *testing.T) {
		_, wrongPassword := f.auth.Login(ctx, "asha@clinic.io", "nope")
		_, unknownEmail := f.auth.Login(ctx, "ghost@clinic.io", "password1")
		hasCode(t, wrongPassword, "UNAUTHORIZED")
		hasCode(t, unknownEmail, "UNAUTHORIZED")
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})

	t.Run("unknown email still runs a password comparison", func(t *testing.T) {
		var hashes []string
		f.auth.compare = func(hashed, plain string) error {
			hashes = append(hashes, hashed)
			return auth.ComparePassword(hashed, plain)
		}
		defer func() { f.auth.compare = auth.ComparePassword }()

		_, err := f.auth.Login(ctx, "ghost@clinic.io", "password1")
		hasCode(t, err, "UNAUTHORIZED")
		require.Len(t, hashes, 1)
		assert.Equal(t, f.auth.dummyHash, hashes[0])
		assert.NotEmpty(t, hashes[0])
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "s@clinic.io", domain.RoleSales)
	f.register(t, "d1@clinic.io", domain.RoleDoctor)
	f.register(t, "d2@clinic.io", domain.RoleDoctor)

	all, err := f.auth.ListUsers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "d2@clinic.io", all[0].Email)

	doctor := domain.RoleDoctor
	doctors, err := f.auth.ListUsers(ctx, &doctor)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)

	bogus := domain.Role("nurse")
	_, err = f.auth.ListUsers(ctx, &bogus)
	hasCode(t, err, "VALIDATION_FAILED")
}

func TestPatientVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)
	other := f.register(t, "other@clinic.io", domain.RoleDoctor)
	admin := f.register(t, "admin@clinic.io", domain.RoleAdmin)

	unassigned := f.patient(t, sales, "Unassigned", nil)
	mine := f.patient(t, sales, "Mine", nil)
	theirs := f.patient(t, sales, "Theirs", nil)
	_, err := f.patients.AssignPatient(ctx, sales, mine.ID, doc.Email)
	require.NoError(t, err)
	_, err = f.patients.AssignPatient(ctx, sales, theirs.ID, other.Email)
	require.NoError(t, err)

	all, err := f.patients.ListPatients(ctx, sales)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, theirs.ID, all[0].ID)

	visible, err := f.patients.ListPatients(ctx, doc)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, mine.ID, visible[0].ID)
	assert.NotEqual(t, unassigned.ID, visible[0].ID)

	_, err = f.patients.ListPatients(ctx, admin)
	hasCode(t, err, "FORBIDDEN")
}

func TestCreatePatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)

	_, err := f.patients.CreatePatient(ctx, doc, PatientCreateInput{Name: "P"})
	hasCode(t, err, "FORBIDDEN")

	_, err = f.patients.CreatePatient(ctx, sales, PatientCreateInput{Name: "  "})
	hasCode(t, err, "VALIDATION_FAILED")

	age := 34
	p, err := f.patients.CreatePatient(ctx, sales, PatientCreateInput{Name: "Ravi", Age: &age, Notes: strPtr("allergic")})
	require.NoError(t, err)
	assert.Equal(t, "s@clinic.io", p.CreatedBy)
	assert.Nil(t, p.AssignedDoctorEmail)
	assert.Equal(t, []events.EventType{events.EventPatientCreated}, f.sink.types())
}

func TestAssignPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)
	p := f.patient(t, sales, "P", nil)

	t.Run("only sales", func(t *testing.T) {
		_, err := f.patients.AssignPatient(ctx, doc, p.ID, doc.Email)
		hasCode(t, err, "FORBIDDEN")
	})

	t.Run("missing patient", func(t *testing.T) {
		_, err := f.patients.AssignPatient(ctx, sales, 999, doc.Email)
		hasCode(t, err, "NOT_FOUND")
	})

	t.Run("target must be a doctor and assignment stays unchanged", func(t *testing.T) {
		for _, target := range []string{"s@clinic.io", "ghost@clinic.io"} {
			_, err := f.patients.AssignPatient(ctx, sales, p.ID, target)
			hasCode(t, err, "VALIDATION_FAILED")
		}
		stored, err := f.store.Patients().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.AssignedDoctorEmail)
	})

	t.Run("doctor email is normalized", func(t *testing.T) {
		updated, err := f.patients.AssignPatient(ctx, sales, p.ID, " DOC@clinic.io ")
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedDoctorEmail)
		assert.Equal(t, "doc@clinic.io", *updated.AssignedDoctorEmail)
	})
}

func TestScheduleConsultation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)
	admin := f.register(t, "admin@clinic.io", domain.RoleAdmin)
	p := f.patient(t, sales, "P", nil)

	_, err := f.consultations.ScheduleConsultation(ctx, doc, p.ID, nil)
	hasCode(t, err, "FORBIDDEN")

	_, err = f.consultations.ScheduleConsultation(ctx, sales, 404, nil)
	hasCode(t, err, "NOT_FOUND")

	_, err = f.consultations.ScheduleConsultation(ctx, admin, p.ID, nil)
	hasCode(t, err, "FORBIDDEN")

	_, err = f.patients.AssignPatient(ctx, sales, p.ID, doc.Email)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	first, err := f.consultations.ScheduleConsultation(ctx, doc, p.ID, &at)
	require.NoError(t, err)
	second, err := f.consultations.ScheduleConsultation(ctx, sales, p.ID, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, first.VideoURL)
	assert.NotEqual(t, first.VideoURL, second.VideoURL)
	assert.Equal(t, domain.ConsultationStatusPending, first.Status)
	assert.Equal(t, "doc@clinic.io", first.CreatedBy)
	assert.Nil(t, second.ScheduledAt)
}

func TestListConsultations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)
	admin := f.register(t, "admin@clinic.io", domain.RoleAdmin)

	mine := f.patient(t, sales, "Mine", nil)
	other := f.patient(t, sales, "Other", nil)
	_, err := f.patients.AssignPatient(ctx, sales, mine.ID, doc.Email)
	require.NoError(t, err)
	for _, id := range []int64{mine.ID, other.ID} {
		_, err := f.consultations.ScheduleConsultation(ctx, sales, id, nil)
		require.NoError(t, err)
	}

	all, err := f.consultations.ListConsultations(ctx, sales)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := f.consultations.ListConsultations(ctx, doc)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].PatientID)

	_, err = f.consultations.ListConsultations(ctx, admin)
	hasCode(t, err, "FORBIDDEN")
}

func TestUpdateConsultationIsPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)
	stranger := f.register(t, "stranger@clinic.io", domain.RoleDoctor)
	p := f.patient(t, sales, "P", nil)
	_, err := f.patients.AssignPatient(ctx, sales, p.ID, doc.Email)
	require.NoError(t, err)
	c, err := f.consultations.ScheduleConsultation(ctx, sales, p.ID, nil)
	require.NoError(t, err)

	updated, err := f.consultations.UpdateConsultation(ctx, doc, c.ID, ConsultationUpdateInput{Notes: strPtr("  take rest  ")})
	require.NoError(t, err)
	assert.Equal(t, "take rest", *updated.DoctorNotes)
	assert.Equal(t, domain.ConsultationStatusPending, updated.Status)

	updated, err = f.consultations.UpdateConsultation(ctx, doc, c.ID, ConsultationUpdateInput{Status: strPtr("Completed")})
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusCompleted, updated.Status)
	require.NotNil(t, updated.DoctorNotes)
	assert.Equal(t, "take rest", *updated.DoctorNotes)

	stored, err := f.store.Consultations().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusCompleted, stored.Status)
	assert.Equal(t, "take rest", *stored.DoctorNotes)
	assert.Equal(t, c.VideoURL, stored.VideoURL)

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := f.consultations.UpdateConsultation(ctx, sales, c.ID, ConsultationUpdateInput{Status: strPtr("cancelled")})
		hasCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("empty notes clear the field", func(t *testing.T) {
		updated, err := f.consultations.UpdateConsultation(ctx, sales, c.ID, ConsultationUpdateInput{Notes: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, updated.DoctorNotes)
	})

	t.Run("unassigned doctor forbidden", func(t *testing.T) {
		_, err := f.consultations.UpdateConsultation(ctx, stranger, c.ID, ConsultationUpdateInput{Status: strPtr("pending")})
		hasCode(t, err, "FORBIDDEN")
	})

	t.Run("missing consultation", func(t *testing.T) {
		_, err := f.consultations.UpdateConsultation(ctx, sales, 999, ConsultationUpdateInput{})
		hasCode(t, err, "NOT_FOUND")
	})
}

// pausingConsultations blocks the first gated GetByID after the read until released.
type pausingConsultations struct {
	repository.ConsultationRepository
	gate    chan struct{}
	read    chan struct{}
	release chan struct{}
}

func (p *pausingConsultations) GetByID(ctx context.Context, id int64) (*domain.Consultation, error) {
	c, err := p.ConsultationRepository.GetByID(ctx, id)
	select {
	case <-p.gate:
		close(p.read)
		<-p.release
	default:
	}
	return c, err
}

func TestInterleavedUpdatesKeepEachField(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	p := f.patient(t, sales, "P", nil)
	c, err := f.consultations.ScheduleConsultation(ctx, sales, p.ID, nil)
	require.NoError(t, err)

	gated := &pausingConsultations{
		ConsultationRepository: f.store.Consultations(),
		gate:                   make(chan struct{}, 1),
		read:                   make(chan struct{}),
		release:                make(chan struct{}),
	}
	svc := NewConsultationService(ConsultationDependencies{
		ConsultationRepo: gated,
		PatientRepo:      f.store.Patients(),
		Formatter:        sharing.NewFormatter(config.ShareConfig{VideoBaseURL: "https://meet.jit.si"}),
	})

	gated.gate <- struct{}{}
	done := make(chan error, 1)
	go func() {
		_, err := svc.UpdateConsultation(ctx, sales, c.ID, ConsultationUpdateInput{Status: strPtr("completed")})
		done <- err
	}()

	<-gated.read
	_, err = svc.UpdateConsultation(ctx, sales, c.ID, ConsultationUpdateInput{Notes: strPtr("rx")})
	require.NoError(t, err)
	close(gated.release)
	require.NoError(t, <-done)

	stored, err := f.store.Consultations().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusCompleted, stored.Status)
	require.NotNil(t, stored.DoctorNotes)
	assert.Equal(t, "rx", *stored.DoctorNotes)
}

func TestShareLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sales := f.register(t, "s@clinic.io", domain.RoleSales)
	doc := f.register(t, "doc@clinic.io", domain.RoleDoctor)

	withPhone := f.patient(t, sales, "Asha", strPtr("+91 98765 43210"))
	noPhone := f.patient(t, sales, "Ravi", strPtr(""))
	c1, err := f.consultations.ScheduleConsultation(ctx, sales, withPhone.ID, nil)
	require.NoError(t, err)
	c2, err := f.consultations.ScheduleConsultation(ctx, sales, noPhone.ID, nil)
	require.NoError(t, err)

	link, err := f.consultations.WhatsAppLink(ctx, sales, c1.ID, "")
	require.NoError(t, err)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/919876543210", parsed.Path)

	_, err = f.consultations.WhatsAppLink(ctx, sales, c2.ID, "")
	hasCode(t, err, "VALIDATION_FAILED")

	link, err = f.consultations.WhatsAppLink(ctx, sales, c2.ID, "447700900123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/447700900123?text="))

	_, err = f.consultations.ShareMessage(ctx, doc, c1.ID)
	hasCode(t, err, "FORBIDDEN")

	_, err = f.consultations.ShareMessage(ctx, sales, 999)
	hasCode(t, err, "NOT_FOUND")

	before := len(f.sink.events)
	_, err = f.consultations.SendWhatsApp(ctx, sales, c1.ID, "")
	require.NoError(t, err)
	require.Len(t, f.sink.events, before+1)
	assert.Equal(t, events.EventConsultationShared, f.sink.events[before].Type)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.auth.Register(ctx, "Sales A", "a@clinic.io", "password1", domain.RoleSales)
	require.NoError(t, err)
	_, err = f.auth.Register(ctx, "Doctor B", "b@clinic.io", "password1", domain.RoleDoctor)
	require.NoError(t, err)

	loginA, err := f.auth.Login(ctx, "a@clinic.io", "password1")
	require.NoError(t, err)
	loginB, err := f.auth.Login(ctx, "b@clinic.io", "password1")
	require.NoError(t, err)
	a := domain.CallerOf(loginA.User)
	b := domain.CallerOf(loginB.User)

	p, err := f.patients.CreatePatient(ctx, a, PatientCreateInput{Name: "Patient P"})
	require.NoError(t, err)
	_, err = f.patients.AssignPatient(ctx, a, p.ID, b.Email)
	require.NoError(t, err)

	c, err := f.consultations.ScheduleConsultation(ctx, b, p.ID, nil)
	require.NoError(t, err)

	listed, err := f.consultations.ListConsultations(ctx, b)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, p.ID, listed[0].PatientID)

	msg, err := f.consultations.ShareMessage(ctx, a, c.ID)
	require.NoError(t, err)
	assert.Contains(t, msg, "Patient P")
	assert.Contains(t, msg, "b@clinic.io")

	assert.Equal(t, []events.EventType{
		events.EventPatientCreated,
		events.EventPatientAssigned,
		events.EventConsultationScheduled,
	}, f.sink.types())
}
