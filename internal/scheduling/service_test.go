package scheduling

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// MockRepository implements the scheduling repository for testing

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAvailabilities(slots []*types.Availability) error {
	args := m.Called(slots)
	return args.Error(0)
}

func (m *MockRepository) GetAvailabilityByID(id string) (*types.Availability, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Availability), args.Error(1)
}

func (m *MockRepository) GetAvailabilitiesByDoctor(doctorID string) ([]*types.Availability, error) {
	args := m.Called(doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Availability), args.Error(1)
}

func (m *MockRepository) UpdateAvailability(id string, slot *types.Availability) error {
	args := m.Called(id, slot)
	return args.Error(0)
}

func (m *MockRepository) DeleteAvailability(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepository) CreateAppointment(apt *types.Appointment) error {
	args := m.Called(apt)
	return args.Error(0)
}

func (m *MockRepository) GetAppointmentByID(id string) (*types.Appointment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Appointment), args.Error(1)
}

func (m *MockRepository) GetAppointments(filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Appointment), args.Error(1)
}

func (m *MockRepository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockRepository) RescheduleAppointment(id string, slot *types.Availability, record *types.RescheduleRecord) error {
	args := m.Called(id, slot, record)
	return args.Error(0)
}

func (m *MockRepository) SlotHasActiveAppointment(availabilityID string) (bool, error) {
	args := m.Called(availabilityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetRescheduleRecords(appointmentID string) ([]*types.RescheduleRecord, error) {
	args := m.Called(appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.RescheduleRecord), args.Error(1)
}

func (m *MockRepository) CreateNotification(n *types.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockRepository) GetNotificationsByDoctor(doctorID string) ([]*types.Notification, error) {
	args := m.Called(doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Notification), args.Error(1)
}

func (m *MockRepository) MarkNotificationRead(id, doctorID string) error {
	args := m.Called(id, doctorID)
	return args.Error(0)
}

func (m *MockRepository) CountUnreadNotifications(doctorID string) (int, error) {
	args := m.Called(doctorID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountAppointmentsOnDate(doctorID, date string, statuses []types.AppointmentStatus) (int, error) {
	args := m.Called(doctorID, date, statuses)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountAppointmentsByStatus(doctorID string, status types.AppointmentStatus) (int, error) {
	args := m.Called(doctorID, status)
	return args.Int(0), args.Error(1)
}

var (
	doctorClaims  = &types.UserClaims{UserID: "doc-1", Email: "doc@example.com", Role: types.RoleDoctor}
	patientClaims = &types.UserClaims{UserID: "pat-1", Email: "pat@example.com", Role: types.RolePatient}
	staffClaims   = &types.UserClaims{UserID: "staff-1", Email: "staff@example.com", Role: types.RoleStaff}
)

func setupTestService(t *testing.T) (*Service, *MockRepository) {
	t.Helper()

	repo := &MockRepository{}
	svc := NewService(&config.Config{}, logger.New("debug"), repo, monitoring.NewMetricsCollector("scheduling-test"))
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	}
	return svc, repo
}

func TestService_CreateAvailability(t *testing.T) {
	t.Run("single slot", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("CreateAvailabilities", mock.AnythingOfType("[]*types.Availability")).Return(nil)

		slots, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:      "2025-03-12",
			StartTime: "09:00",
			EndTime:   "09:30",
		}, doctorClaims)

		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, "doc-1", slots[0].DoctorID)
		assert.Equal(t, "2025-03-12", slots[0].Date)
	})

	t.Run("weekly series is inclusive of repeat_until", func(t *testing.T) {
		svc, repo := setupTestService(t)

		var captured []*types.Availability
		repo.On("CreateAvailabilities", mock.AnythingOfType("[]*types.Availability")).
			Run(func(args mock.Arguments) {
				captured = args.Get(0).([]*types.Availability)
			}).Return(nil)

		slots, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:        "2025-01-01",
			StartTime:   "10:00",
			EndTime:     "10:30",
			Repeat:      types.RepeatWeekly,
			RepeatUntil: "2025-01-15",
		}, doctorClaims)

		require.NoError(t, err)
		require.Len(t, slots, 3)
		require.Len(t, captured, 3)
		assert.Equal(t, "2025-01-01", captured[0].Date)
		assert.Equal(t, "2025-01-08", captured[1].Date)
		assert.Equal(t, "2025-01-15", captured[2].Date)
	})

	t.Run("biweekly series steps fourteen days", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("CreateAvailabilities", mock.AnythingOfType("[]*types.Availability")).Return(nil)

		slots, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:        "2025-01-01",
			StartTime:   "10:00",
			EndTime:     "10:30",
			Repeat:      types.RepeatBiweekly,
			RepeatUntil: "2025-01-29",
		}, doctorClaims)

		require.NoError(t, err)
		require.Len(t, slots, 3)
		assert.Equal(t, "2025-01-15", slots[1].Date)
		assert.Equal(t, "2025-01-29", slots[2].Date)
	})

	t.Run("recurrence requires repeat_until", func(t *testing.T) {
		svc, _ := setupTestService(t)

		_, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:      "2025-01-01",
			StartTime: "10:00",
			EndTime:   "10:30",
			Repeat:    types.RepeatWeekly,
		}, doctorClaims)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "repeat_until")
	})

	t.Run("start must precede end", func(t *testing.T) {
		svc, _ := setupTestService(t)

		_, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:      "2025-01-01",
			StartTime: "10:30",
			EndTime:   "10:00",
		}, doctorClaims)

		require.Error(t, err)
	})

	t.Run("patients cannot create slots", func(t *testing.T) {
		svc, _ := setupTestService(t)

		_, err := svc.CreateAvailability(&types.AvailabilityRequest{
			Date:      "2025-01-01",
			StartTime: "10:00",
			EndTime:   "10:30",
		}, patientClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})
}

func TestService_BookAppointment(t *testing.T) {
	slot := &types.Availability{
		ID:        "slot-1",
		DoctorID:  "doc-1",
		Date:      "2025-03-12",
		StartTime: "09:00",
		EndTime:   "09:30",
	}

	t.Run("booking starts pending and notifies the doctor", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAvailabilityByID", "slot-1").Return(slot, nil)
		repo.On("SlotHasActiveAppointment", "slot-1").Return(false, nil)

		var created *types.Appointment
		repo.On("CreateAppointment", mock.AnythingOfType("*types.Appointment")).
			Run(func(args mock.Arguments) {
				created = args.Get(0).(*types.Appointment)
			}).Return(nil)
		repo.On("CreateNotification", mock.AnythingOfType("*types.Notification")).Return(nil)
		repo.On("GetAppointmentByID", mock.AnythingOfType("string")).
			Return(&types.Appointment{ID: "apt-1", Status: types.StatusPending}, nil)

		apt, err := svc.BookAppointment(&types.BookingRequest{
			AvailabilityID: "slot-1",
			Reason:         "checkup",
		}, patientClaims)

		require.NoError(t, err)
		assert.Equal(t, types.StatusPending, apt.Status)

		require.NotNil(t, created)
		assert.Equal(t, types.StatusPending, created.Status)
		assert.Equal(t, types.TriageNone, created.TriageStatus)
		assert.Equal(t, "pat-1", created.PatientID)
		assert.Equal(t, "doc-1", created.DoctorID)
		assert.Equal(t, "2025-03-12", created.Date)

		repo.AssertCalled(t, "CreateNotification", mock.AnythingOfType("*types.Notification"))
	})

	t.Run("taken slot is rejected", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAvailabilityByID", "slot-1").Return(slot, nil)
		repo.On("SlotHasActiveAppointment", "slot-1").Return(true, nil)

		apt, err := svc.BookAppointment(&types.BookingRequest{AvailabilityID: "slot-1"}, patientClaims)

		require.Error(t, err)
		assert.Nil(t, apt)

		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeSlotTaken, clinicErr.Code)
	})

	t.Run("a missing slot id never reaches the repository", func(t *testing.T) {
		svc, repo := setupTestService(t)

		_, err := svc.BookAppointment(&types.BookingRequest{Reason: "checkup"}, patientClaims)

		require.Error(t, err)
		repo.AssertNotCalled(t, "GetAvailabilityByID", mock.Anything)
		repo.AssertNotCalled(t, "CreateAppointment", mock.Anything)
	})

	t.Run("only patients book", func(t *testing.T) {
		svc, _ := setupTestService(t)

		_, err := svc.BookAppointment(&types.BookingRequest{AvailabilityID: "slot-1"}, doctorClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})
}

func TestService_UpdateAppointment(t *testing.T) {
	pendingApt := func() *types.Appointment {
		return &types.Appointment{
			ID:        "apt-1",
			PatientID: "pat-1",
			DoctorID:  "doc-1",
			Status:    types.StatusPending,
			Date:      "2025-03-12",
			StartTime: "09:00",
		}
	}

	statusPtr := func(s types.AppointmentStatus) *types.AppointmentStatus { return &s }
	triagePtr := func(t types.TriageStatus) *types.TriageStatus { return &t }

	t.Run("doctor approves a pending request", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)
		repo.On("UpdateAppointment", "apt-1", mock.AnythingOfType("*types.AppointmentUpdates")).Return(nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status: statusPtr(types.StatusApproved),
		}, doctorClaims)

		require.NoError(t, err)
	})

	t.Run("declined is terminal", func(t *testing.T) {
		svc, repo := setupTestService(t)

		apt := pendingApt()
		apt.Status = types.StatusDeclined
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status: statusPtr(types.StatusApproved),
		}, doctorClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeBadTransition, clinicErr.Code)
	})

	t.Run("patient cancels own booking and doctor is notified", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)
		repo.On("UpdateAppointment", "apt-1", mock.AnythingOfType("*types.AppointmentUpdates")).Return(nil)
		repo.On("CreateNotification", mock.AnythingOfType("*types.Notification")).Return(nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status: statusPtr(types.StatusCancelled),
		}, patientClaims)

		require.NoError(t, err)
		repo.AssertCalled(t, "CreateNotification", mock.AnythingOfType("*types.Notification"))
	})

	t.Run("patient cannot approve", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status: statusPtr(types.StatusApproved),
		}, patientClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})

	t.Run("another patient cannot touch the booking", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)

		other := &types.UserClaims{UserID: "pat-2", Role: types.RolePatient}
		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status: statusPtr(types.StatusCancelled),
		}, other)

		require.Error(t, err)
	})

	t.Run("triage requires approval first", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			TriageStatus: triagePtr(types.TriageWaiting),
		}, doctorClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrCodeBadTransition, clinicErr.Code)
	})

	t.Run("approval and triage can land together", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(pendingApt(), nil)
		repo.On("UpdateAppointment", "apt-1", mock.AnythingOfType("*types.AppointmentUpdates")).Return(nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			Status:       statusPtr(types.StatusApproved),
			TriageStatus: triagePtr(types.TriageWaiting),
		}, staffClaims)

		require.NoError(t, err)
	})

	t.Run("triage ladder is enforced", func(t *testing.T) {
		svc, repo := setupTestService(t)

		apt := pendingApt()
		apt.Status = types.StatusApproved
		apt.TriageStatus = types.TriageWaiting
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			TriageStatus: triagePtr(types.TriageDone),
		}, doctorClaims)

		require.Error(t, err)
	})

	t.Run("waiting patient can be marked no_show", func(t *testing.T) {
		svc, repo := setupTestService(t)

		apt := pendingApt()
		apt.Status = types.StatusApproved
		apt.TriageStatus = types.TriageWaiting
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)
		repo.On("UpdateAppointment", "apt-1", mock.AnythingOfType("*types.AppointmentUpdates")).Return(nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			TriageStatus: triagePtr(types.TriageNoShow),
		}, staffClaims)

		require.NoError(t, err)
	})

	t.Run("done is terminal for triage", func(t *testing.T) {
		svc, repo := setupTestService(t)

		apt := pendingApt()
		apt.Status = types.StatusApproved
		apt.TriageStatus = types.TriageDone
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			TriageStatus: triagePtr(types.TriageWaiting),
		}, doctorClaims)

		require.Error(t, err)
	})

	t.Run("non-terminal triage can be cleared", func(t *testing.T) {
		svc, repo := setupTestService(t)

		apt := pendingApt()
		apt.Status = types.StatusApproved
		apt.TriageStatus = types.TriageWaiting
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)
		repo.On("UpdateAppointment", "apt-1", mock.AnythingOfType("*types.AppointmentUpdates")).Return(nil)

		_, err := svc.UpdateAppointment("apt-1", &types.AppointmentUpdates{
			TriageStatus: triagePtr(types.TriageNone),
		}, doctorClaims)

		require.NoError(t, err)
	})
}

func TestService_RescheduleAppointment(t *testing.T) {
	apt := &types.Appointment{
		ID:        "apt-1",
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Status:    types.StatusApproved,
		Date:      "2025-03-12",
		StartTime: "09:00",
		EndTime:   "09:30",
	}

	t.Run("records previous slot", func(t *testing.T) {
		svc, repo := setupTestService(t)

		newSlot := &types.Availability{ID: "slot-2", DoctorID: "doc-1", Date: "2025-03-14", StartTime: "11:00", EndTime: "11:30"}

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)
		repo.On("GetAvailabilityByID", "slot-2").Return(newSlot, nil)

		var record *types.RescheduleRecord
		repo.On("RescheduleAppointment", "apt-1", newSlot, mock.AnythingOfType("*types.RescheduleRecord")).
			Run(func(args mock.Arguments) {
				record = args.Get(2).(*types.RescheduleRecord)
			}).Return(nil)

		_, err := svc.RescheduleAppointment("apt-1", "slot-2", doctorClaims)

		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "2025-03-12", record.PreviousDate)
		assert.Equal(t, "09:00", record.PreviousStartTime)
	})

	t.Run("cross-doctor slot rejected", func(t *testing.T) {
		svc, repo := setupTestService(t)

		otherSlot := &types.Availability{ID: "slot-9", DoctorID: "doc-2", Date: "2025-03-14", StartTime: "11:00"}
		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)
		repo.On("GetAvailabilityByID", "slot-9").Return(otherSlot, nil)

		_, err := svc.RescheduleAppointment("apt-1", "slot-9", staffClaims)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "different doctor")
	})

	t.Run("patients cannot reschedule", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.RescheduleAppointment("apt-1", "slot-2", patientClaims)

		require.Error(t, err)
	})
}

func TestService_History(t *testing.T) {
	appointments := []*types.Appointment{
		{ID: "a1", Status: types.StatusApproved, TriageStatus: types.TriageWaiting, PatientEmail: "a@x.com"},
		{ID: "a2", Status: types.StatusCancelled, PatientEmail: "b@x.com", Date: "2025-03-01", StartTime: "09:00", Reason: "flu"},
		{ID: "a3", Status: types.StatusApproved, TriageStatus: types.TriageDone, PatientEmail: "c@x.com", Date: "2025-03-02", StartTime: "10:00"},
		{ID: "a4", Status: types.StatusPending, PatientEmail: "d@x.com"},
		{ID: "a5", Status: types.StatusDeclined, PatientEmail: "e@x.com"},
		{ID: "a6", Status: types.StatusApproved, TriageStatus: types.TriageNoShow, PatientEmail: "f@x.com"},
	}

	t.Run("history keeps concluded appointments only", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointments", mock.AnythingOfType("*types.AppointmentFilters")).Return(appointments, nil)

		history, err := svc.GetHistory(staffClaims)

		require.NoError(t, err)
		ids := make([]string, len(history))
		for i, apt := range history {
			ids[i] = apt.ID
		}
		assert.Equal(t, []string{"a2", "a3", "a5", "a6"}, ids)
	})

	t.Run("CSV export carries the history columns", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointments", mock.AnythingOfType("*types.AppointmentFilters")).Return(appointments, nil)

		csvBytes, err := svc.ExportHistoryCSV(doctorClaims)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(csvBytes)), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "Patient Email,Date,Time,Status,Triage,Reason", lines[0])
		assert.Equal(t, "b@x.com,2025-03-01,09:00,cancelled,,flu", lines[1])
		assert.Equal(t, "c@x.com,2025-03-02,10:00,approved,done,", lines[2])
	})

	t.Run("only doctors can export", func(t *testing.T) {
		svc, _ := setupTestService(t)

		for _, claims := range []*types.UserClaims{patientClaims, staffClaims} {
			_, err := svc.ExportHistoryCSV(claims)

			require.Error(t, err)
			clinicErr, ok := err.(*types.ClinicError)
			require.True(t, ok)
			assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
		}
	})
}

func TestService_GetQueue(t *testing.T) {
	t.Run("doctor defaults to waiting and in_consultation", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointments", mock.MatchedBy(func(f *types.AppointmentFilters) bool {
			return f.DoctorID == "doc-1" && f.Status == types.StatusApproved && f.Date == "2025-03-10"
		})).Return([]*types.Appointment{
			{ID: "a1", Status: types.StatusApproved, TriageStatus: types.TriageWaiting, StartTime: "10:00"},
			{ID: "a2", Status: types.StatusApproved, TriageStatus: types.TriageInConsultation, StartTime: "09:00"},
			{ID: "a3", Status: types.StatusApproved, TriageStatus: types.TriageUrgent, StartTime: "08:00"},
		}, nil)

		queue, err := svc.GetQueue("", nil, doctorClaims)

		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, "a2", queue[0].ID)
		assert.Equal(t, "a1", queue[1].ID)
	})

	t.Run("staff with no filter see every approved appointment", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointments", mock.MatchedBy(func(f *types.AppointmentFilters) bool {
			return f.DoctorID == "doc-1" && f.Status == types.StatusApproved && f.Date == "2025-03-10"
		})).Return([]*types.Appointment{
			{ID: "a1", Status: types.StatusApproved, TriageStatus: types.TriageUrgent, StartTime: "08:00"},
			{ID: "a2", Status: types.StatusApproved, TriageStatus: types.TriageNone, StartTime: "09:00"},
			{ID: "a3", Status: types.StatusApproved, TriageStatus: types.TriageWaiting, StartTime: "10:00"},
		}, nil)

		queue, err := svc.GetQueue("doc-1", nil, staffClaims)

		require.NoError(t, err)
		require.Len(t, queue, 3)
	})

	t.Run("explicit triage filter narrows the queue", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointments", mock.Anything).Return([]*types.Appointment{
			{ID: "a1", Status: types.StatusApproved, TriageStatus: types.TriageUrgent, StartTime: "08:00"},
			{ID: "a2", Status: types.StatusApproved, TriageStatus: types.TriageWaiting, StartTime: "10:00"},
		}, nil)

		queue, err := svc.GetQueue("doc-1", []types.TriageStatus{types.TriageUrgent}, staffClaims)

		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, "a1", queue[0].ID)
	})

	t.Run("staff must name a doctor", func(t *testing.T) {
		svc, _ := setupTestService(t)

		_, err := svc.GetQueue("", nil, staffClaims)

		require.Error(t, err)
	})
}

func TestService_GetAvailabilities(t *testing.T) {
	t.Run("doctor defaults to own schedule", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAvailabilitiesByDoctor", "doc-1").Return([]*types.Availability{{ID: "slot-1"}}, nil)

		slots, err := svc.GetAvailabilities("", doctorClaims)

		require.NoError(t, err)
		require.Len(t, slots, 1)
	})

	t.Run("patient with no filter sees every doctor's slots", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAvailabilitiesByDoctor", "").Return([]*types.Availability{
			{ID: "slot-1", DoctorID: "doc-1"},
			{ID: "slot-2", DoctorID: "doc-2"},
		}, nil)

		slots, err := svc.GetAvailabilities("", patientClaims)

		require.NoError(t, err)
		require.Len(t, slots, 2)
	})

	t.Run("patient can filter by doctor", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAvailabilitiesByDoctor", "doc-2").Return([]*types.Availability{
			{ID: "slot-2", DoctorID: "doc-2"},
		}, nil)

		slots, err := svc.GetAvailabilities("doc-2", patientClaims)

		require.NoError(t, err)
		require.Len(t, slots, 1)
	})
}

func TestService_GetAppointmentDetail(t *testing.T) {
	apt := &types.Appointment{
		ID:        "apt-1",
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Status:    types.StatusApproved,
	}

	t.Run("appointed doctor sees the reschedule trail", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)
		repo.On("GetRescheduleRecords", "apt-1").Return([]*types.RescheduleRecord{
			{ID: "r1", AppointmentID: "apt-1", PreviousDate: "2025-03-01"},
		}, nil)

		detail, err := svc.GetAppointmentDetail("apt-1", doctorClaims)

		require.NoError(t, err)
		assert.Equal(t, "apt-1", detail.ID)
		require.Len(t, detail.Reschedules, 1)
	})

	t.Run("booking patient is refused", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.GetAppointmentDetail("apt-1", patientClaims)

		require.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		require.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})

	t.Run("another doctor is refused", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		other := &types.UserClaims{UserID: "doc-2", Role: types.RoleDoctor}
		_, err := svc.GetAppointmentDetail("apt-1", other)

		require.Error(t, err)
	})

	t.Run("staff are refused", func(t *testing.T) {
		svc, repo := setupTestService(t)

		repo.On("GetAppointmentByID", "apt-1").Return(apt, nil)

		_, err := svc.GetAppointmentDetail("apt-1", staffClaims)

		require.Error(t, err)
	})
}
