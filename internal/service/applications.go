package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/auth"
	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
)

type CreateApplicationInput struct {
	UniversityName string  `json:"universityName"`
	CourseName     string  `json:"courseName"`
	CounselorID    *string `json:"counselorId"`
	Notes          string  `json:"notes"`
}

type UpdateStatusInput struct {
	Status domain.ApplicationStatus `json:"status"`
	Notes  *string                  `json:"notes"`
}

type Applications struct {
	store    storage.Storage
	events   ApplicationEvents
	notifier NotificationCreator
	log      logrus.FieldLogger
}

func NewApplications(store storage.Storage, events ApplicationEvents, notifier NotificationCreator, log logrus.FieldLogger) *Applications {
	return &Applications{store: store, events: events, notifier: notifier, log: log}
}

// Create создает черновик заявки для студента.
func (s *Applications) Create(ctx context.Context, studentID string, in CreateApplicationInput) (*domain.Application, error) {
	if strings.TrimSpace(in.UniversityName) == "" || strings.TrimSpace(in.CourseName) == "" {
		return nil, fmt.Errorf("university and course are required: %w", domain.ErrValidation)
	}
	app, err := s.store.CreateApplication(ctx, &domain.Application{
		StudentID:      studentID,
		CounselorID:    in.CounselorID,
		UniversityName: strings.TrimSpace(in.UniversityName),
		CourseName:     strings.TrimSpace(in.CourseName),
		Status:         domain.ApplicationDraft,
		Notes:          in.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// UpdateStatus: назначенный консультант или админ может поставить любой статус,
// студент может только подать или отозвать свою заявку.
func (s *Applications) UpdateStatus(ctx context.Context, actor auth.Principal, id string, in UpdateStatusInput) (*domain.Application, error) {
	if !in.Status.Valid() {
		return nil, fmt.Errorf("application status %q: %w", in.Status, domain.ErrValidation)
	}
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSetStatus(actor, app, in.Status) {
		return nil, fmt.Errorf("application %s: %w", id, domain.ErrForbidden)
	}

	previous := app.Status
	app.Status = in.Status
	if in.Notes != nil {
		app.Notes = *in.Notes
	}
	if err := s.store.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}

	s.events.StatusChanged(app)
	if actor.UserID != app.StudentID {
		data, _ := json.Marshal(map[string]string{
			"applicationId":  app.ID,
			"previousStatus": string(previous),
			"status":         string(app.Status),
		})
		_, err := s.notifier.Create(ctx, &domain.Notification{
			UserID:  app.StudentID,
			Type:    domain.NotificationApplicationUpdate,
			Title:   "Application status updated",
			Message: fmt.Sprintf("Your application to %s is now %s", app.UniversityName, app.Status),
			Data:    data,
		})
		if err != nil {
			s.log.WithError(err).WithField("application_id", app.ID).Error("failed to notify student")
		}
	}
	return app, nil
}

func canSetStatus(actor auth.Principal, app *domain.Application, status domain.ApplicationStatus) bool {
	switch {
	case actor.IsAdmin():
		return true
	case app.CounselorID != nil && *app.CounselorID == actor.UserID:
		return true
	case app.StudentID == actor.UserID:
		return status == domain.ApplicationSubmitted || status == domain.ApplicationWithdrawn
	default:
		return false
	}
}
