package events

import (
	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/domain"
	"github.com/UkralStul/studyabroad-realtime/internal/realtime"
)

// Applications сообщает об изменении статуса заявки.
type Applications struct {
	handler
}

func NewApplications(pub realtime.Publisher, log logrus.FieldLogger) *Applications {
	return &Applications{handler: newHandler(pub, log)}
}

// StatusChanged уходит студенту и назначенному консультанту, если он есть.
func (h *Applications) StatusChanged(app *domain.Application) {
	h.toUser(app.StudentID, realtime.TypeApplicationUpdate, app)
	if app.CounselorID != nil && *app.CounselorID != "" && *app.CounselorID != app.StudentID {
		h.toUser(*app.CounselorID, realtime.TypeApplicationUpdate, app)
	}
}
