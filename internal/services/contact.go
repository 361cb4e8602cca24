package services

import (
	"context"

	"github.com/kartikbazzad/bunbase/bunpress/internal/events"
	"github.com/kartikbazzad/bunbase/bunpress/internal/logger"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

// ContactSubjects are the choices of the contact form, in display order.
var ContactSubjects = []struct{ Value, Label string }{
	{"general", "General question"},
	{"order", "Custom order"},
	{"partnership", "Partnership"},
	{"press", "Press"},
	{"other", "Other"},
}

// ContactInput is the public contact form.
type ContactInput struct {
	Name    string `form:"name" validate:"required,min=2,max=255"`
	Email   string `form:"email" validate:"required,email,max=255"`
	Subject string `form:"subject" validate:"required,oneof=general order partnership press other"`
	Message string `form:"message" validate:"required,min=10"`
}

// ContactService accepts contact messages and forwards them as events.
type ContactService struct {
	events events.Publisher
}

func NewContactService(publisher events.Publisher) *ContactService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ContactService{events: publisher}
}

// Submit validates the message and publishes it.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	in.Name, in.Email, in.Subject, in.Message = trimmed(in.Name), trimmed(in.Email), trimmed(in.Subject), trimmed(in.Message)
	if err := validation.Struct(in); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("contact message received", "subject", in.Subject)
	events.Emit(ctx, s.events, events.ContactSubmitted, in)
	return nil
}
