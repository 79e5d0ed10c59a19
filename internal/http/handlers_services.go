package http

import (
	"net/http"
	"sync/atomic"

	"agenda/internal/core"
	applog "agenda/internal/log"
)

// handleServiceForm returns an empty booking form.
func (s *Server) handleServiceForm(w http.ResponseWriter, r *http.Request) {
	clients, err := s.agenda.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "service_form", newServiceForm(clients, core.DateOf(s.now())))
}

// handleCreateService books a service, creating the client first when the
// inline new-client option was chosen.
func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	form, err := ParseServiceForm(p)
	if err == nil {
		var id, clientID int64
		if form.NewClient != nil {
			clientID, id, err = s.agenda.AddServiceWithNewClient(ctx, *form.NewClient, form.Input)
			if clientID != 0 {
				s.events.LogClientSaved(ctx, applog.OpCreate, clientID, form.NewClient.Name)
			}
		} else {
			id, err = s.agenda.AddService(ctx, form.Input)
			clientID, _ = form.Input.Client.Get()
		}
		if err == nil {
			atomic.AddInt64(&s.appMetrics.servicesSaved, 1)
			s.events.LogServiceSaved(ctx, applog.OpCreate, id, form.Input.Date.String(),
				form.Input.Amount.Cents, string(form.Input.Status), clientID)
			s.serviceSaved(w, r, form.Input.Date, "Service booked")
			return
		}
	}

	s.serviceFormError(w, r, 0, p, applog.OpCreate, err)
}

// handleEditService returns the form filled with an existing service.
func (s *Server) handleEditService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Service not found").Write(w)
		return
	}

	svc, found, err := s.agenda.GetService(ctx, id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if !found {
		NotFoundError("Service not found").Write(w)
		return
	}

	clients, err := s.agenda.ListClients(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "service_form", serviceFormFor(svc, clients))
}

// handleUpdateService overwrites a service. The inline new-client option is
// only offered when booking.
func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Service not found").Write(w)
		return
	}
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	form, err := ParseServiceForm(p)
	if err == nil && form.NewClient != nil {
		err = errInvalidClientID
	}
	if err == nil {
		if err = s.agenda.UpdateService(ctx, id, form.Input); err == nil {
			clientID, _ := form.Input.Client.Get()
			atomic.AddInt64(&s.appMetrics.servicesSaved, 1)
			s.events.LogServiceSaved(ctx, applog.OpUpdate, id, form.Input.Date.String(),
				form.Input.Amount.Cents, string(form.Input.Status), clientID)
			s.serviceSaved(w, r, form.Input.Date, "Service updated")
			return
		}
	}

	s.serviceFormError(w, r, id, p, applog.OpUpdate, err)
}

// handleDeleteService removes a service. Deleting an unknown id succeeds.
func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Service not found").Write(w)
		return
	}

	svc, found, err := s.agenda.GetService(ctx, id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if err := s.agenda.DeleteService(ctx, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Service deleted",
		applog.FieldServiceID, id,
		applog.FieldOperation, applog.OpDelete)

	b := NewHTMXResponse().TriggerSuccessNotification("Service deleted")
	if found {
		b.TriggerAgendaChanged(svc.Date.Year(), int(svc.Date.Month()))
	}
	b.Write(w)
}

// serviceSaved answers a successful create or update with a fresh form and
// triggers that refresh the agenda.
func (s *Server) serviceSaved(w http.ResponseWriter, r *http.Request, date core.Date, message string) {
	clients, err := s.agenda.ListClients(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	b := NewHTMXResponse().
		TriggerAgendaChanged(date.Year(), int(date.Month())).
		TriggerClientsChanged().
		TriggerFormReset().
		TriggerSuccessNotification(message)
	s.render(w, r, b, "service_form", newServiceForm(clients, date))
}

// serviceFormError re-renders the submitted form with the validation
// message, or reports a server error.
func (s *Server) serviceFormError(w http.ResponseWriter, r *http.Request, id int64, p *RequestBodyParser, op string, err error) {
	if !isValidationError(err) {
		s.fail(w, r, op, err)
		return
	}
	clients, listErr := s.agenda.ListClients(r.Context())
	if listErr != nil {
		s.fail(w, r, applog.OpList, listErr)
		return
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Service rejected",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeValidation,
		applog.FieldOperation, op)
	s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "service_form",
		serviceFormFromRequest(id, p, clients, err))
}
