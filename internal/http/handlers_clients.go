package http

import (
	"net/http"
	"sync/atomic"

	"agenda/internal/core"
	applog "agenda/internal/log"
)

// handleClients renders the client directory page.
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	rows, err := s.clientRows(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "clients_page", clientsPage{Rows: rows})
}

// handleClientList renders the directory table partial.
func (s *Server) handleClientList(w http.ResponseWriter, r *http.Request) {
	rows, err := s.clientRows(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "client_list", rows)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	in := ParseClientForm(p)
	id, err := s.agenda.AddClient(ctx, in)
	if err != nil {
		s.clientFormError(w, r, 0, in, applog.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.clientsSaved, 1)
	s.events.LogClientSaved(ctx, applog.OpCreate, id, in.Name)
	s.clientSaved(w, r, "Client added")
}

func (s *Server) handleEditClient(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Client not found").Write(w)
		return
	}
	c, found, err := s.agenda.GetClient(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	if !found {
		NotFoundError("Client not found").Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse(), "client_form", clientFormFor(c))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Client not found").Write(w)
		return
	}
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	in := ParseClientForm(p)
	if err := s.agenda.UpdateClient(ctx, id, in); err != nil {
		s.clientFormError(w, r, id, in, applog.OpUpdate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.clientsSaved, 1)
	s.events.LogClientSaved(ctx, applog.OpUpdate, id, in.Name)
	s.clientSaved(w, r, "Client updated")
}

// handleDeleteClient removes a client. Its services stay on the agenda
// without a client.
func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseID(r, "id")
	if err != nil {
		NotFoundError("Client not found").Write(w)
		return
	}

	if err := s.agenda.DeleteClient(ctx, id); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	s.events.LogClientSaved(ctx, applog.OpDelete, id, "")

	NewHTMXResponse().
		TriggerClientsChanged().
		TriggerSuccessNotification("Client deleted, their services were kept").
		Write(w)
}

func (s *Server) clientSaved(w http.ResponseWriter, r *http.Request, message string) {
	b := NewHTMXResponse().
		TriggerClientsChanged().
		TriggerFormReset().
		TriggerSuccessNotification(message)
	s.render(w, r, b, "client_form", clientFormView{})
}

func (s *Server) clientFormError(w http.ResponseWriter, r *http.Request, id int64, in core.ClientInput, op string, err error) {
	if !isValidationError(err) {
		s.fail(w, r, op, err)
		return
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Client rejected",
		applog.FieldError, err,
		applog.FieldErrorType, applog.ErrorTypeValidation,
		applog.FieldOperation, op)
	s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "client_form",
		clientFormFromInput(id, in, err))
}
