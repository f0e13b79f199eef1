package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/application"
)

func (r *Router) handleSubmitApplication(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	var in application.SubmitInput
	if !decodeJSON(w, req, &in) {
		return
	}
	in.ApplicantID = userID
	app, err := r.applications.Submit(req.Context(), in)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (r *Router) handleAcceptApplication(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	app, err := r.applications.Accept(req.Context(), chi.URLParam(req, "id"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (r *Router) handleRejectApplication(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	app, err := r.applications.Reject(req.Context(), chi.URLParam(req, "id"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (r *Router) handleListMyApplications(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	apps, err := r.applications.ListMine(req.Context(), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (r *Router) handleListOpeningApplications(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	apps, err := r.applications.ListForOpening(req.Context(), chi.URLParam(req, "openingId"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (r *Router) handleListMyTeams(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	teams, err := r.teams.ListForUser(req.Context(), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (r *Router) handleGetTeam(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	view, err := r.teams.GetForUser(req.Context(), chi.URLParam(req, "id"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleGetTeamByOpening(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	view, err := r.teams.GetByOpeningForUser(req.Context(), chi.URLParam(req, "openingId"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleMessageStats(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	stats, err := r.chat.Stats(req.Context(), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleMessageHistory(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	msgs, err := r.chat.History(req.Context(), chi.URLParam(req, "teamId"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (r *Router) handlePostMessage(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	msg, err := r.chat.PostAs(req.Context(), userID, chi.URLParam(req, "teamId"), payload.Content)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (r *Router) handleListNotifications(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	inbox, err := r.notifications.List(req.Context(), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (r *Router) handleMarkNotificationRead(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	n, err := r.notifications.MarkRead(req.Context(), chi.URLParam(req, "id"), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (r *Router) handleMarkAllNotificationsRead(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	updated, err := r.notifications.MarkAllRead(req.Context(), userID)
	if err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (r *Router) handleDeleteNotification(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.mustUser(w, req)
	if !ok {
		return
	}
	if err := r.notifications.Delete(req.Context(), chi.URLParam(req, "id"), userID); err != nil {
		r.writeDomainError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
