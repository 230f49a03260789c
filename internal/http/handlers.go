package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"nrsnotify/internal/cookie"
	"nrsnotify/internal/core"
	"nrsnotify/internal/i18n"
	"nrsnotify/internal/log"
	"nrsnotify/internal/session"
)

// AccountCookie remembers the account chosen through POST /session.
const AccountCookie = "nrs_account"

type labels struct {
	Title      string
	MarkAll    string
	Empty      string
	Refresh    string
	AccountFor string
}

type pageData struct {
	Account string
	Lang    string
	Page    string
	View    core.View
	Labels  labels
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	requests := s.tracer.GetMetrics()
	detection := s.detector.GetMetrics()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"sessions":  s.sessions.Size(),
		"evicted":   s.sessions.Evicted(),
		"requests": map[string]int64{
			"total":         requests.TotalRequests,
			"client_errors": requests.ClientErrors,
			"server_errors": requests.ServerErrors,
			"slow":          requests.SlowRequests,
			"rate_limited":  s.limiter.Hits(),
			"suspicious":    detection.SuspiciousRequests,
			"blocked":       detection.BlockedRequests,
		},
	})
}

// handleReady runs every readiness check; any failure makes the service not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.readyChecks)+1)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			checks[name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r)
	if data.Account != "" {
		s.withSession(w, r, data.Account, func(sess *session.Session) {
			data.View = core.BuildView(sess.Registry, s.translator(r).T)
		})
	}
	s.render(w, r, "index.html", data, nil)
}

// handleNotifications renders the badge and popover partial.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r)
	if data.Account != "" {
		s.withSession(w, r, data.Account, func(sess *session.Session) {
			data.View = core.BuildView(sess.Registry, s.translator(r).T)
		})
	}
	s.render(w, r, "notifications.html", data, nil)
}

// handleMarkRead marks every subtype, or only those of the posted page, as read.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	form, err := s.validator.ParseMarkReadForm(r)
	if err != nil {
		s.formError(w, r, err)
		return
	}

	data := s.newPageData(r)
	if data.Account == "" {
		BadRequestError("no account selected").Write(w)
		return
	}

	s.withSession(w, r, data.Account, func(sess *session.Session) {
		if _, err := s.notifier.MarkRead(r.Context(), sess.Registry, sess.Account, form.Page, s.stores(w, r)); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Mark as read failed",
				log.FieldAccount, sess.Account, log.FieldPage, form.Page, log.FieldError, err)
		}
		data.View = core.BuildView(sess.Registry, s.translator(r).T)
	})

	s.render(w, r, "notifications.html", data, NewHTMXResponse().TriggerNotificationsUpdated(data.View.Total))
}

// handleRefresh reruns the refresh flow for the current account.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r)
	if data.Account == "" {
		BadRequestError("no account selected").Write(w)
		return
	}

	sess, _ := s.sessions.Get(data.Account)
	sess.Lock()
	s.refresh(w, r, sess)
	data.View = core.BuildView(sess.Registry, s.translator(r).T)
	sess.Unlock()

	s.render(w, r, "notifications.html", data, NewHTMXResponse().TriggerNotificationsUpdated(data.View.Total))
}

// handleSession selects the account whose notifications are shown.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	form, err := s.validator.ParseSessionForm(r)
	if err != nil {
		s.formError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccountCookie,
		Value:    form.Account,
		Path:     "/",
		MaxAge:   int(cookie.MaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Load the account's state now so the first render is warm.
	s.withSession(w, r, form.Account, func(*session.Session) {})

	log.FromContext(r.Context()).InfoContext(r.Context(), "Session started", log.FieldAccount, form.Account)

	if r.Header.Get("HX-Request") == "true" {
		NewHTMXResponse().Redirect("/").Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePage opens a receiver page, marking its notifications as read first.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page := r.PathValue("page")
	if !s.validator.IsKnownPage(page) {
		NotFoundError("unknown page").Write(w)
		return
	}

	data := s.newPageData(r)
	data.Page = page
	if data.Account != "" {
		s.withSession(w, r, data.Account, func(sess *session.Session) {
			if _, err := s.notifier.MarkRead(r.Context(), sess.Registry, sess.Account, page, s.stores(w, r)); err != nil {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Mark page as read failed",
					log.FieldAccount, sess.Account, log.FieldPage, page, log.FieldError, err)
			}
			data.View = core.BuildView(sess.Registry, s.translator(r).T)
		})
	}

	s.render(w, r, "page.html", data, NewHTMXResponse().TriggerNotificationsRefresh())
}

// withSession runs fn with the account's session locked, refreshing it first
// when it has never been loaded or its counts are older than refreshAfter.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, account string, fn func(*session.Session)) {
	sess, created := s.sessions.Get(account)
	sess.Lock()
	defer sess.Unlock()

	if created || !sess.Refreshed || sess.Stale(s.refreshAfter, time.Now()) {
		s.refresh(w, r, sess)
	}
	fn(sess)
}

// refresh runs the refresh flow. Callers hold the session lock.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	if err := s.notifier.Refresh(ctx, sess.Registry, sess.Account, s.stores(w, r)); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Refresh failed", log.FieldAccount, sess.Account, log.FieldError, err)
		return
	}
	// Without a server time nothing was loaded; try again on the next view.
	sess.Refreshed = initialized(sess.Registry)
	if sess.Refreshed {
		sess.RefreshedAt = time.Now()
	}
}

func initialized(reg *core.Registry) bool {
	for _, ts := range reg.Watermarks() {
		if ts != 0 {
			return true
		}
	}
	return false
}

// account resolves the session account from the cookie, then the configured default.
func (s *Server) account(r *http.Request) string {
	if c, err := r.Cookie(AccountCookie); err == nil {
		if _, err := strconv.ParseUint(c.Value, 10, 64); err == nil {
			return c.Value
		}
	}
	return s.defaultAccount
}

func (s *Server) translator(r *http.Request) *i18n.Translator {
	return s.bundle.For(r.Header.Get("Accept-Language"), s.language)
}

func (s *Server) newPageData(r *http.Request) pageData {
	t := s.translator(r)
	return pageData{
		Account: s.account(r),
		Lang:    t.Language(),
		View:    core.View{BadgeColor: core.BadgeMuted},
		Labels: labels{
			Title:      t.T("notifications", "Notifications"),
			MarkAll:    t.T("notifications_mark_as_read", "Mark all as read"),
			Empty:      t.T("no_notifications", "No current notifications"),
			Refresh:    t.T("refresh", "Refresh"),
			AccountFor: t.T("account", "Account"),
		},
	}
}

// render executes a template into a buffer so a failure can still become a 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", "template", name)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err)
		InternalServerError("render failed").Write(w)
		return
	}

	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.NoStore().BodyHTML(buf.String()).Write(w)
}

func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid form", "field", ve.Field, "rule", ve.Tag)
		UnprocessableEntityError(ve.Error()).Write(w)
		return
	}
	BadRequestError("invalid request").Write(w)
}
