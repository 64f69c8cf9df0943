package http

import (
	"net/http"

	"smartexpense/internal/core"
	"smartexpense/internal/session"
)

type sessionAction func(p *RequestBodyParser) (session.Snapshot, error)

// runSessionAction parses the body, applies one state machine step and
// renders the resulting snapshot or the error alongside it.
func (s *Server) runSessionAction(w http.ResponseWriter, r *http.Request, action sessionAction) {
	s.runSessionActionLimit(w, r, maxBodyBytes, action)
}

func (s *Server) runSessionActionLimit(w http.ResponseWriter, r *http.Request, limit int64, action sessionAction) {
	p, err := parseBodyLimit(r, limit)
	if err != nil {
		writeSessionError(w, r, err, s.deps.Session.Snapshot())
		return
	}
	snap, err := action(p)
	if err != nil {
		writeSessionError(w, r, err, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.Login(r.Context(), p.Get("username"), p.GetRaw("password"))
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.Signup(r.Context(), core.Account{
			Name:     p.Get("name"),
			Username: p.Get("username"),
			Email:    p.Get("email"),
			Password: p.GetRaw("password"),
		})
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.SubmitCode(r.Context(), p.Get("code"))
	})
}

func (s *Server) handleBeginRecovery(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(*RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.BeginRecovery(r.Context())
	})
}

func (s *Server) handleRecoveryUsername(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.SubmitRecoveryUsername(r.Context(), p.Get("username"))
	})
}

func (s *Server) handleRecoveryPassword(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.SubmitNewPassword(r.Context(), p.GetRaw("password"))
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(*RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.Cancel(r.Context())
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.runSessionAction(w, r, func(*RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.Logout(r.Context())
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.runSessionActionLimit(w, r, maxProfileBodyBytes, func(p *RequestBodyParser) (session.Snapshot, error) {
		return s.deps.Session.UpdateProfile(r.Context(), session.Profile{
			Name:      p.Get("name"),
			Email:     p.Get("email"),
			AvatarURL: p.Get("avatarUrl"),
		})
	})
}
