package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type signupRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetPasswordRequest struct {
	NewPassword          string `json:"newPassword"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

func (s *HTTPServer) recordAuth(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordAuth(operation, err)
	}
}

func (s *HTTPServer) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	user, err := s.auth.Signup(r.Context(), services.SignupInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	s.recordAuth("signup", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	pair, err := s.auth.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	s.recordAuth("login", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *HTTPServer) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	err := s.auth.VerifyEmail(r.Context(), r.URL.Query().Get("userId"), req.Code)
	s.recordAuth("verify", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) resendVerification(w http.ResponseWriter, r *http.Request) {
	err := s.auth.ResendVerification(r.Context(), r.URL.Query().Get("userId"))
	s.recordAuth("verify_resend", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	s.recordAuth("refresh", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	err := s.auth.Logout(r.Context(), req.RefreshToken)
	s.recordAuth("logout", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, r, s.logger, common.NewError(common.CodeInvalidCredentials, MsgMissingAuthHeader))
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	err := s.auth.ResetPassword(r.Context(), p.UserID, req.NewPassword, req.PasswordConfirmation)
	s.recordAuth("reset_password", err)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
