package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
)

// Credential kinds accepted by the credential endpoints.
const (
	credentialPassword    = "password"
	credentialFingerprint = "fingerprint"
	credentialBluetooth   = "bluetooth"
	credentialRemote      = "remote"
)

// unlockRequest is the body of POST /locks/{id}/unlock. Which fields are
// read depends on Method.
type unlockRequest struct {
	Method     doorlock.Method `json:"method"`
	UserID     string          `json:"userId,omitempty"`
	Password   string          `json:"password,omitempty"`
	TemplateID string          `json:"templateId,omitempty"`
	PairedID   string          `json:"pairedId,omitempty"`
}

// credentialRequest is the body of POST /locks/{id}/credentials.
type credentialRequest struct {
	Kind      string `json:"kind"`
	Principal string `json:"principal"`
	Secret    string `json:"secret,omitempty"`
}

// autoLockRequest is the body of PUT /locks/{id}/auto-lock-delay.
type autoLockRequest struct {
	DelayMS int64 `json:"delayMs"`
}

// lockFromRequest resolves the {id} lock or writes a 404.
func (s *Server) lockFromRequest(w http.ResponseWriter, r *http.Request) (*doorlock.Controller, bool) {
	c, err := s.locks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "lock not found")
		return nil, false
	}
	return c, true
}

// handleListLocks returns the state of every lock.
func (s *Server) handleListLocks(w http.ResponseWriter, _ *http.Request) {
	locks := s.locks.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"locks": locks,
		"count": len(locks),
	})
}

// handleGetLock returns the state of one lock.
func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.DoorInfo())
}

// handleUnlock runs one unlock attempt. Remote unlocks are made on behalf
// of the authenticated operator; the other methods carry their own
// identity in the body.
//
// A granted attempt answers 200 with the AuthResult. A rejected one
// answers 403 (423 during password lockout) with the same body, so the
// panel can show its message and remaining attempts.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}

	var req unlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var (
		res doorlock.AuthResult
		err error
	)
	ctx := r.Context()
	switch req.Method {
	case doorlock.MethodPassword:
		res, err = c.UnlockWithPassword(ctx, req.UserID, req.Password)
	case doorlock.MethodFingerprint:
		res, err = c.UnlockWithFingerprint(ctx, req.TemplateID)
	case doorlock.MethodBluetooth:
		res, err = c.UnlockWithBluetooth(ctx, req.PairedID)
	case doorlock.MethodRemote:
		res, err = c.UnlockRemotely(ctx, principalFromContext(ctx))
	default:
		writeBadRequest(w, "method must be password, fingerprint, bluetooth or remote")
		return
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, doorlock.ErrAccountLocked):
		writeJSON(w, http.StatusLocked, res)
	case errors.Is(err, doorlock.ErrDispatchFailed):
		s.logger.Warn("unlock dispatch failed", "device_id", c.DeviceID(), "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDispatch, res.Message)
	default:
		writeJSON(w, http.StatusForbidden, res)
	}
}

// handleLock locks the door immediately.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	if err := c.Lock(r.Context()); err != nil {
		s.logger.Warn("lock dispatch failed", "device_id", c.DeviceID(), "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDispatch, "lock command could not be delivered")
		return
	}
	writeJSON(w, http.StatusOK, c.DoorInfo())
}

// handleSetAutoLockDelay changes how long the door stays unlocked.
func (s *Server) handleSetAutoLockDelay(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	var req autoLockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := c.SetAutoLockDelay(time.Duration(req.DelayMS) * time.Millisecond); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c.DoorInfo())
}

// handleListCredentials returns the identities the lock accepts.
func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Credentials())
}

// handleAddCredential enrols a password, fingerprint, Bluetooth device or
// remote operator.
func (s *Server) handleAddCredential(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch req.Kind {
	case credentialPassword:
		err = c.AddCredential(req.Principal, req.Secret)
	case credentialFingerprint:
		err = c.AddFingerprint(req.Principal)
	case credentialBluetooth:
		err = c.PairBluetooth(req.Principal)
	case credentialRemote:
		err = c.AuthoriseRemote(req.Principal)
	default:
		writeBadRequest(w, "kind must be password, fingerprint, bluetooth or remote")
		return
	}

	switch {
	case err == nil:
		s.logger.Info("lock credential added",
			"device_id", c.DeviceID(),
			"kind", req.Kind,
			"principal", req.Principal,
			"by", principalFromContext(r.Context()),
		)
		writeJSON(w, http.StatusCreated, c.Credentials())
	case errors.Is(err, doorlock.ErrWeakCredential), errors.Is(err, doorlock.ErrInvalidPrincipal):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("adding lock credential failed", "device_id", c.DeviceID(), "kind", req.Kind, "error", err)
		writeInternalError(w, "failed to add credential")
	}
}

// handleRemoveCredential removes one enrolled identity.
func (s *Server) handleRemoveCredential(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lockFromRequest(w, r)
	if !ok {
		return
	}
	principal := chi.URLParam(r, "principal")

	var removed bool
	switch kind := chi.URLParam(r, "kind"); kind {
	case credentialPassword:
		removed = c.RemoveCredential(principal)
	case credentialFingerprint:
		removed = c.RemoveFingerprint(principal)
	case credentialBluetooth:
		removed = c.UnpairBluetooth(principal)
	case credentialRemote:
		removed = c.RevokeRemote(principal)
	default:
		writeBadRequest(w, "unknown credential kind "+kind)
		return
	}

	if !removed {
		writeNotFound(w, "credential not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
