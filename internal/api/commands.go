package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DaLongZhuaZi/rpi-panel/internal/audit"
	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// commandAccepted is the body of a 202 response. The outcome arrives
// later as an operation-result event.
type commandAccepted struct {
	DeviceID  string             `json:"deviceId"`
	Subsystem protocol.Subsystem `json:"subsystem"`
	Command   string             `json:"command"`
	Target    string             `json:"target,omitempty"`
	Status    string             `json:"status"`
}

// handleGPIOCommand sends a gpio-control command to a device.
func (s *Server) handleGPIOCommand(w http.ResponseWriter, r *http.Request) {
	var c protocol.GPIOControl
	if err := decodeJSON(r, &c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")
	s.finishCommand(w, r, id, protocol.SubsystemGPIO, c.Command, c.Target(), s.commands.GPIO(id, c))
}

// handleI2CCommand sends an i2c-control command to a device.
func (s *Server) handleI2CCommand(w http.ResponseWriter, r *http.Request) {
	var c protocol.I2CControl
	if err := decodeJSON(r, &c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")
	s.finishCommand(w, r, id, protocol.SubsystemI2C, c.Command, c.Target(), s.commands.I2C(id, c))
}

// handleSystemCommand sends a system-control command to a device.
func (s *Server) handleSystemCommand(w http.ResponseWriter, r *http.Request) {
	var c protocol.SystemControl
	if err := decodeJSON(r, &c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")
	s.finishCommand(w, r, id, protocol.SubsystemSystem, c.Command, "", s.commands.System(id, c))
}

// finishCommand audits a send attempt and maps its error to a response:
// 400 for invalid commands, 409 when the device is offline, 502 when the
// session refused the frame.
func (s *Server) finishCommand(w http.ResponseWriter, r *http.Request, deviceID string, sub protocol.Subsystem, name, target string, err error) {
	if err == nil || !errors.Is(err, command.ErrInvalidCommand) {
		s.auditCommand(r, deviceID, sub, name, target, err)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, commandAccepted{
			DeviceID:  deviceID,
			Subsystem: sub,
			Command:   name,
			Target:    target,
			Status:    "sent",
		})
	case errors.Is(err, command.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, command.ErrDeviceOffline):
		writeConflict(w, "device "+deviceID+" is offline")
	default:
		s.logger.Warn("command dispatch failed", "device_id", deviceID, "command", name, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDispatch, "command could not be delivered")
	}
}

func (s *Server) auditCommand(r *http.Request, deviceID string, sub protocol.Subsystem, name, target string, err error) {
	if s.audit == nil {
		return
	}
	details := map[string]any{
		"subsystem": string(sub),
		"command":   name,
	}
	if target != "" {
		details["target"] = target
	}
	if err != nil {
		details["error"] = err.Error()
	}
	s.audit.Log(&audit.AuditLog{
		Action:     audit.ActionCommand,
		EntityType: audit.EntityDevice,
		EntityID:   deviceID,
		UserID:     principalFromContext(r.Context()),
		Source:     "api",
		Success:    err == nil,
		Details:    details,
	})
}
