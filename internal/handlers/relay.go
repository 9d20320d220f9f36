package handlers

import (
	"errors"
	"io"
	"net/http"

	"controlling_relay/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK          = "ok"
	statusAccepted    = "accepted"
	statusPropertySet = "property_set"

	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
	errQueueBusy       = "relay is busy, retry later"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if h.log != nil && err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, code int, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if h.services.Monitoring != nil {
		if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
			resp["state"] = st
		}
	}
	c.JSON(code, resp)
}

// bindOptionalJSON binds a body if one was sent. An empty body leaves dst untouched.
func (h *Handler) bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return false
	}
	return true
}

// submit queues cmd and answers 202, or maps the rejection to a status code.
func (h *Handler) submit(c *gin.Context, cmd service.Command) {
	err := h.services.Commands.Submit(cmd)
	switch {
	case err == nil:
		if h.log != nil {
			h.log.Infow("relay_command_accepted", "command", string(cmd.Name), "minutes", cmd.Minutes, "user_id", userID(c))
		}
		h.respondWithStatusAndState(c, http.StatusAccepted, statusAccepted, gin.H{"command": string(cmd.Name)})
	case errors.Is(err, service.ErrUnknownCommand), errors.Is(err, service.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrDispatcherStopped):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errQueueBusy, "relay_command_rejected", err, "command", string(cmd.Name))
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to queue command", "relay_command_failed", err, "command", string(cmd.Name))
	}
}

// OnRequest is the optional body of POST /relay/on.
type OnRequest struct {
	// Arms auto-off for this turn-on after the given minutes (0..1440).
	AutoOffTime *int `json:"auto_off_time,omitempty" example:"15"`
}

// OffRequest is the optional body of POST /relay/off.
type OffRequest struct {
	// Schedules the off after the given minutes instead of switching off now.
	DelayMinutes *int `json:"delay_minutes,omitempty" example:"10"`
}

// AutoOffTimeRequest is the body of PUT /relay/auto-off-time.
type AutoOffTimeRequest struct {
	Minutes *int `json:"minutes" binding:"required" example:"30"`
}

// PropertyRequest is the body of PUT /relay/properties/{key}.
type PropertyRequest struct {
	Value any `json:"value"`
}

// CommandRequest is the optional body of POST /relay/commands/{name}.
type CommandRequest struct {
	Parameters []string `json:"parameters,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Turn relay on
// @Description  Without a body the configured auto-off policy applies.
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        body  body   OnRequest  false  "Auto-off override"
// @Success      202   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/relay/on [post]
// @Security     BearerAuth
func (h *Handler) relayOn(c *gin.Context) {
	var req OnRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	cmd := service.Command{Name: service.CmdPowerOn}
	if req.AutoOffTime != nil {
		cmd = service.Command{Name: service.CmdPowerOnAutoOff, Minutes: *req.AutoOffTime}
	}
	h.submit(c, cmd)
}

// @Summary      Turn relay off
// @Description  With delay_minutes the auto-off timer is re-armed instead of switching off now.
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        body  body   OffRequest  false  "Delay"
// @Success      202   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/relay/off [post]
// @Security     BearerAuth
func (h *Handler) relayOff(c *gin.Context) {
	var req OffRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	cmd := service.Command{Name: service.CmdPowerOff}
	if req.DelayMinutes != nil {
		cmd = service.Command{Name: service.CmdPowerOffDelayed, Minutes: *req.DelayMinutes}
	}
	h.submit(c, cmd)
}

// @Summary      Toggle relay
// @Tags         relay
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/relay/toggle [post]
// @Security     BearerAuth
func (h *Handler) relayToggle(c *gin.Context) {
	h.submit(c, service.Command{Name: service.CmdPowerToggle})
}

// @Summary      Enable auto-off
// @Tags         relay
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /api/v1/relay/auto-off/enable [post]
// @Security     BearerAuth
func (h *Handler) enableAutoOff(c *gin.Context) {
	h.submit(c, service.Command{Name: service.CmdEnableAutoOff})
}

// @Summary      Disable auto-off
// @Tags         relay
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Router       /api/v1/relay/auto-off/disable [post]
// @Security     BearerAuth
func (h *Handler) disableAutoOff(c *gin.Context) {
	h.submit(c, service.Command{Name: service.CmdDisableAutoOff})
}

// @Summary      Set auto-off time
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        body  body   AutoOffTimeRequest  true  "Minutes (0..1440)"
// @Success      202   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/relay/auto-off-time [put]
// @Security     BearerAuth
func (h *Handler) setAutoOffTime(c *gin.Context) {
	var req AutoOffTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	h.submit(c, service.Command{Name: service.CmdSetAutoOffTime, Minutes: *req.Minutes})
}

// @Summary      Set property
// @Description  Keys: AutoOff (bool), AutoOffTime (int minutes), onIcon, offIcon (string).
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        key   path   string           true  "Property key"
// @Param        body  body   PropertyRequest  true  "Value"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/relay/properties/{key} [put]
// @Security     BearerAuth
func (h *Handler) setProperty(c *gin.Context) {
	key := c.Param("key")
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if err := h.services.Properties.SetProperty(key, req.Value); err != nil {
		if errors.Is(err, service.ErrUnknownProperty) || errors.Is(err, service.ErrInvalidPropertyValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to set property", "relay_set_property_failed", err, "key", key)
		return
	}
	h.respondWithStatusAndState(c, http.StatusOK, statusPropertySet, gin.H{"key": key})
}

// @Summary      Run named command
// @Description  PowerOn, PowerOnAutoOff, PowerOff, PowerOffDelayed, PowerToggle, EnableAutoOff, DisableAutoOff, SetAutoOffTime.
// @Tags         relay
// @Accept       json
// @Produce      json
// @Param        name  path   string          true   "Command name"
// @Param        body  body   CommandRequest  false  "Parameters"
// @Success      202   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/relay/commands/{name} [post]
// @Security     BearerAuth
func (h *Handler) runCommand(c *gin.Context) {
	var req CommandRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	cmd, err := service.ParseCommand(c.Param("name"), req.Parameters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.submit(c, cmd)
}

// @Summary      Get relay state
// @Tags         relay
// @Produce      json
// @Success      200  {object}  models.RelayStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/relay/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "relay_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
