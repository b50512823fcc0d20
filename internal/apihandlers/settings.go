package apihandlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ingestd/internal/config"
)

// SettingsSchemaHandler returns the static category/setting metadata used
// to render the configuration UI.
func (h *APIHandler) SettingsSchemaHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": config.SettingsSchema})
}

// SettingsValuesHandler returns the current value of every declared key,
// with schema defaults applied for keys never set.
func (h *APIHandler) SettingsValuesHandler(c *gin.Context) {
	values := make(map[string]string)
	for _, cat := range config.SettingsSchema {
		for _, spec := range cat.Settings {
			values[spec.Key] = h.App.Settings.Get(spec.Key, spec.Default)
		}
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

// UpdateSettingRequest represents the JSON body to change one setting.
type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateSettingHandler writes one setting through the runtime store.
// Unknown keys are rejected with no side effects. A write to a key the
// schema declares critical triggers service invalidation.
func (h *APIHandler) UpdateSettingHandler(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	spec, ok := config.SettingByKey(req.Key)
	if !ok {
		BadRequest(c, fmt.Sprintf("Unknown setting key: %s", req.Key))
		return
	}

	h.App.Settings.Set(spec.Key, req.Value)

	invalidated := false
	if spec.Critical {
		invalidated = h.App.InvalidateServices()
	}
	c.JSON(http.StatusOK, gin.H{
		"key":         spec.Key,
		"value":       req.Value,
		"critical":    spec.Critical,
		"invalidated": invalidated,
	})
}

// ResetSettingsHandler rewrites every declared key to its schema default
// and always rebuilds dependent services. Not atomic across keys; reset is
// an administrative, rare operation.
func (h *APIHandler) ResetSettingsHandler(c *gin.Context) {
	reset := 0
	for _, cat := range config.SettingsSchema {
		for _, spec := range cat.Settings {
			h.App.Settings.Set(spec.Key, spec.Default)
			reset++
		}
	}
	invalidated := h.App.InvalidateServices()
	c.JSON(http.StatusOK, gin.H{
		"reset":       reset,
		"invalidated": invalidated,
	})
}
