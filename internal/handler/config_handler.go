package handler

import "net/http"

// ClientConfig tells the browser whether to render the payment widget.
type ClientConfig struct {
	StripePublicKey string `json:"stripePublicKey"`
	Development     bool   `json:"development"`
}

// ConfigHandler serves public client settings.
type ConfigHandler struct {
	cfg ClientConfig
}

// NewConfigHandler creates a ConfigHandler. development is true when no
// payment provider secret is configured.
func NewConfigHandler(publicKey string, development bool) *ConfigHandler {
	return &ConfigHandler{cfg: ClientConfig{StripePublicKey: publicKey, Development: development}}
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg)
}
