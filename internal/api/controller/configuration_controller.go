package controller

import (
	"net/http"

	"github.com/bassista/go_gym/internal/config"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse represents the configuration response structure for the API.
// The token is never exposed.
type ConfigurationResponse struct {
	RemoteConfigured bool   `json:"remoteConfigured"`
	Owner            string `json:"owner,omitempty"`
	Repo             string `json:"repo,omitempty"`
	Branch           string `json:"branch"`
	Path             string `json:"path"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration reports whether remote sync is active and where it writes.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	r := cc.config.Remote
	response := ConfigurationResponse{
		RemoteConfigured: r.IsConfigured(),
		Branch:           r.Branch,
		Path:             r.Path,
	}
	if response.RemoteConfigured {
		response.Owner = r.Owner
		response.Repo = r.Repo
	}
	c.JSON(http.StatusOK, response)
}
