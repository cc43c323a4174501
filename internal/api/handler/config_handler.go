package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/api/dto"
	"github.com/martijn/harvestd/internal/core/service"
)

// maxConfigBytes bounds PUT /config bodies
const maxConfigBytes = 1 << 20

type ConfigHandler struct {
	configService *service.ConfigService
}

func NewConfigHandler(configService *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
	}
}

// GetConfig handles GET /config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	document, err := h.configService.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", document)
}

// UpdateConfig handles PUT /config
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxConfigBytes)
	body, err := c.GetRawData()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.configService.Replace(c.Request.Context(), body); err != nil {
		respondError(c, err)
		return
	}

	h.GetConfig(c)
}

// GetKeywords handles GET /keywords
func (h *ConfigHandler) GetKeywords(c *gin.Context) {
	keywords, err := h.configService.Keywords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.KeywordsResponse{Keywords: keywords})
}

// UpdateKeywords handles PUT /keywords
func (h *ConfigHandler) UpdateKeywords(c *gin.Context) {
	var req dto.KeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	keywords, err := h.configService.ReplaceKeywords(c.Request.Context(), req.Keywords)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.KeywordsResponse{Keywords: keywords})
}
