package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wifi-portal/request-service/internal/service"
)

type SettingsHandler struct {
	svc *service.SettingsService
}

func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

type settingsResponse struct {
	Emails            []string `json:"emails"`
	PendingThreshold  int      `json:"pending_threshold"`
	ProgressThreshold int      `json:"progress_threshold"`
}

// Get возвращает синглтон настроек, создавая дефолтный при первом обращении.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.svc.GetOrCreate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	emails := settings.EmailList()
	if emails == nil {
		emails = []string{}
	}
	c.JSON(http.StatusOK, settingsResponse{
		Emails:            emails,
		PendingThreshold:  settings.PendingMinutes(),
		ProgressThreshold: settings.ProgressMinutes(),
	})
}

type saveSettingsBody struct {
	Emails            []string `json:"emails" binding:"required,dive,email"`
	PendingThreshold  int      `json:"pending_threshold" binding:"gte=0"`
	ProgressThreshold int      `json:"progress_threshold" binding:"gte=0"`
}

// Save обновляет список адресатов и пороги эскалации.
func (h *SettingsHandler) Save(c *gin.Context) {
	var req saveSettingsBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	settings, err := h.svc.Save(c.Request.Context(), req.Emails, req.PendingThreshold, req.ProgressThreshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse{
		Emails:            req.Emails,
		PendingThreshold:  settings.PendingMinutes(),
		ProgressThreshold: settings.ProgressMinutes(),
	})
}
