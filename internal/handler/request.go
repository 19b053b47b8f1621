package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wifi-portal/request-service/internal/errs"
	"github.com/wifi-portal/request-service/internal/kafka"
	"github.com/wifi-portal/request-service/internal/model"
	"github.com/wifi-portal/request-service/internal/service"
)

type RequestHandler struct {
	svc      *service.RequestService
	producer kafka.RequestEventProducer
}

func NewRequestHandler(svc *service.RequestService, producer kafka.RequestEventProducer) *RequestHandler {
	return &RequestHandler{svc: svc, producer: producer}
}

type createRequestBody struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	RoomNumber  string `json:"room_number" binding:"required"`
	DeviceType  string `json:"device_type" binding:"required,oneof=smartphone laptop tablet other"`
	IssueType   string `json:"issue_type" binding:"required,oneof=connect slow disconnect login other"`
	Description string `json:"description"`
}

// Create — гостевая подача заявки. Возвращает созданную заявку с
// трекинг-кодом; исчерпание суффиксов отдаём как 409, клиент может повторить.
func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	r := &model.WifiRequest{
		Name:        req.Name,
		Email:       req.Email,
		RoomNumber:  req.RoomNumber,
		DeviceType:  model.DeviceType(req.DeviceType),
		IssueType:   model.IssueType(req.IssueType),
		Description: req.Description,
	}
	if err := h.svc.Create(c.Request.Context(), r); err != nil {
		if errors.Is(err, errs.ErrTrackingIDExhausted) {
			c.JSON(http.StatusConflict, gin.H{"error": "could not allocate tracking id, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}
	if h.producer != nil {
		h.producer.ProduceRequestEvent(c.Request.Context(), "request_created", map[string]interface{}{
			"request_id":  r.ID,
			"room_number": r.RoomNumber,
			"issue_type":  string(r.IssueType),
			"device_type": string(r.DeviceType),
			"status":      string(r.Status),
		})
	}
	c.JSON(http.StatusCreated, r)
}

// Get — лукап по трекинг-коду, с комментариями.
func (h *RequestHandler) Get(c *gin.Context) {
	r, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, errs.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

// parseDateRange читает необязательные from/to (RFC3339 или YYYY-MM-DD).
func parseDateRange(c *gin.Context) (from, to *time.Time, ok bool) {
	parse := func(v string) (*time.Time, bool) {
		if v == "" {
			return nil, true
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t, true
			}
		}
		return nil, false
	}
	from, ok = parse(c.Query("from"))
	if !ok {
		return nil, nil, false
	}
	to, ok = parse(c.Query("to"))
	if !ok {
		return nil, nil, false
	}
	return from, to, true
}

// List — стаф-список с фильтрами по статусу, «прошедшим эскалацию» и дате.
func (h *RequestHandler) List(c *gin.Context) {
	var f service.ListFilter
	if v := c.Query("status"); v != "" {
		status := model.RequestStatus(v)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		f.Status = status
	}
	f.EscalatedEver = c.Query("escalated_ever") == "true"
	from, to, ok := parseDateRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range"})
		return
	}
	f.From, f.To = from, to
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			f.Offset = parsed
		}
	}

	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests": items,
		"total":    total,
	})
}

// Stats — счётчики дашборда в необязательном диапазоне дат.
func (h *RequestHandler) Stats(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date range"})
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type updateStatusBody struct {
	Status   string `json:"status" binding:"required"`
	UserName string `json:"user_name"`
	Comment  string `json:"comment"`
}

// UpdateStatus — ручной переход персонала, опционально с комментарием.
// В ответе TransitionResult: вызывающий видит partial success (переход прошёл,
// комментарий нет) явно, а не через проглоченную ошибку.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req updateStatusBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	to := model.RequestStatus(req.Status)
	if !to.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	userName := req.UserName
	if userName == "" {
		userName = "IT Staff"
	}

	res, err := h.svc.Transition(c.Request.Context(), id, to, model.ActorStaff, userName, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		case errors.Is(err, errs.ErrInvalidTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transition not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	if res.Transitioned && h.producer != nil {
		h.producer.ProduceRequestEvent(c.Request.Context(), "status_changed", map[string]interface{}{
			"request_id":    id,
			"status":        string(to),
			"was_escalated": to == model.StatusEscalated,
		})
	}
	c.JSON(http.StatusOK, res)
}

type addCommentBody struct {
	UserName    string `json:"user_name" binding:"required"`
	CommentText string `json:"comment_text" binding:"required"`
}

// AddComment — комментарий гостя (из трекера) или персонала.
func (h *RequestHandler) AddComment(c *gin.Context) {
	id := c.Param("id")
	var req addCommentBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if _, err := h.svc.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, errs.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AddComment(c.Request.Context(), id, req.UserName, req.CommentText); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add comment"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

// ListComments — трейл заявки по возрастанию времени.
func (h *RequestHandler) ListComments(c *gin.Context) {
	items, err := h.svc.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": items})
}
