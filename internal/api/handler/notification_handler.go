package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/d60-Lab/course-forum/pkg/response"
)

type scheduleRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

// ScheduleNotification 为一条消息登记通知派发（编辑后重新触发也走这里）
// @Summary 登记通知派发
// @Tags 通知
// @Accept json
// @Produce json
// @Param request body scheduleRequest true "消息ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/notifications/schedule [post]
func (h *Handler) ScheduleNotification(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return h.scheduler.Schedule(c.Request.Context(), tx, req.MessageID)
	})
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// QueueStats 队列观测：未认领 / 已认领 / 外发深度
// @Summary 通知队列状态
// @Tags 通知
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/stats [get]
func (h *Handler) QueueStats(c *gin.Context) {
	ctx := c.Request.Context()
	pending, err := h.jobs.CountPending(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	claimed, err := h.jobs.CountClaimed(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	queued, err := h.ledger.CountEmailQueued(ctx)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{
		"pending_jobs": pending,
		"claimed_jobs": claimed,
		"email_queued": queued,
	})
}

// InvalidateRosterCache 清除某课程的花名册缓存（选课或偏好变更后调用）
// @Summary 清除花名册缓存
// @Tags 通知
// @Param course_id path string true "课程ID"
// @Success 200 {object} response.Response
// @Router /api/v1/courses/{course_id}/roster-cache [delete]
func (h *Handler) InvalidateRosterCache(c *gin.Context) {
	courseID := c.Param("course_id")
	if h.roster != nil {
		if err := h.roster.Invalidate(c.Request.Context(), courseID); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.Success(c, nil)
}
