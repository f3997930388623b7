// internal/api/draft_handlers.go
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/services"
)

// SessionResponse 会话信息
type SessionResponse struct {
	Viewer    models.Viewer `json:"viewer"`
	View      services.View `json:"view"`
	SignupURL string        `json:"signup_url"`
}

// Session 返回当前访问者及应显示的视图
func (h *Handler) Session(c *gin.Context) {
	viewer := ViewerFromContext(c)
	h.Response.Success(c, SessionResponse{
		Viewer:    viewer,
		View:      services.SelectView(viewer),
		SignupURL: h.SignupPath,
	})
}

// GetDraft 获取当前草稿
func (h *Handler) GetDraft(c *gin.Context) {
	d, err := h.Drafts.Get(ViewerFromContext(c).UserID)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, d)
}

type updateFieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

// UpdateField 更新字段组中的某个位置
func (h *Handler) UpdateField(c *gin.Context) {
	group := models.FieldGroup(c.Param("group"))
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Response.BadRequest(c, ErrorInvalidIndex, "index must be an integer", c.Param("index"))
		return
	}

	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "value is required", err.Error())
		return
	}

	d, err := h.Drafts.UpdateField(ViewerFromContext(c).UserID, group, index, *req.Value)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, d)
}

// AppendField 在列表字段组末尾追加空条目
func (h *Handler) AppendField(c *gin.Context) {
	group := models.FieldGroup(c.Param("group"))

	d, err := h.Drafts.AppendField(ViewerFromContext(c).UserID, group)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, d)
}

// SubmitDraft 提交当前草稿
func (h *Handler) SubmitDraft(c *gin.Context) {
	result, err := h.Drafts.Submit(c.Request.Context(), ViewerFromContext(c).UserID)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result, "Article Submitted")
}

// ResetDraft 丢弃当前草稿
func (h *Handler) ResetDraft(c *gin.Context) {
	if err := h.Drafts.Reset(ViewerFromContext(c).UserID); err != nil {
		h.Response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
