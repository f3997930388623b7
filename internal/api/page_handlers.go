// internal/api/page_handlers.go
package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/LocalVoice/internal/errors"
	"github.com/Corphon/LocalVoice/internal/models"
	"github.com/Corphon/LocalVoice/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

const pageTemplate = "localvoice.html"

// loadTemplates 解析内嵌的页面模板
func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// fieldSection 表单中的一个列表字段组
type fieldSection struct {
	Group       models.FieldGroup
	Label       string
	InputType   string
	Placeholder string
	AddLabel    string
	Values      []string
}

// pageData 模板数据
type pageData struct {
	Content   models.PageContent
	ShowForm  bool
	Title     string
	Sections  []fieldSection
	Notice    string
	Error     string
	RequestID string
}

func buildSections(d models.ArticleDraft) []fieldSection {
	return []fieldSection{
		{models.FieldCategories, "Categories", "text", "Enter category", "Add Category", d.Categories},
		{models.FieldImageURLs, "Image URLs", "url", "Enter image URL", "Add Image URL", d.ImageURLs},
		{models.FieldVideoURLs, "Video URLs", "url", "Enter video URL", "Add Video URL", d.VideoURLs},
	}
}

func (h *Handler) renderPage(c *gin.Context, status int, viewer models.Viewer, notice, errMsg string) {
	data := pageData{
		Content:   h.Pages.Content(),
		ShowForm:  services.SelectView(viewer) == services.ViewForm,
		Notice:    notice,
		Error:     errMsg,
		RequestID: c.GetString(ctxRequestID),
	}
	if data.ShowForm {
		d, err := h.Drafts.Get(viewer.UserID)
		if err != nil {
			h.Response.FromError(c, err)
			return
		}
		data.Title = d.Title
		data.Sections = buildSections(d)
	}
	c.HTML(status, pageTemplate, data)
}

// IndexPage 渲染主页：登录用户看到编辑表单，其余看到注册引导
func (h *Handler) IndexPage(c *gin.Context) {
	h.renderPage(c, http.StatusOK, ViewerFromContext(c), "", "")
}

// SubmitForm 处理整表单提交：先写入各字段，再执行按钮对应的动作
func (h *Handler) SubmitForm(c *gin.Context) {
	viewer := ViewerFromContext(c)
	if services.SelectView(viewer) != services.ViewForm {
		h.renderPage(c, http.StatusUnauthorized, viewer, "", "Only registered users can publish articles.")
		return
	}

	if err := c.Request.ParseForm(); err != nil {
		h.renderPage(c, http.StatusBadRequest, viewer, "", "The form could not be read.")
		return
	}

	for _, name := range []string{"title", "categories", "imageUrls", "videoUrls"} {
		values, posted := c.Request.PostForm[name]
		if !posted {
			continue
		}
		group, _ := models.ParseFieldGroup(name)
		if !group.IsList() && len(values) > 1 {
			values = values[:1]
		}
		if _, err := h.Drafts.ApplyValues(viewer.UserID, group, values); err != nil {
			h.Logger.Warn("表单字段写入失败", map[string]interface{}{
				"user_id": viewer.UserID,
				"group":   name,
				"error":   err.Error(),
			})
			h.renderPage(c, apperrors.HTTPStatus(err), viewer, "", "The form is out of date, please reload the page.")
			return
		}
	}

	action := c.PostForm("action")
	switch {
	case action == "publish":
		result, err := h.Drafts.Submit(c.Request.Context(), viewer.UserID)
		if err != nil {
			h.renderPage(c, apperrors.HTTPStatus(err), viewer, "", "Publishing failed, please try again.")
			return
		}
		h.renderPage(c, http.StatusOK, viewer, "Article Submitted ("+result.ID+")", "")

	case strings.HasPrefix(action, "append:"):
		group, ok := models.ParseFieldGroup(strings.TrimPrefix(action, "append:"))
		if !ok {
			h.renderPage(c, http.StatusBadRequest, viewer, "", "Unknown field.")
			return
		}
		if _, err := h.Drafts.AppendField(viewer.UserID, group); err != nil {
			h.renderPage(c, apperrors.HTTPStatus(err), viewer, "", err.Error())
			return
		}
		h.renderPage(c, http.StatusOK, viewer, "", "")

	default:
		// 仅保存字段
		h.renderPage(c, http.StatusOK, viewer, "", "")
	}
}

// Join 跳转到外部注册页
func (h *Handler) Join(c *gin.Context) {
	h.Navigator.Navigate(c, h.SignupPath)
}
