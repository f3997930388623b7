// internal/models/article_draft.go
package models

import "time"

// FieldGroup 表单字段组名称
type FieldGroup string

const (
	FieldTitle      FieldGroup = "title"
	FieldContent    FieldGroup = "content"
	FieldCategories FieldGroup = "categories"
	FieldImageURLs  FieldGroup = "imageUrls"
	FieldVideoURLs  FieldGroup = "videoUrls"
)

// ListGroups 可重复添加输入框的字段组，按页面顺序排列
var ListGroups = []FieldGroup{FieldCategories, FieldImageURLs, FieldVideoURLs}

// ParseFieldGroup 解析字段组名称，大小写需完全一致
func ParseFieldGroup(name string) (FieldGroup, bool) {
	switch g := FieldGroup(name); g {
	case FieldTitle, FieldContent, FieldCategories, FieldImageURLs, FieldVideoURLs:
		return g, true
	default:
		return "", false
	}
}

// IsList 是否为列表型字段组
func (g FieldGroup) IsList() bool {
	return g == FieldCategories || g == FieldImageURLs || g == FieldVideoURLs
}

// ArticleDraft 未保存的文章草稿，只存在于一次编辑会话中
type ArticleDraft struct {
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Categories []string  `json:"categories"`
	ImageURLs  []string  `json:"imageUrls"`
	VideoURLs  []string  `json:"videoUrls"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
