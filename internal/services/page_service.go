// internal/services/page_service.go
package services

import "github.com/Corphon/LocalVoice/internal/models"

// View 页面主体视图
type View string

const (
	ViewForm View = "form" // 已登录：文章编辑表单
	ViewCTA  View = "cta"  // 未登录：注册引导
)

// SelectView 根据访问者是否登录选择视图
func SelectView(v models.Viewer) View {
	if v.Authenticated && v.UserID != "" {
		return ViewForm
	}
	return ViewCTA
}

// PageService 提供页面静态文案
type PageService struct {
	content models.PageContent
}

// NewPageService 创建页面服务
func NewPageService() *PageService {
	return &PageService{content: models.PageContent{
		Heading:     "LocalVoice - Publish Your Voice",
		Intro:       "Welcome to LocalVoice, a platform where local voices are heard. Share your thoughts, news, and insights with your community.",
		FormHeading: "Create Your Article",
		CTAHeading:  "Join Our Community",
		CTABody:     "Only registered users can publish articles. Join our platform and be part of the local voice revolution.",
		CTAButton:   "Get Started Today",
		Cards: []models.InfoCard{
			{
				Icon:  "pen-tool",
				Title: "Create Content",
				Body:  "Share your local insights, stories, and news with the community. It’s a place for everyone to be heard.",
			},
			{
				Icon:  "users",
				Title: "Engage with Community",
				Body:  "Join the conversation! Comment, vote, and interact with other local contributors to make a difference.",
			},
			{
				Icon:  "message-circle",
				Title: "Spread the Word",
				Body:  "Share your articles on social media and let others know about the important issues affecting your community.",
			},
		},
	}}
}

// Content 返回文案副本
func (s *PageService) Content() models.PageContent {
	c := s.content
	c.Cards = append([]models.InfoCard(nil), s.content.Cards...)
	return c
}
