// internal/models/page.go
package models

// Viewer 当前访问者
type Viewer struct {
	UserID        string `json:"user_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// InfoCard 页面底部的静态介绍卡片
type InfoCard struct {
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PageContent 页面静态文案
type PageContent struct {
	Heading     string     `json:"heading"`
	Intro       string     `json:"intro"`
	FormHeading string     `json:"form_heading"`
	CTAHeading  string     `json:"cta_heading"`
	CTABody     string     `json:"cta_body"`
	CTAButton   string     `json:"cta_button"`
	Cards       []InfoCard `json:"cards"`
}
