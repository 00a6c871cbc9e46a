package models

// ChatRequest /api/ai_chat 请求体
type ChatRequest struct {
	UserQuestion string     `json:"userQuestion,omitempty" example:"近期有哪些关税相关的新闻？"`
	Task         string     `json:"task,omitempty" example:"news_summary"`
	NewsItems    []NewsItem `json:"newsItems,omitempty"`
	// NewsTitles 旧版摘要请求只携带标题
	NewsTitles []string `json:"newsTitles,omitempty"`
}

// TaskNewsSummary 摘要模式的task取值
const TaskNewsSummary = "news_summary"

// APIResponse 通用API响应
type APIResponse struct {
	Code    int         `json:"code" example:"0"`
	Message string      `json:"message" example:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 流开启前的错误响应
type ErrorResponse struct {
	Error string `json:"error" example:"LLM_API_KEY missing on server."`
	Code  int    `json:"code" example:"2001"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	OK bool `json:"ok" example:"true"`
}
