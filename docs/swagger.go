package docs

// @title 跨境电商新闻问答 API
// @version 1.0
// @description 基于新闻库检索的问答与新闻摘要服务，答案以事件流返回
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8787
// @BasePath /
// @schemes http https
