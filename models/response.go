package models

// 响应码定义
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (1000-1999)
	CodeInvalidParams = 1000 // 无效的参数
	CodeMissingParams = 1001 // 缺少必要参数
	CodeBodyTooLarge  = 1002 // 请求体过大
	CodeNotFound      = 1004 // 资源不存在
	CodeIngestRunning = 1009 // 入库任务正在运行

	// 服务端错误 (2000-2999)
	CodeServerError        = 2000 // 服务器内部错误
	CodeConfigError        = 2001 // 服务端凭证缺失
	CodeStoreError         = 2004 // 新闻库错误
	CodeThirdPartyAPIError = 2005 // 第三方API错误
	CodeUpstreamTimeout    = 2006 // 上游超时
)

// 错误码对应的消息
var CodeMessages = map[int]string{
	CodeSuccess:            "success",
	CodeInvalidParams:      "无效的参数",
	CodeMissingParams:      "缺少必要参数",
	CodeBodyTooLarge:       "请求体过大",
	CodeNotFound:           "Not found",
	CodeIngestRunning:      "入库任务正在运行",
	CodeServerError:        "服务器内部错误",
	CodeConfigError:        "服务端配置缺失",
	CodeStoreError:         "新闻库错误",
	CodeThirdPartyAPIError: "第三方API错误",
	CodeUpstreamTimeout:    "上游服务超时",
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Code:    CodeSuccess,
		Message: CodeMessages[CodeSuccess],
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应，message为空时使用错误码默认消息
func NewErrorResponse(code int, message string) ErrorResponse {
	if message == "" {
		var ok bool
		if message, ok = CodeMessages[code]; !ok {
			message = "未知错误"
		}
	}
	return ErrorResponse{Code: code, Error: message}
}
