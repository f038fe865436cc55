package node

import "strings"

// responseFormatMarkers Provider 拒绝结构化输出参数时错误信息中常见的片段
var responseFormatMarkers = [][]string{
	{"response_format"},
	{"json_schema"},
	{"response_schema"},
	{"response_mime_type"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
	{"failed to parse"},
}

// IsResponseFormatUnsupportedError 判断错误是否由 Provider 不支持 response_format 引起，
// 命中时调用方应退回纯提示词模式重试
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range responseFormatMarkers {
		if containsAll(msg, marker) {
			return true
		}
	}
	return false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
