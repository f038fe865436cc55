package node

import "strings"

// ExtractJSONObject 返回模型输出中第一个括号配平的 JSON 对象或数组。
// 字符串字面量中的括号不参与配平；找不到完整值时原样返回去空白后的输入。
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw
}
