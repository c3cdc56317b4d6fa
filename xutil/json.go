package xutil

import (
	"encoding/json"
)

// ToJsonString 转换为json字符串
func ToJsonString(v any) string {
	vv, _ := json.Marshal(v)
	return string(vv)
}

// ToJsonStringIndent 转换为json字符串，两空格缩进
func ToJsonStringIndent(v any) string {
	vv, e := json.MarshalIndent(v, "", "  ")
	if e != nil {
		ErrorIfEnableDebug("ToJsonStringIndent failed, err=[%v]", e)
		return ""
	}
	return string(vv)
}
