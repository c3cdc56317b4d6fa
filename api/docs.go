package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/metrics": {
            "get": {"tags": ["system"], "summary": "Prometheus 指标", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/ws/frames": {
            "get": {"tags": ["system"], "summary": "websocket 推送 PNG 二进制帧", "parameters": [{"type": "integer", "name": "interval", "in": "query", "description": "毫秒"}, {"type": "string", "name": "region", "in": "query", "description": "x,y,w,h"}], "responses": {"101": {"description": "Switching Protocols"}}}
        },
        "/api/capabilities": {
            "get": {"tags": ["vision"], "summary": "识别与动作能力", "responses": {"200": {"description": "OK"}}}
        },
        "/api/window": {
            "get": {"tags": ["session"], "summary": "目标窗口信息", "responses": {"200": {"description": "OK"}, "500": {"$ref": "#/responses/Error"}}}
        },
        "/api/window/focus": {
            "post": {"tags": ["session"], "summary": "聚焦窗口", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "500": {"$ref": "#/responses/Error"}}}
        },
        "/api/frame": {
            "get": {"tags": ["vision"], "summary": "当前帧 PNG", "produces": ["image/png"], "responses": {"200": {"description": "OK"}, "500": {"$ref": "#/responses/Error"}}}
        },
        "/api/session/launch": {
            "post": {"tags": ["session"], "summary": "启动被测应用", "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/api/session/close": {
            "post": {"tags": ["session"], "summary": "关闭被测应用", "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/api/vision/template": {
            "post": {"tags": ["vision"], "summary": "找图", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TemplateQuery"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/api/vision/color": {
            "post": {"tags": ["vision"], "summary": "找色", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ColorQuery"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/api/vision/click": {
            "post": {"tags": ["vision"], "summary": "找图并点击", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClickQuery"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}, "502": {"$ref": "#/responses/Error"}}}
        },
        "/api/vision/wait": {
            "post": {"tags": ["vision"], "summary": "等待模板出现", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WaitQuery"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}
        },
        "/api/vision/verify": {
            "post": {"tags": ["vision"], "summary": "校验画面", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/pipeline/run": {
            "post": {"tags": ["pipeline"], "summary": "运行流水线文档，失败也返回 200", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RunRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/api/pipeline/run-file": {
            "post": {"tags": ["pipeline"], "summary": "运行流水线文件", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/api/pipeline/test": {
            "post": {"tags": ["pipeline"], "summary": "启动应用后运行流水线", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/api/pipeline/scan": {
            "get": {"tags": ["pipeline"], "summary": "扫描目录中的流水线", "parameters": [{"type": "string", "name": "dir", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/api/stress": {
            "post": {"tags": ["pipeline"], "summary": "随机点击压测", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/api/ai/pipeline": {
            "post": {"tags": ["ai"], "summary": "由描述生成流水线", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "500": {"$ref": "#/responses/Error"}}}
        },
        "/api/ai/command": {
            "post": {"tags": ["ai"], "summary": "执行自然语言命令", "parameters": [{"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "500": {"$ref": "#/responses/Error"}}}
        },
        "/api/pipelines": {
            "get": {"tags": ["library"], "summary": "已保存的流水线", "responses": {"200": {"description": "OK"}}}
        },
        "/api/pipelines/{name}": {
            "get": {"tags": ["library"], "summary": "读取流水线", "parameters": [{"$ref": "#/parameters/Name"}], "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/responses/Error"}}},
            "put": {"tags": ["library"], "summary": "保存流水线", "parameters": [{"$ref": "#/parameters/Name"}, {"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["library"], "summary": "删除流水线", "parameters": [{"$ref": "#/parameters/Name"}], "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/responses/Error"}}}
        },
        "/api/pipelines/{name}/run": {
            "post": {"tags": ["library"], "summary": "运行已保存的流水线", "parameters": [{"$ref": "#/parameters/Name"}, {"$ref": "#/parameters/Body"}], "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}}
        }
    },
    "parameters": {
        "Body": {"name": "body", "in": "body", "schema": {"type": "object"}},
        "Name": {"type": "string", "name": "name", "in": "path", "required": true}
    },
    "responses": {
        "Error": {"description": "分类错误", "schema": {"$ref": "#/definitions/ErrorBody"}}
    },
    "definitions": {
        "TemplateQuery": {
            "type": "object",
            "required": ["template"],
            "properties": {
                "template": {"type": "string"},
                "threshold": {"type": "number", "minimum": 0, "maximum": 1},
                "roi": {"type": "array", "items": {"type": "integer"}},
                "multi_scale": {"type": "boolean"}
            }
        },
        "ColorQuery": {
            "type": "object",
            "properties": {
                "lower": {"type": "array", "items": {"type": "integer"}},
                "upper": {"type": "array", "items": {"type": "integer"}},
                "roi": {"type": "array", "items": {"type": "integer"}},
                "color_space": {"type": "string", "enum": ["HSV", "RGB", "BGR"]},
                "min_count": {"type": "integer", "minimum": 0},
                "connected": {"type": "boolean"}
            }
        },
        "ClickQuery": {
            "allOf": [{"$ref": "#/definitions/TemplateQuery"}, {"type": "object", "properties": {"offset": {"type": "array", "items": {"type": "integer"}}}}]
        },
        "WaitQuery": {
            "allOf": [{"$ref": "#/definitions/TemplateQuery"}, {"type": "object", "properties": {"timeout": {"type": "integer"}, "interval": {"type": "integer"}}}]
        },
        "RunRequest": {
            "type": "object",
            "required": ["config", "entry"],
            "properties": {
                "config": {"type": "object"},
                "entry": {"type": "string"},
                "resource_dir": {"type": "string"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {
                    "type": "object",
                    "properties": {
                        "kind": {"type": "string"},
                        "message": {"type": "string"},
                        "node": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo 由 xgin.WithSwagger 挂载，Title 等字段在挂载时按 XGin.Swagger 配置填充
var SwaggerInfo = &swag.Spec{
	Version:          "",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "xvision",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
