package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/store"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xgin/trans"
	"github.com/xiaoshicae/xvision/xlog"
)

// errorBody 失败响应，error 与流水线结果中的分类错误同构
type errorBody struct {
	Success bool                  `json:"success"`
	Error   *pipeline.ResultError `json:"error"`
}

func ok(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

// statusOf 忙 409，配置错误 400，不存在 404，取消 499，下发失败 502，其余 500
func statusOf(err error) int {
	switch {
	case errors.Is(err, agent.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	switch xerror.KindOf(err) {
	case xerror.KindConfiguration:
		return http.StatusBadRequest
	case xerror.KindCancelled:
		return 499
	case xerror.KindDispatch:
		return http.StatusBadGateway
	case xerror.KindNodeTimeout, xerror.KindRunTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		xlog.Error(c.Request.Context(), "%s %s failed, err=[%v]", c.Request.Method, c.FullPath(), err)
	}
	body := errorBody{Error: pipeline.ErrorOf(err)}
	if errors.Is(err, agent.ErrBusy) {
		body.Error.Kind = "Busy"
	}
	c.AbortWithStatusJSON(status, body)
}

// bindFail 参数校验失败，错误信息按需翻译为中文
func bindFail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: &pipeline.ResultError{
		Kind:    xerror.KindConfiguration,
		Message: trans.ToZHErrMsg(err),
	}})
}
