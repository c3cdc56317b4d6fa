package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiaoshicae/xvision/xlog"
)

const maxStackSize = 16384

// GinXRecoverMiddleware panic recover 中间件，recoveryFunc 为空时返回 500
func GinXRecoverMiddleware(recoveryFunc gin.RecoveryFunc) gin.HandlerFunc {
	if recoveryFunc == nil {
		recoveryFunc = defaultHandleRecovery
	}
	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			brokenPipe := isBrokenPipe(err)
			xlog.Error(c.Request.Context(), "panic recover, err=[%v]", err,
				xlog.KV("panic_brokenPipe", brokenPipe),
				xlog.KV("panic_stack", string(stack())),
			)
			if brokenPipe {
				_ = c.Error(err.(*net.OpError)) //nolint: errcheck
				c.Abort()
				return
			}
			if c.Writer.Written() {
				c.Abort()
				return
			}
			recoveryFunc(c, err)
		}()
		c.Next()
	}
}

func isBrokenPipe(err any) bool {
	ne, ok := err.(*net.OpError)
	if !ok {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne, &se) {
		return false
	}
	s := strings.ToLower(se.Error())
	return strings.Contains(s, "broken pipe") || strings.Contains(s, "connection reset by peer")
}

func defaultHandleRecovery(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "InternalError"})
}

func stack() []byte {
	buf := make([]byte, maxStackSize)
	n := runtime.Stack(buf, false)
	return buf[:n]
}
