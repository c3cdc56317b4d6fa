// Package api 引擎的 HTTP 与 websocket 接口，路由注册到 xgin
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xiaoshicae/xvision/agent"
	"github.com/xiaoshicae/xvision/pipeline"
	"github.com/xiaoshicae/xvision/vision"
	"github.com/xiaoshicae/xvision/xerror"
	"github.com/xiaoshicae/xvision/xutil"
)

type Server struct {
	agent    *agent.Agent
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func New(a *agent.Agent) *Server {
	return &Server{
		agent: a,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Register 作为 xgin.WithRouteRegister 的参数
func (s *Server) Register(e *gin.Engine) {
	if m := s.agent.Metrics(); m != nil {
		e.GET("/metrics", gin.WrapH(m.Handler()))
	}
	e.GET("/ws/frames", s.streamFrames)

	g := e.Group("/api")
	g.GET("/capabilities", s.capabilities)
	g.GET("/window", s.windowInfo)
	g.POST("/window/focus", s.focusWindow)
	g.GET("/frame", s.frame)

	g.POST("/session/launch", s.launch)
	g.POST("/session/close", s.closeSession)

	g.POST("/vision/template", s.findTemplate)
	g.POST("/vision/color", s.findColor)
	g.POST("/vision/click", s.clickTemplate)
	g.POST("/vision/wait", s.waitForTemplate)
	g.POST("/vision/verify", s.verify)

	g.POST("/pipeline/run", s.runPipeline)
	g.POST("/pipeline/run-file", s.runPipelineFile)
	g.POST("/pipeline/test", s.runPipelineTest)
	g.GET("/pipeline/scan", s.scanPipelines)

	g.POST("/stress", s.stress)

	g.POST("/ai/pipeline", s.generatePipeline)
	g.POST("/ai/command", s.aiCommand)

	g.GET("/pipelines", s.listPipelines)
	g.GET("/pipelines/:name", s.getPipeline)
	g.PUT("/pipelines/:name", s.savePipeline)
	g.DELETE("/pipelines/:name", s.deletePipeline)
	g.POST("/pipelines/:name/run", s.runStoredPipeline)
}

// Close 断开所有 websocket 连接，作为 xgin.WithStopFunc 的参数
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"), deadline())
		_ = conn.Close()
		delete(s.conns, conn)
	}
}

func (s *Server) capabilities(c *gin.Context) {
	ok(c, s.agent.GetVisionCapabilities())
}

func (s *Server) windowInfo(c *gin.Context) {
	info, err := s.agent.GetWindowInfo(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, info)
}

type focusRequest struct {
	Title string `json:"title"`
}

func (s *Server) focusWindow(c *gin.Context) {
	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFail(c, err)
		return
	}
	w, err := s.agent.FocusTargetWindow(c.Request.Context(), req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"success": true, "window": w})
}

// parseRegion x,y,w,h
func parseRegion(s string) (*vision.Rect, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	v := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, xerror.Config("api", "region", "region [%s] must be x,y,w,h", s)
		}
		v = append(v, n)
	}
	r, valid := vision.RectFromSlice(v)
	if !valid {
		return nil, xerror.Config("api", "region", "region [%s] must be x,y,w,h", s)
	}
	return &r, nil
}

func (s *Server) frame(c *gin.Context) {
	region, err := parseRegion(c.Query("region"))
	if err != nil {
		fail(c, err)
		return
	}
	f, err := s.agent.GetScreenFrame(c.Request.Context(), region)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, f)
}

func (s *Server) launch(c *gin.Context) {
	info, err := s.agent.Launch(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"success": true, "pid": info.PID, "path": info.Path, "already_running": info.AlreadyRunning})
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.agent.Close(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"success": true, "message": "应用已关闭"})
}

func (s *Server) findTemplate(c *gin.Context) {
	var q agent.TemplateQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.FindTemplate(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) findColor(c *gin.Context) {
	var q agent.ColorQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.FindColor(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) clickTemplate(c *gin.Context) {
	var q agent.ClickQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.ClickTemplate(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) waitForTemplate(c *gin.Context) {
	var q agent.WaitQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.WaitForTemplate(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

type verifyRequest struct {
	Pattern string `json:"pattern"`
}

func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFail(c, err)
		return
	}
	v, err := s.agent.VerifyVisualResult(c.Request.Context(), req.Pattern)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, v)
}

type runRequest struct {
	Config      map[string]any `json:"config" binding:"required"`
	Entry       string         `json:"entry" binding:"required"`
	ResourceDir string         `json:"resource_dir"`
}

// runPipeline 运行失败也返回 200，失败原因在结果的 error 中
func (s *Server) runPipeline(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.RunPipelineDocument(c.Request.Context(), req.Config, req.Entry, req.ResourceDir)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

type runFileRequest struct {
	Path        string `json:"path" binding:"required"`
	Entry       string `json:"entry" binding:"required"`
	ResourceDir string `json:"resource_dir"`
}

func (s *Server) runPipelineFile(c *gin.Context) {
	var req runFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.RunPipelineFromFile(c.Request.Context(), req.Path, req.Entry, req.ResourceDir)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) runPipelineTest(c *gin.Context) {
	var req agent.TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.RunPipelineTest(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) scanPipelines(c *gin.Context) {
	ok(c, s.agent.ScanPipelineTests(c.Request.Context(), c.Query("dir")))
}

type stressRequest struct {
	Iterations int   `json:"iterations" binding:"required,min=1,max=100"`
	Seed       int64 `json:"seed"`
}

func (s *Server) stress(c *gin.Context) {
	req := stressRequest{Iterations: 10}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindFail(c, err)
		return
	}
	run, err := s.agent.RunStressTest(c.Request.Context(), req.Iterations, req.Seed)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"success": true, "total_iterations": run.TotalIterations, "successful": run.Successful,
		"failed": run.Failed, "logs": run.Logs, "cost_ms": run.CostMs})
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Name   string `json:"test_name"`
}

func (s *Server) generatePipeline(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	g, err := s.agent.GeneratePipeline(c.Request.Context(), req.Prompt, req.Name)
	if err != nil {
		if g != nil && g.RawResponse != "" {
			c.AbortWithStatusJSON(statusOf(err), gin.H{"success": false, "error": pipeline.ErrorOf(err), "raw_response": g.RawResponse})
			return
		}
		fail(c, err)
		return
	}
	ok(c, g)
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

func (s *Server) aiCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.ExecuteAICommand(c.Request.Context(), req.Command)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (s *Server) listPipelines(c *gin.Context) {
	recs, err := s.agent.ListPipelines(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, recs)
}

func (s *Server) getPipeline(c *gin.Context) {
	rec, err := s.agent.GetPipeline(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

// savePipeline 请求体为文档原文，?format=yaml 或 yaml content-type 按 YAML 解析
func (s *Server) savePipeline(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, xerror.Config("api", "savePipeline", "read body failed, err=[%v]", err))
		return
	}
	format := pipeline.FormatJSON
	if strings.EqualFold(c.Query("format"), "yaml") || strings.Contains(c.ContentType(), "yaml") {
		format = pipeline.FormatYAML
	}
	rec, err := s.agent.SavePipeline(c.Request.Context(), c.Param("name"), body, format)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func (s *Server) deletePipeline(c *gin.Context) {
	if err := s.agent.DeletePipeline(c.Request.Context(), c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

type runStoredRequest struct {
	Entry       string `json:"entry" binding:"required"`
	ResourceDir string `json:"resource_dir"`
}

func (s *Server) runStoredPipeline(c *gin.Context) {
	var req runStoredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	res, err := s.agent.RunStoredPipeline(c.Request.Context(), c.Param("name"), req.Entry,
		xutil.GetOrDefault(req.ResourceDir, s.agent.Config().ResourceDir))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}
