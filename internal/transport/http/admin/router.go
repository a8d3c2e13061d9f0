package adminhttp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stacker/internal/agent"
	"stacker/internal/store/tradelog"
)

const commandTimeout = 15 * time.Second

// Router 把管理命令映射到 agent 的命令收件箱。
type Router struct {
	agent *agent.Agent
	logs  *tradelog.Store
}

func NewRouter(a *agent.Agent, logs *tradelog.Store) *Router {
	return &Router{agent: a, logs: logs}
}

func (r *Router) Register(g *gin.RouterGroup) {
	g.GET("/status", r.handleStatus)
	g.POST("/start", r.command(agent.CmdStart))
	g.POST("/stop", r.command(agent.CmdStop))
	g.POST("/decide", r.command(agent.CmdForceDecision))
	g.POST("/panic", r.command(agent.CmdPanic))
	g.POST("/panic/confirm", r.command(agent.CmdConfirmPanic))
	g.POST("/close-all", r.command(agent.CmdCloseAll))
	g.POST("/strategy", r.handleSwitchStrategy)
	g.POST("/profile/reload", r.command(agent.CmdReloadProfile))
	if r.logs != nil {
		g.GET("/decisions", r.handleDecisions)
		g.GET("/trades", r.handleTrades)
	}
}

func (r *Router) handleStatus(c *gin.Context) {
	res, err := r.send(c, agent.CmdStatus, "")
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res.Status)
}

func (r *Router) command(cmdType agent.CommandType) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := r.send(c, cmdType, "")
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if !res.OK {
			status = http.StatusConflict
		}
		c.JSON(status, res)
	}
}

func (r *Router) handleSwitchStrategy(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing strategy name"})
		return
	}
	res, err := r.send(c, agent.CmdSwitchStrategy, body.Name)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadRequest
	}
	c.JSON(status, res)
}

func (r *Router) handleDecisions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := r.logs.RecentDecisions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (r *Router) handleTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := r.logs.RecentTrades(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (r *Router) send(c *gin.Context, cmdType agent.CommandType, name string) (agent.CommandResult, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	return r.agent.Send(ctx, cmdType, name)
}
