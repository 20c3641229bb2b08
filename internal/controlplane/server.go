// Package controlplane 暴露一个小的运维 HTTP 面：
// 查看引擎状态和热更新可变配置。
package controlplane

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/strategies/activitysim"
)

var log = logrus.WithField("component", "controlplane")

// StatusProvider 状态来源
type StatusProvider interface {
	Snapshot(ctx context.Context) activitysim.Status
}

// ConfigUpdater 配置热更新入口
type ConfigUpdater interface {
	UpdateConfig(u activitysim.UpdatableConfig) error
}

type Server struct {
	provider StatusProvider
	updater  ConfigUpdater
}

func New(provider StatusProvider, updater ConfigUpdater) *Server {
	return &Server{provider: provider, updater: updater}
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/config", s.handleConfigUpdate)
	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	c.JSON(http.StatusOK, s.provider.Snapshot(ctx))
}

func (s *Server) handleConfigUpdate(c *gin.Context) {
	var u activitysim.UpdatableConfig
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.updater.UpdateConfig(u); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// StartAsync 启动控制面（非阻塞），ctx.Done() 时优雅关闭。
func StartAsync(ctx context.Context, listenAddr string, provider StatusProvider, updater ConfigUpdater) error {
	srv := &http.Server{Addr: listenAddr, Handler: New(provider, updater).Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("控制面退出: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Infof("控制面已启动: http://%s/api/status", listenAddr)
	return nil
}
