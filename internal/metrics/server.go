package metrics

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"time"
)

// StartAsync 在 listenAddr 上暴露 /debug/vars 和 /debug/pprof/*。
// 监听失败同步返回错误；启动后随 ctx 结束优雅关闭。
// 这个端口只应绑定 localhost 或内网地址。
func StartAsync(ctx context.Context, listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	// 挂到私有 mux 而不是 DefaultServeMux，避免全局注册副作用
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Handler: mux}
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = err // 诊断端口退出不影响主流程
		}
	}()
	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(stopCtx)
	}()
	return nil
}
