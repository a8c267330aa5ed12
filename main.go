package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"ParkMe/api"
	"ParkMe/config"
	"ParkMe/control"
	"ParkMe/db"
	"ParkMe/graphql"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

func main() {
	conf := config.GetGlobalConf()

	// 存储在整个进程内只创建一次，注入到各个服务
	store, err := db.OpenTicketStore(context.Background(), conf)
	if err != nil {
		log.Fatalf("failed to open ticket store, error: %v", err)
	}

	entryService := control.NewEntryService(store)
	exitService := control.NewExitService(store)
	queryService := control.NewQueryService(store)

	schema, err := graphql.NewGraphQLSchema(entryService, exitService, queryService)
	if err != nil {
		log.Fatalf("failed to create new schema, error: %v", err)
	}

	if addr := conf.ServerConfig.PprofAddr; addr != "" {
		go func() {
			runtime.SetBlockProfileRate(1)     // 开启对阻塞操作的跟踪，block
			runtime.SetMutexProfileFraction(1) // 开启对锁调用的跟踪，mutex
			log.Infof("pprof is running on %s", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.WithError(err).Warn("pprof stopped")
			}
		}()
	}

	handlers := api.NewHandlers(entryService, exitService, queryService, conf.ParkingConfig.AlreadyClosedStatus)
	e := api.NewServer(handlers, &schema)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	if err := serve(e, store, conf.ServerConfig.Addr, conf.ServerConfig.ShutdownTimeout, quit); err != nil {
		log.WithError(err).Error("server failed to start")
		os.Exit(1)
	}
}

// serve 启动服务并阻塞到收到退出信号或启动失败，两种情况都会关闭服务和存储
func serve(e *echo.Echo, store db.TicketStore, addr string, timeout time.Duration, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Now server is running on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var startErr error
	select {
	case <-quit:
		log.Info("shutting down")
	case startErr = <-serverErr:
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if err := store.Close(); err != nil {
		log.WithError(err).Error("close ticket store")
	}
	return startErr
}
