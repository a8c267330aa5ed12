package api

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewServer 注册 REST 路由和 /graphql
func NewServer(handlers *Handlers, schema *graphql.Schema) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	setupRoutes(e, handlers, schema)
	return e
}

func setupRoutes(e *echo.Echo, handlers *Handlers, schema *graphql.Schema) {
	e.POST("/entry", handlers.Entry)
	e.POST("/exit", handlers.Exit)

	e.GET("/tickets", handlers.OpenTickets)
	e.GET("/tickets/:ticketId", handlers.GetTicket)

	// handler会解析请求，执行对应的GraphQL操作，并返回结果
	gh := handler.New(&handler.Config{
		Schema: schema,
		Pretty: true,
	})
	e.Any("/graphql", echo.WrapHandler(gh))
}
