package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wifi-portal/request-service/api"
	"github.com/wifi-portal/request-service/internal/handler"
)

// Deps — хендлеры, которые монтирует роутер.
type Deps struct {
	Request  *handler.RequestHandler
	Settings *handler.SettingsHandler
	Escalate *handler.EscalateHandler
}

func New(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", gin.WrapF(handler.Health))
	r.GET("/ready", gin.WrapF(handler.Ready))
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/") })
	r.GET("/swagger/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = "/swagger/index.html"
			c.Request.RequestURI = "/swagger/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	// Эндпоинт внешнего планировщика и ручного «проверить эскалации сейчас».
	r.POST("/escalate-requests", deps.Escalate.Run)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/requests", deps.Request.Create)
		v1.GET("/requests", deps.Request.List)
		v1.GET("/requests/stats", deps.Request.Stats)
		v1.GET("/requests/:id", deps.Request.Get)
		v1.PUT("/requests/:id/status", deps.Request.UpdateStatus)
		v1.POST("/requests/:id/comments", deps.Request.AddComment)
		v1.GET("/requests/:id/comments", deps.Request.ListComments)
		v1.GET("/escalation-settings", deps.Settings.Get)
		v1.PUT("/escalation-settings", deps.Settings.Save)
	}

	return r
}
