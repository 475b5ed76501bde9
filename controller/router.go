package controller

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter defines all routes of the API
func NewRouter(apiController APIController, metricsHandler http.Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Content-Type, Content-Length, Accept-Encoding, Host, accept, Origin, Cache-Control, X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}),
	)

	api := router.Group("")
	{
		api.GET("/repos", apiController.GetRepositories)
		api.GET("/owners/:owner/repos", apiController.GetOwnerRepositories)
	}

	search := router.Group("/search")
	{
		search.POST("", apiController.SubmitSearch)
		search.POST("/retry", apiController.RetrySearch)
		search.GET("/state", apiController.GetSearchState)
		search.GET("/status", apiController.GetSearchStatus)
		search.GET("/events", apiController.StreamSearchStates)
	}

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return router
}
