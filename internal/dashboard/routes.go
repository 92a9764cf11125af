package dashboard

import "github.com/gin-gonic/gin"

func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/summary", handler.GetSummary)
		api.GET("/posts", handler.GetPosts)
		api.GET("/timeline", handler.GetTimeline)
	}

	return router
}
