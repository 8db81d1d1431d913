package messages

import (
	"github.com/gin-gonic/gin"

	"ContactRelay/controllers"
	"ContactRelay/pkg/services"
)

// RegisterPublic registers the visitor endpoints. Rate limiting happens in
// the ingestion service, ahead of validation.
func RegisterPublic(r *gin.Engine, svc *services.Ingestion) {
	r.POST("/messages", controllers.SubmitMessage(svc))
	r.GET("/chat", controllers.GetChat(svc))
}

// RegisterOperator registers the dashboard endpoints. Each handler checks
// the bearer token through its service.
func RegisterOperator(r *gin.Engine, q *services.Query, rep *services.Replier) {
	r.GET("/messages", controllers.ListMessages(q))
	r.GET("/sessions", controllers.ListSessions(q))
	r.POST("/messages/reply", controllers.Reply(rep))
	r.POST("/messages/:id/reply", controllers.ReplyToMessage(rep))
}
