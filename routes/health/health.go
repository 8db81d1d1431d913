package health

import (
	"github.com/gin-gonic/gin"

	"ContactRelay/controllers"
)

func Register(r *gin.Engine) {
	r.GET("/health", controllers.Health())
}
