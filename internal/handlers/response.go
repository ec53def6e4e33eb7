package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yuzuhara/tomosanpo/internal/apperrors"
)

// fail переводит бизнес-ошибку в HTTP-ответ единообразно для всех
// хендлеров.
func fail(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
