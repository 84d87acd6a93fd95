package response

import (
	"net/http"

	"ResQWave/pkg/errors"
	"ResQWave/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Body 统一响应结构
type Body struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 200 响应
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Body{Message: msg, Data: data})
}

// Created 201 响应
func Created(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, Body{Message: msg, Data: data})
}

// Fail 400 响应
func Fail(c *gin.Context, msg string, data interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{Message: msg, Data: data})
}

// Error 根据错误类别写出响应；未分类错误记录日志并返回 500
func Error(c *gin.Context, err error) {
	switch errors.KindOf(err) {
	case errors.KindNotFound, errors.KindValidation, errors.KindConflict, errors.KindForbidden:
		c.AbortWithStatusJSON(errors.GetCode(err), Body{
			Message: errors.GetMessage(err),
			Code:    errors.ReasonOf(err),
		})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Body{Message: "Server Error"})
	}
}
