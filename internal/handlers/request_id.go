package handlers

import "github.com/gin-gonic/gin"

// RequestIDKey は gin.Context にリクエストIDを保存するキーです。
const RequestIDKey = "request_id"

// RequestID は RequestIDKey に保存されたリクエストIDを返します。
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
