package handlers

import (
	"ResQWave/internal/dispatch"
	"ResQWave/pkg/sse"

	"github.com/gin-gonic/gin"
)

// handleEvents 只读事件流，?group=alerts:all,terminal:T1；默认订阅全部警报
func (h *Handlers) handleEvents(c *gin.Context) {
	groups := sse.ParseGroups(c.Query("group"))
	if len(groups) == 0 {
		groups = []string{dispatch.GroupAlerts}
	}
	h.events.Serve(c, groups...)
}
