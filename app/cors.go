package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsOrigins 前端地址加上 passkey 允许的来源，去重
func corsOrigins(cfg Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range append([]string{cfg.WebOrigin}, cfg.RPOrigins...) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

func useCORS(r *gin.Engine, cfg Config) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(cfg),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
