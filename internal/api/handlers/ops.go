package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"quizgo/internal/models"

	"github.com/gin-gonic/gin"
)

// HandleStats summarises the newest archives.
func (h *Handler) HandleStats(c *gin.Context) {
	st, err := h.Quizzes.Stats()
	if err != nil {
		h.fail(c, "Stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": st})
}

func dirWritable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// HandleHealth reports whether every dependency quiz generation needs is in
// place.
func (h *Handler) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{
		"upload_dir":      dirWritable(h.Uploads.Dir()),
		"results_dir":     dirWritable(h.Archives.Dir()),
		"credential":      h.AI.Ready(),
		"database":        h.DB.Ping(ctx) == nil,
		"ai_provider":     h.AI.ProviderName(),
		"ai_model":        h.AI.Model(),
		"supported_modes": models.Modes,
	}

	status := "ready"
	for _, k := range []string{"upload_dir", "results_dir", "credential", "database"} {
		if ok, _ := checks[k].(bool); !ok {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": status, "checks": checks})
}

// HandleLiveness always answers 200.
func (h *Handler) HandleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
