package risk

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver/httputil"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
	"github.com/james-6-23/new-api-tools-sub000/internal/timeutil"
)

// exportCSV streams the cached entries of one window as a CSV download.
func (h *leaderboardHandler) exportCSV(c *fiber.Ctx) error {
	window := models.Window(c.Query("window", string(models.Window24h)))
	if !models.ValidWindow(window) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "unknown window")
	}

	sess := session(c, h.container)
	entries, ok := sess.WindowEntries(window)
	if !ok {
		sess.Leaderboards(false)
		entries, _ = sess.WindowEntries(window)
	}

	bounds, err := timeutil.NewWindow(string(window), time.Now())
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"user_id", "username", "display_name", "status",
		"request_count", "failure_count", "failure_rate",
		"quota_consumed", "prompt_tokens", "completion_tokens", "ip_count",
		"window_start", "window_end",
	}
	if err := w.Write(header); err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}
	for _, e := range entries {
		record := []string{
			strconv.FormatInt(e.UserID, 10),
			e.Username,
			e.DisplayName,
			e.Status,
			strconv.FormatInt(e.RequestCount, 10),
			strconv.FormatInt(e.FailureCount, 10),
			strconv.FormatFloat(e.FailureRate, 'f', 4, 64),
			e.QuotaConsumed.String(),
			strconv.FormatInt(e.PromptTokens, 10),
			strconv.FormatInt(e.CompletionTokens, 10),
			strconv.Itoa(e.IPCount),
			bounds.StartString(),
			bounds.EndString(),
		}
		if err := w.Write(record); err != nil {
			return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return httputil.WriteError(c, fiber.StatusInternalServerError, err.Error())
	}

	filename := fmt.Sprintf("leaderboard-%s-%s.csv", window, time.Now().UTC().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
