package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/logger"
)

// writeEvent writes one server-sent event and flushes it.
func writeEvent(w *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

// stream sends every snapshot of sub as an SSE "snapshot" event. The
// subscription is cancelled when the client goes away or ctx ends.
func stream[T any](c *fiber.Ctx, cancel context.CancelFunc, sub *feed.Subscription[T], keepAlive time.Duration) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	path := c.Path()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()
		defer cancel()

		log := logger.Get()
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case snap, ok := <-sub.C:
				if !ok {
					return
				}
				if err := writeEvent(w, "snapshot", snap); err != nil {
					log.Debug().Err(err).Str("path", path).Msg("Stream client went away")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					log.Debug().Err(err).Str("path", path).Msg("Stream client went away")
					return
				}
			}
		}
	}))
	return nil
}
