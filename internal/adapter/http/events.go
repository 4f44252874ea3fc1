package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"loandesk/internal/adapter/realtime"
)

var sseHeartbeat = 25 * time.Second

// Events relays both feeds of one conversation as server-sent events:
// "event: messages" carries a message row, "event: typing" a typing row.
// The stream ends when the client leaves or a feed drops; clients reconnect
// and reload history themselves.
func (h *ChatHandler) Events(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	ctx := c.Request().Context()
	convID := c.Param("conversation_id")
	if _, err := h.uc.Conversation(ctx, a, convID); err != nil {
		return fail(c, err)
	}

	msgs, err := h.feed.Subscribe(ctx, realtime.TopicMessages, convID)
	if err != nil {
		return fail(c, err)
	}
	defer msgs.Close()
	typ, err := h.feed.Subscribe(ctx, realtime.TopicTyping, convID)
	if err != nil {
		return fail(c, err)
	}
	defer typ.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	tick := time.NewTicker(sseHeartbeat)
	defer tick.Stop()
	for {
		var ev realtime.Event
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
			continue
		case ev, ok = <-msgs.C:
		case ev, ok = <-typ.C:
		}
		if !ok {
			_, _ = fmt.Fprint(res, "event: closed\ndata: {}\n\n")
			res.Flush()
			return nil
		}
		if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Topic, ev.Payload); err != nil {
			return nil
		}
		res.Flush()
	}
}
