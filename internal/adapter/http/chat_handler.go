package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loandesk/internal/adapter/realtime"
	"loandesk/internal/domain/message"
	"loandesk/internal/usecase/chat"
)

type ChatHandler struct {
	uc   *chat.Usecase
	feed realtime.Subscriber
}

func NewChatHandler(uc *chat.Usecase, feed realtime.Subscriber) *ChatHandler {
	return &ChatHandler{uc: uc, feed: feed}
}

type typingReq struct {
	IsTyping bool `json:"is_typing"`
}

func (h *ChatHandler) Viewer(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	v, err := h.uc.Viewer(c.Request().Context(), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// EnsureConversation returns the caller's active conversation, creating it
// on first use.
func (h *ChatHandler) EnsureConversation(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.uc.EnsureConversation(c.Request().Context(), a)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ChatHandler) Conversation(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.uc.Conversation(c.Request().Context(), a, c.Param("conversation_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *ChatHandler) History(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	msgs, err := h.uc.History(c.Request().Context(), a, c.Param("conversation_id"))
	if err != nil {
		return fail(c, err)
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) Send(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req chat.SendInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	m, err := h.uc.Send(c.Request().Context(), a, c.Param("conversation_id"), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	changed, err := h.uc.MarkRead(c.Request().Context(), a, c.Param("message_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"changed": changed})
}

func (h *ChatHandler) SetTyping(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	var req typingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	st, err := h.uc.SetTyping(c.Request().Context(), a, c.Param("conversation_id"), req.IsTyping)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *ChatHandler) Typing(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.uc.Typing(c.Request().Context(), a, c.Param("conversation_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Upload takes a multipart "file" part. The declared size is checked before
// anything reaches the object store.
func (h *ChatHandler) Upload(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "missing file part")
	}
	if fh.Size > message.MaxAttachmentBytes {
		return fail(c, message.ErrAttachmentTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()

	att, err := h.uc.Upload(c.Request().Context(), a, chat.UploadInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, nil)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, att)
}

func (h *ChatHandler) ListConversations(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.uc.ListConversations(c.Request().Context(), a, c.QueryParam("status"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ChatHandler) Archive(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.uc.Archive(c.Request().Context(), a, c.Param("conversation_id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
