package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"loandesk/internal/adapter/storage"
	"loandesk/internal/domain/conversation"
	"loandesk/internal/domain/loan"
	"loandesk/internal/domain/message"
	"loandesk/internal/domain/profile"
	"loandesk/internal/domain/user"
	"loandesk/internal/usecase/auth"
	"loandesk/internal/validation"
)

// MySQL server error numbers that have a friendlier rendering.
const (
	mysqlDuplicateEntry   = 1062
	mysqlCheckViolated    = 3819
	mysqlForeignKeyFailed = 1452
)

type ErrorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details []validation.FieldError `json:"details,omitempty"`
}

type mapped struct {
	status int
	code   string
	msg    string
}

var sentinels = []struct {
	err error
	m   mapped
}{
	{profile.ErrIncomplete, mapped{http.StatusUnprocessableEntity, "profile_incomplete", "complete your profile first"}},
	{loan.ErrNotFound, mapped{http.StatusNotFound, "not_found", ""}},
	{profile.ErrNotFound, mapped{http.StatusNotFound, "not_found", ""}},
	{conversation.ErrNotFound, mapped{http.StatusNotFound, "not_found", ""}},
	{message.ErrNotFound, mapped{http.StatusNotFound, "not_found", ""}},
	{user.ErrNotFound, mapped{http.StatusNotFound, "not_found", ""}},
	{loan.ErrForbidden, mapped{http.StatusForbidden, "forbidden", ""}},
	{profile.ErrForbidden, mapped{http.StatusForbidden, "forbidden", ""}},
	{conversation.ErrForbidden, mapped{http.StatusForbidden, "forbidden", ""}},
	{loan.ErrInvalidTransition, mapped{http.StatusConflict, "invalid_transition", ""}},
	{loan.ErrAlreadyDecided, mapped{http.StatusConflict, "already_decided", ""}},
	{conversation.ErrArchived, mapped{http.StatusConflict, "archived", ""}},
	{conversation.ErrActiveExists, mapped{http.StatusConflict, "conflict", ""}},
	{user.ErrEmailTaken, mapped{http.StatusConflict, "email_taken", ""}},
	{user.ErrInvalidCredentials, mapped{http.StatusUnauthorized, "invalid_credentials", ""}},
	{auth.ErrInvalidToken, mapped{http.StatusUnauthorized, "invalid_token", ""}},
	{message.ErrEmpty, mapped{http.StatusUnprocessableEntity, "empty_message", ""}},
	{message.ErrAttachmentTooLarge, mapped{http.StatusRequestEntityTooLarge, "too_large", ""}},
	{storage.ErrInvalidPath, mapped{http.StatusBadRequest, "invalid_path", ""}},
	{gorm.ErrDuplicatedKey, mapped{http.StatusConflict, "duplicate", "a record with the same key already exists"}},
	{gorm.ErrForeignKeyViolated, mapped{http.StatusConflict, "missing_reference", "the referenced record does not exist"}},
	{gorm.ErrCheckConstraintViolated, mapped{http.StatusUnprocessableEntity, "constraint", "a value was rejected by a data constraint"}},
}

// translate maps err to a status and a client-facing body. Unknown errors
// keep their raw message.
func translate(err error) (int, ErrorResponse) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Code: "validation", Details: ve.Fields}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorResponse{Error: msg}
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			msg := s.m.msg
			if msg == "" {
				msg = err.Error()
			}
			return s.m.status, ErrorResponse{Error: msg, Code: s.m.code}
		}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return http.StatusConflict, ErrorResponse{Error: "a record with the same key already exists", Code: "duplicate"}
		case mysqlCheckViolated:
			return http.StatusUnprocessableEntity, ErrorResponse{Error: "a value was rejected by a data constraint", Code: "constraint"}
		case mysqlForeignKeyFailed:
			return http.StatusConflict, ErrorResponse{Error: "the referenced record does not exist", Code: "missing_reference"}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
}

func fail(c echo.Context, err error) error {
	status, body := translate(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func actor(c echo.Context) (user.Actor, error) {
	a, ok := actorFrom(c)
	if !ok {
		return user.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing caller")
	}
	return a, nil
}
