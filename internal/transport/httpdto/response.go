package httpdto

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func idPtr(id uuid.NullUUID) *string {
	if !id.Valid {
		return nil
	}
	v := id.UUID.String()
	return &v
}
