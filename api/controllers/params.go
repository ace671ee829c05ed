package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/middleware"
	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

// actorIDOrError extracts the authenticated user id and writes the
// unauthorized response itself when the context carries none.
func actorIDOrError(r *http.Request, logg *logger.Logger, w http.ResponseWriter) uuid.UUID {
	userID := middleware.ActorUserID(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
	}
	return userID
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
