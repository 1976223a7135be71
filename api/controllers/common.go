package controllers

import (
	"net/http"

	"github.com/circlemart/circlemart-backend/api/middleware"
	"github.com/circlemart/circlemart-backend/api/responses"
	"github.com/circlemart/circlemart-backend/api/validators"
	"github.com/circlemart/circlemart-backend/pkg/auth"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

// statusRequest toggles is_active on any resource.
type statusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func requireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func decodeStatus(r *http.Request) (bool, error) {
	var body statusRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return false, err
	}
	return *body.IsActive, nil
}

// decodeOptionalJSON decodes a body that may be omitted entirely.
func decodeOptionalJSON(r *http.Request, dest any) error {
	if r.ContentLength == 0 {
		return validators.ValidateStruct(dest)
	}
	return validators.DecodeJSONBody(r, dest)
}
