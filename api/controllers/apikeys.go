package controllers

import (
	"net/http"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/apikeys"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type GenerateAPIKeyBody struct {
	ClientName string `json:"client_name" validate:"required,min=1,max=120"`
}

// GenerateAPIKey returns the plaintext secret exactly once; only the hash is
// stored.
func GenerateAPIKey(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body GenerateAPIKeyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		generated, err := svc.Generate(r.Context(), body.ClientName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"key":       toAPIKeyDTO(generated.Key),
			"plaintext": generated.Plaintext,
		})
	}
}

func ListAPIKeys(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAPIKeyDTOs(list))
	}
}

type RevokeAPIKeyBody struct {
	ClientName string `json:"client_name" validate:"required,min=1,max=120"`
}

func RevokeAPIKey(svc apikeys.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body RevokeAPIKeyBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Revoke(r.Context(), body.ClientName); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"client_name": body.ClientName, "revoked": true})
	}
}
