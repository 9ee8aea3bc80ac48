package controllers

import (
	"net/http"
	"strings"

	"github.com/entregave/dispatch-backend/api/responses"
	"github.com/entregave/dispatch-backend/api/validators"
	"github.com/entregave/dispatch-backend/internal/syslog"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

func ListSystemLogs(svc syslog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := syslog.ListFilter{
			Level:  strings.TrimSpace(r.URL.Query().Get("level")),
			Action: strings.TrimSpace(r.URL.Query().Get("action")),
		}
		since, err := validators.ParseQueryTime(r, "since")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Since = since
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSystemLogDTOs(list))
	}
}
