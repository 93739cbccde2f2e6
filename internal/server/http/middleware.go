package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

// authN verifies the bearer token and binds the identity to the request
// context. Any failure ends the request with 401.
func (s *HTTPServer) authN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var id *models.Identity
		raw, err := auth.BearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if err == nil {
			id, err = s.verifier.Verify(raw)
		}
		s.metrics.TokenVerification(err)

		if err != nil {
			s.logger.Debug(ctx, "rejected request", "path", r.URL.Path, "reason", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, id)))
	})
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
