package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/gin-gonic/gin"
)

// UsernameKey chave do usuário autenticado no gin.Context
const UsernameKey = "username"

// AuthConfig contém a configuração do middleware de autenticação
type AuthConfig struct {
	// TokenAPI token Bearer aceito em /api/v1
	TokenAPI string
	// Users usuario -> hash bcrypt para basic auth
	Users map[string]string
}

// Enabled indica se alguma forma de autenticação está configurada
func (cfg AuthConfig) Enabled() bool {
	return cfg.TokenAPI != "" || len(cfg.Users) > 0
}

// Auth aceita Bearer TOKEN_API ou basic auth dos usuários configurados.
// Sem nenhuma das duas configurada, libera a requisição.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			rejectAuth(c, cfg, "header Authorization ausente")
			return
		}

		// Extrai o token do formato "Bearer {token}" ou "Basic {credenciais}"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 {
			rejectAuth(c, cfg, "formato inválido, esperado: Bearer {token}")
			return
		}

		switch strings.ToLower(parts[0]) {
		case "bearer":
			if cfg.TokenAPI == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(cfg.TokenAPI)) != 1 {
				rejectAuth(c, cfg, "token inválido")
				return
			}
		case "basic":
			username, ok := basicUser(c, cfg.Users)
			if !ok {
				rejectAuth(c, cfg, "credenciais inválidas")
				return
			}
			authenticated(c, username)
		default:
			rejectAuth(c, cfg, "formato inválido, esperado: Bearer {token}")
			return
		}

		c.Next()
	}
}

// authenticated propaga o usuário para o contexto e os logs
func authenticated(c *gin.Context, username string) {
	c.Set(UsernameKey, username)
	c.Request = c.Request.WithContext(logger.WithUsername(c.Request.Context(), username))
}

func rejectAuth(c *gin.Context, cfg AuthConfig, reason string) {
	metrics.Get().IncrementAuthFailure()
	logger.FromGin(c).Warn().
		Str("path", c.Request.URL.Path).
		Str("reason", reason).
		Msg("Requisição não autenticada")

	if len(cfg.Users) > 0 {
		c.Header("WWW-Authenticate", `Basic realm="task-estimation"`)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Success: false,
		Error:   reason,
	})
}
