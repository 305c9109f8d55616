package middleware

import (
	"net/http"

	"github.com/cleberrangel/task-estimation-api/internal/logger"
	"github.com/cleberrangel/task-estimation-api/internal/metrics"
	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateCredentials checks if username and password are valid
func ValidateCredentials(users map[string]string, username, password string) bool {
	if username == "" || password == "" {
		return false
	}
	hash, exists := users[username]
	if !exists {
		return false
	}
	return CheckPassword(password, hash)
}

// basicUser valida o header Authorization Basic e devolve o usuário
func basicUser(c *gin.Context, users map[string]string) (string, bool) {
	username, password, ok := c.Request.BasicAuth()
	if !ok {
		return "", false
	}
	username = SanitizeUsername(username)
	if !ValidateCredentials(users, username, password) {
		logger.Audit(c.Request.Context(), logger.AuditEvent{
			Action:   logger.AuditActionLoginFailed,
			Username: username,
			ClientIP: c.ClientIP(),
			Path:     c.Request.URL.Path,
			Success:  false,
			Error:    "invalid credentials",
		})
		return "", false
	}
	return username, true
}

// BasicAuth protege a página inicial quando há usuários configurados.
// O navegador mostra o diálogo de login por causa do WWW-Authenticate.
func BasicAuth(users map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(users) == 0 {
			c.Next()
			return
		}

		username, ok := basicUser(c, users)
		if !ok {
			metrics.Get().IncrementAuthFailure()
			c.Header("WWW-Authenticate", `Basic realm="task-estimation"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Success: false,
				Error:   "autenticação necessária",
			})
			return
		}

		authenticated(c, username)
		c.Next()
	}
}
