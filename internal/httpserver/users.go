package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

func registerHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req usersvc.RegisterInput
		if !bindJSON(c, &req) {
			return
		}
		u, err := svc.Register(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

func loginHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(c, domain.Invalid("", "email and password are required"))
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, loginResponse{
			Token:   sess.Token,
			UserID:  sess.User.ID,
			Name:    sess.User.Name,
			Surname: sess.User.Surname,
			Email:   sess.User.Email,
		})
	}
}

func logoutHandler(svc UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := claimsFrom(c)
		if err := svc.Logout(c.Request.Context(), claims); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}
