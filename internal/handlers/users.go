package handlers

import (
	"net/http"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHandler : gestion des comptes (admin)
type UserHandler struct {
	users Users
}

func NewUserHandler(users Users) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type updateUserRequest struct {
	ID       string  `json:"id"`
	Name     *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6,max=100"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

func (h *UserHandler) List(c *gin.Context) {
	values := c.Request.URL.Query()
	page, limit := query.ParsePage(values, query.DefaultListLimit)
	list, err := h.users.List(c.Request.Context(), services.UserFilter{
		Role:   values.Get("role"),
		Status: values.Get("status"),
		Search: values.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Create(c.Request.Context(), services.UserInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role, Status: req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	raw := c.Param("id")
	if raw == "" {
		raw = req.ID
	}
	if raw == "" {
		respondError(c, apperr.Validation("User ID is required"))
		return
	}
	id, err := parseUUID(raw, "user")
	if err != nil {
		respondError(c, err)
		return
	}
	u, err := h.users.Update(c.Request.Context(), id, services.UserPatch{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role, Status: req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		respondError(c, apperr.Validation("User ID is required"))
		return
	}
	id, err := parseUUID(raw, "user")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
