package controllers

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"auragold-backend/middlewares"
	"auragold-backend/models"
	"auragold-backend/store"

	"github.com/gofiber/fiber/v2"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type RegisterDTO struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type LoginDTO struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/registration
// The first account becomes the admin; later ones are staff.
func (h *Handler) Register(c *fiber.Ctx) error {
	var in RegisterDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()

	count, err := h.Store.CountUsers(ctx)
	if err != nil {
		return err
	}
	user := models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      RoleStaff,
	}
	if count == 0 {
		user.Role = RoleAdmin
	}
	if err := user.SetPassword(in.Password); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
	}
	if err := h.Store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return fiber.NewError(fiber.StatusBadRequest, "email already exists")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// POST /api/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email format")
	}

	user, err := h.Store.FindUserByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid credentials")
		}
		return err
	}
	if err := user.ComparePassword(in.Password); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid credentials")
	}

	token, err := middlewares.GenerateJWT(h.JWTSecret, user.Id, user.Role)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.FirstName + " " + user.LastName,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// POST /api/logout
// Tokens are stateless; this only clears a legacy cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"message": "success"})
}
