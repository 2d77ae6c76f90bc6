package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/cakeworks/cake-sales/models"
	"github.com/cakeworks/cake-sales/utils"
)

const tokenTTL = 24 * time.Hour

// HandleLogin authenticates a catalog user and returns a JWT token.
// POST /api/v1/auth/login
func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Missing required fields (username, password)")
	}

	user, ok := h.Catalog.FindUser(req.Username)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid credentials"})
	}
	role, valid := utils.ValidateAndNormalizeRole(user.Role)
	if !valid {
		h.Log.Warn("catalog user has an unknown role", "username", user.Username, "role", user.Role)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid credentials or user role"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid credentials"})
	}

	token, err := h.createJWT(user.Username, role)
	if err != nil {
		h.Log.Error("could not sign token", "username", user.Username, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Could not sign token"})
	}
	h.Log.Info("user logged in", "username", user.Username, "role", role)
	return c.JSON(fiber.Map{
		"status":      "success",
		"accessToken": token,
		"user":        models.User{Username: user.Username, Role: role},
	})
}

func (h *Handler) createJWT(username, role string) (string, error) {
	now := h.now()
	claims := models.JwtClaims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.JWTSecret)
}
