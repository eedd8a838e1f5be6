package middleware

import (
	"errors"
	"log"
	"strings"

	"event-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// ParticipantAuthMiddleware validates the bearer JWT issued by the auth
// service, loads the participant row and attaches it to the request context
// under "participant".
func ParticipantAuthMiddleware(db *gorm.DB, jwtKey []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}
		sub, _ := claims["sub"].(string)
		tokenType, _ := claims["type"].(string)
		if sub == "" || tokenType != "participant" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}

		var participant models.Participant
		if err := db.First(&participant, "id = ?", sub).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("DB error loading participant %s: %v", sub, err)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Could not validate credentials"})
		}

		c.Locals("participant", &participant)
		return c.Next()
	}
}
