package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"event-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoogleUser is the subset of the ID token payload we care about.
type GoogleUser struct {
	GoogleID string
	Email    string
	Name     string
}

// GoogleVerifier verifies a Google ID token. Implemented against the
// tokeninfo endpoint in production and stubbed in tests.
type GoogleVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (GoogleUser, error)
}

// GoogleTokenVerifier validates ID tokens via Google's tokeninfo endpoint and
// checks the audience against the configured client ID.
type GoogleTokenVerifier struct {
	ClientID   string
	HTTPClient *http.Client
}

func NewGoogleTokenVerifier() *GoogleTokenVerifier {
	return &GoogleTokenVerifier{
		ClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (v *GoogleTokenVerifier) VerifyIDToken(ctx context.Context, token string) (GoogleUser, error) {
	if v.ClientID == "" {
		return GoogleUser{}, fmt.Errorf("google client ID not configured")
	}

	endpoint := "https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("tokeninfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GoogleUser{}, fmt.Errorf("tokeninfo returned %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Iss   string `json:"iss"`
		Aud   string `json:"aud"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleUser{}, fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	if info.Iss != "accounts.google.com" && info.Iss != "https://accounts.google.com" {
		return GoogleUser{}, fmt.Errorf("invalid token issuer: %s", info.Iss)
	}
	if info.Aud != v.ClientID {
		return GoogleUser{}, fmt.Errorf("token audience mismatch")
	}
	if info.Sub == "" {
		return GoogleUser{}, fmt.Errorf("token missing subject")
	}

	return GoogleUser{GoogleID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

type AuthService struct {
	DB       *gorm.DB
	Verifier GoogleVerifier
	JWTKey   []byte
}

func NewAuthService(db *gorm.DB, verifier GoogleVerifier) *AuthService {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		log.Fatal("SECRET_KEY environment variable not set")
	}
	return &AuthService{DB: db, Verifier: verifier, JWTKey: []byte(secret)}
}

// FindOrCreateParticipant looks up a participant by google_id, creating one if
// absent. If two requests race to create the same identity key, the storage
// unique constraint rejects the loser; the loser re-queries and returns the
// winner's row instead of erroring the caller.
func (s *AuthService) FindOrCreateParticipant(user GoogleUser) (*models.Participant, error) {
	var participant models.Participant
	err := s.DB.Where("google_id = ?", user.GoogleID).First(&participant).Error
	if err == nil {
		return &participant, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	participant = models.Participant{
		ID:       uuid.NewString(),
		GoogleID: &user.GoogleID,
	}
	if user.Email != "" {
		participant.Email = &user.Email
	}

	if err := s.DB.Create(&participant).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Lost the creation race: another request inserted the same
		// google_id first. Re-read and return the winner.
		log.Printf("Participant create conflict for google_id %s, re-reading", user.GoogleID)
		var winner models.Participant
		if err := s.DB.Where("google_id = ?", user.GoogleID).First(&winner).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve participant after conflict: %w", err)
		}
		return &winner, nil
	}

	log.Printf("New participant created: %s (Google ID: %s)", participant.ID, user.GoogleID)
	return &participant, nil
}

// IssueToken mints a 24h participant session JWT.
func (s *AuthService) IssueToken(participantID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  participantID,
		"type": "participant",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTKey)
}

// VerifyGoogleToken handles POST /api/auth/google/verify.
func (s *AuthService) VerifyGoogleToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, err := s.Verifier.VerifyIDToken(c.Context(), req.Token)
	if err != nil {
		log.Printf("Google token verification failed: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Google token"})
	}

	participant, err := s.FindOrCreateParticipant(user)
	if err != nil {
		log.Printf("DB error resolving participant: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error while processing authentication"})
	}

	accessToken, err := s.IssueToken(participant.ID)
	if err != nil {
		log.Printf("Error generating access token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error generating authentication token"})
	}

	log.Printf("✅ Participant authenticated: %s", participant.ID)

	return c.JSON(fiber.Map{
		"access_token":   accessToken,
		"token_type":     "bearer",
		"participant_id": participant.ID,
	})
}
