// internal/auth/auth.go
//
// Player accounts: registration, credential checks, credential updates and
// JWT session tokens.
//
// Passwords are bcrypt-hashed; tokens are HS256 JWTs carrying id/username
// claims. Account rows live in the users table next to the durable stats
// counters so a player's identity and record share one row.

package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Typed failures mapped onto the wire error vocabulary by callers.
var (
	ErrUsernameTaken     = errors.New("username already registered")
	ErrUserNotRegistered = errors.New("user not registered")
	ErrWrongCredentials  = errors.New("wrong credentials")
	ErrInvalidToken      = errors.New("invalid token")
)

// User is one account row (stats counters live in the stats package).
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Service performs account operations against the users table.
type Service struct {
	db     *sql.DB
	secret []byte
	expiry time.Duration
}

func New(db *sql.DB, secret []byte, expiry time.Duration) *Service {
	return &Service{db: db, secret: secret, expiry: expiry}
}

// Register validates and creates a new account.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           genID(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies a username/password pair.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := s.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrWrongCredentials
	}
	return u, nil
}

// UpdateCredentials changes the account's name, password or both after
// verifying the old password. At least one of newName/newPassword must be
// set; a new name must not collide with an existing account.
func (s *Service) UpdateCredentials(ctx context.Context, oldName, oldPassword, newName, newPassword string) (*User, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" && newPassword == "" {
		return nil, errors.New("either name, password or both must change")
	}
	u, err := s.Login(ctx, oldName, oldPassword)
	if err != nil {
		return nil, err
	}

	name := u.Username
	if newName != "" && !strings.EqualFold(newName, u.Username) {
		if err := validateUsername(newName); err != nil {
			return nil, err
		}
		var exists int
		_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, newName).Scan(&exists)
		if exists == 1 {
			return nil, ErrUsernameTaken
		}
		name = newName
	}
	hash := u.PasswordHash
	if newPassword != "" {
		if err := validatePassword(newPassword); err != nil {
			return nil, err
		}
		h, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(h)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET username=?, password_hash=? WHERE id=?`, name, hash, u.ID); err != nil {
		return nil, err
	}
	u.Username = name
	u.PasswordHash = hash
	return u, nil
}

// FindByUsername loads an account, ErrUserNotRegistered when absent.
func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at
	                                  FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}

// FindByID loads an account, ErrUserNotRegistered when absent.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at
	                                  FROM users WHERE id=?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// SignToken issues an HS256 JWT for the user.
func (s *Service) SignToken(u *User) (string, time.Time, error) {
	exp := time.Now().Add(s.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := token.SignedString(s.secret)
	return ss, exp, err
}

// VerifyToken parses a JWT and resolves it to a still-existing account.
func (s *Service) VerifyToken(ctx context.Context, tokenStr string) (*User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return u, nil
}

func validateCredentials(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateUsername(u string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < 6 || len(p) > 100 {
		return fmt.Errorf("password must be 6-100 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}
