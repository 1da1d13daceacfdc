package middleware

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"
)

// MetricsAuth guards an endpoint with HTTP basic auth against a password file of
// "user:bcrypt-hash" lines. Blank lines and lines starting with # are ignored.
// An empty path disables the guard.
func MetricsAuth(passwordFile string) (fiber.Handler, error) {
	if passwordFile == "" {
		return func(c *fiber.Ctx) error { return c.Next() }, nil
	}

	creds, err := loadPasswordFile(passwordFile)
	if err != nil {
		return nil, err
	}

	return basicauth.New(basicauth.Config{
		Realm: "metrics",
		Authorizer: func(user, pass string) bool {
			hash, ok := creds[user]
			if !ok || pass == "" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
		},
	}), nil
}

func loadPasswordFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open password file: %w", err)
	}
	defer f.Close()

	creds := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, hash, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(user) == "" {
			continue
		}
		creds[strings.TrimSpace(user)] = strings.TrimSpace(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read password file: %w", err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("password file %s has no credentials", path)
	}
	return creds, nil
}
