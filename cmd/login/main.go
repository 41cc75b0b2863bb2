package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"face-enroll/internal/app"
	"face-enroll/internal/config"
	"face-enroll/internal/providers/salon"
	"face-enroll/internal/session"
)

func main() {
	var (
		email    = flag.String("email", "", "account email")
		password = flag.String("password", "", "account password (default $SALON_PASSWORD)")
		role     = flag.String("role", "", "optional role hint sent with the login")
		logout   = flag.Bool("logout", false, "forget the saved session and exit")
	)
	flag.Parse()

	cfg := config.Load()
	logger, err := app.Logger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store := app.SessionStore(cfg)
	if *logout {
		if err := store.Clear(); err != nil {
			logger.Fatal("clear session", zap.Error(err))
		}
		fmt.Println("logged out")
		return
	}

	pass := *password
	if pass == "" {
		pass = os.Getenv("SALON_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := login(ctx, app.Client(cfg), store, salon.LoginRequest{
		Email:    strings.TrimSpace(*email),
		Password: pass,
		Role:     strings.ToLower(strings.TrimSpace(*role)),
	})
	if err != nil {
		logger.Fatal("login failed", zap.Error(err))
	}

	logger.Info("session saved", zap.String("file", store.Path), zap.String("user", sess.User.Name))
	fmt.Printf("logged in as %s (%s)\n", sess.User.Name, sess.User.Role)
}

type loginClient interface {
	Login(ctx context.Context, req salon.LoginRequest) (*salon.LoginResponse, error)
}

func login(ctx context.Context, c loginClient, store *session.FileStore, req salon.LoginRequest) (*session.Session, error) {
	if req.Email == "" {
		return nil, errors.New("-email is required")
	}
	resp, err := c.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	sess := session.Session{
		Token: resp.Token,
		User:  session.User{ID: resp.User.ID, Name: resp.User.Name, Role: resp.User.Role},
	}
	if err := store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &sess, nil
}
