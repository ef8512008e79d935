package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/willvault/auth/adapters/events"
	"github.com/willvault/auth/adapters/mailer"
	"github.com/willvault/auth/adapters/store"
	"github.com/willvault/auth/adapters/tokenizer"
	"github.com/willvault/auth/adapters/users"
	"github.com/willvault/auth/internal/config"
	"github.com/willvault/auth/internal/stacks"
	"github.com/willvault/auth/ports"
	"github.com/willvault/auth/service"
	transport "github.com/willvault/auth/transport/http"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signKey, err := loadSigningKey(cfg.SigningKeyHex)
	if err != nil {
		log.Fatal("failed to load signing key", zap.Error(err))
	}

	var (
		challenges ports.ChallengeRepository
		codes      ports.CodeRepository
		eventPub   ports.EventPublisher
	)

	if cfg.UseRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to parse redis URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to reach redis", zap.Error(err))
		}
		defer redisClient.Close()

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatal("failed to create event publisher", zap.Error(err))
		}

		challenges = store.NewRedisChallengeRepository(redisClient)
		codes = store.NewRedisCodeRepository(redisClient)
		eventPub = events.NewWatermillPublisher(publisher)
	} else {
		challenges = store.NewMemoryChallengeRepository()
		codes = store.NewMemoryCodeRepository()
		eventPub = events.NopPublisher{}
	}

	userStore := users.NewMemoryUserStore()
	mail := mailer.NewLogMailer(log)
	derive := stacks.AddressDeriver(stacks.Network(cfg.Network))

	walletAuth := service.NewWalletAuthService(challenges, derive, eventPub, log, nil)
	otp := service.NewOTPService(codes, mail, eventPub, log, nil)
	sessions := service.NewSessionService(tokenizer.NewJWTTokenizer(signKey), userStore, eventPub, log, nil)

	otp.StartSweeper(ctx, cfg.SweepInterval)

	handlers := transport.NewAuthHandlers(walletAuth, otp, sessions, userStore, log)
	router := transport.SetupRouter(handlers, sessions)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

// loadSigningKey parses a hex-encoded EC private key, generating an
// ephemeral one for development when none is configured
func loadSigningKey(keyHex string) (*ecdsa.PrivateKey, error) {
	if keyHex == "" {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, err
	}
	return x509.ParseECPrivateKey(raw)
}
