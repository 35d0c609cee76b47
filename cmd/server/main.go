package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/events"
	"github.com/gatehouse/gatehouse/internal/handlers"
	"github.com/gatehouse/gatehouse/internal/masking"
	"github.com/gatehouse/gatehouse/internal/middleware"
	"github.com/gatehouse/gatehouse/internal/models"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories
	userRepo := repository.NewDynamoUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	roleRepo := repository.NewDynamoRoleRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	auditRepo := repository.NewDynamoAuditRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	sessionStore := repository.NewRedisSessionStore(redisClient, logger)

	// Domain events: audit trail plus the welcome mail, both detached
	// from the request path.
	bus := events.NewBus(logger)
	service.NewAuditRecorder(auditRepo, logger).Register(bus)
	notifier := service.NewNotifier(cfg.SMTP, logger)
	service.NewWelcomeMailer(userRepo, notifier, logger).Register(bus)

	// Services
	tokenService, err := service.NewTokenService(&cfg.JWT, sessionStore, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}
	authService := service.NewAuthService(userRepo, tokenService, bus, logger)
	userService := service.NewUserService(userRepo, roleRepo, tokenService, bus, cfg.Pagination.PerPage, logger)
	roleService := service.NewRoleService(roleRepo, bus, cfg.Pagination.PerPage, logger)

	if err := seedRoles(context.Background(), roleRepo, logger); err != nil {
		logger.WithError(err).Fatal("Failed to seed default roles")
	}

	// Handlers and routing
	resources := handlers.NewResources(masking.New(cfg.Mask))
	authHandlers := handlers.NewAuthHandlers(authService, resources, logger, cfg.Debug)
	userHandlers := handlers.NewUserHandlers(userService, resources, logger, cfg.Debug)
	roleHandlers := handlers.NewRoleHandlers(roleService, resources, logger, cfg.Debug)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, userRepo, logger)

	router := handlers.NewRouter(authHandlers, userHandlers, roleHandlers, authMiddleware, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}
	bus.Wait()

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

// seedRoles makes sure the built-in roles exist before the first request.
func seedRoles(ctx context.Context, roles repository.RoleRepository, logger *logrus.Logger) error {
	defaults := []models.Role{
		{Name: "admin", Description: "Administrator with full access"},
		{Name: service.DefaultRole, Description: "Regular user with basic access"},
	}

	for _, role := range defaults {
		_, err := roles.GetByName(ctx, role.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		role.ID = uuid.New().String()
		if err := roles.Create(ctx, &role); err != nil {
			if errors.Is(err, apperr.ErrRoleNameTaken) {
				continue
			}
			return err
		}
		logger.WithField("role", role.Name).Info("Seeded default role")
	}
	return nil
}
