package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config" // Alias để tránh trùng tên
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/onedayonepaper/parkflow-sub000/internal/api"
	"github.com/onedayonepaper/parkflow-sub000/internal/api/handler"
	"github.com/onedayonepaper/parkflow-sub000/internal/api/middleware"
	"github.com/onedayonepaper/parkflow-sub000/internal/config"
	"github.com/onedayonepaper/parkflow-sub000/internal/iot"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository/postgresql"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	// 3. Khởi tạo AWS SDK Config
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Không thể tải AWS SDK config: %v", err)
	}
	log.Println("Đã tải AWS SDK config thành công cho region:", cfg.AWSRegion)

	// 4. Khởi tạo AWS Clients
	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if cfg.IoTMQTTEndpoint != "" {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		}
	})
	log.Println("Đã khởi tạo SQS client và IoT Data Plane client.")

	var lprService *service.LPRService
	if cfg.RekognitionEnable {
		rekognitionClient := rekognition.NewFromConfig(awsSDKCfg)
		lprService = service.NewLPRService(rekognitionClient, cfg.LPRConfidenceThreshold)
	}

	// 5. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	siteRepo := postgresql.NewPgSiteRepository(db)
	sessionRepo := postgresql.NewPgSessionRepository(db)
	ratePlanRepo := postgresql.NewPgRatePlanRepository(db)
	discountRepo := postgresql.NewPgDiscountRepository(db)
	eligibilityRepo := postgresql.NewPgEligibilityRepository(db)
	barrierRepo := postgresql.NewPgBarrierRepository(db)
	barrierCmdRepo := postgresql.NewPgBarrierCommandRepository(db)
	deviceEventsLogRepo := postgresql.NewPgDeviceEventsLogRepository(db)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiration)
	eligibilityService := service.NewEligibilityService(eligibilityRepo)
	barrierDriver := iot.NewIoTBarrierDriver(iotDataPlaneClient, cfg.IoTCommandTopic)
	barrierService := service.NewBarrierService(barrierRepo, barrierCmdRepo, barrierDriver, webSocketManager,
		cfg.BarrierCommandTimeout, cfg.IdempotencyWindow)
	sessionService := service.NewSessionService(sessionRepo, ratePlanRepo, discountRepo,
		eligibilityService, barrierService, webSocketManager)
	ratePlanService := service.NewRatePlanService(ratePlanRepo, siteRepo)
	discountAdmin := service.NewDiscountAdminService(discountRepo)

	// 7. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 8. Khởi tạo và Chạy SQS Consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.SQSEventQueueURL == "" {
		log.Println("CẢNH BÁO: SQS_EVENT_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		deviceEventHandler := iot.NewDeviceEventHandler(sessionService, barrierService, deviceEventsLogRepo)
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg.SQSEventQueueURL, deviceEventHandler)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS Consumer đã dừng.")
		}()
	}

	// 9. Setup HTTP Router
	router := api.SetupRouter(api.RouterDeps{
		AuthService:     authService,
		SessionService:  sessionService,
		BarrierService:  barrierService,
		RatePlanService: ratePlanService,
		DiscountAdmin:   discountAdmin,
		LPRService:      lprService,
		SiteHandler:     handler.NewSiteHandler(siteRepo, barrierRepo),
		AuthMiddleware:  authMiddleware,
		WSManager:       webSocketManager,
	})

	// 10. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	if cfg.SQSEventQueueURL != "" {
		log.Println("Đang chờ SQS consumer dừng (tối đa 5 giây)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer đã dừng hoàn toàn.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer không dừng trong thời gian chờ.")
		}
	}

	log.Println("Server đã tắt.")
}
