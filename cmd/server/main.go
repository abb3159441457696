package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/config"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/delivery"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/domain"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/gateway"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/infrastructure"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/ocr"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/repository"
	"github.com/crcsteel/Fire-Extinguisher-Inspection-System/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}
	setupLogging(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("loading timezone")
	}
	time.Local = loc

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Submission journal
	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("opening submission journal")
	}
	defer closeJournal()

	// 2. Snapshot storage
	storage, err := openStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("opening snapshot storage")
	}

	// 3. Label reader
	var labels domain.LabelReader
	if cfg.OCREnabled {
		reader, err := ocr.NewLabelReader(cfg.OCRIDPattern, log.Log)
		if err != nil {
			log.WithError(err).Fatal("configuring label reader")
		}
		labels = reader
	}

	// 4. UseCases
	gw := gateway.New(cfg.APIBase, cfg.HTTPTimeout, log.Log)
	inspectionUC := usecase.NewInspectionUseCase(gw, usecase.Options{
		Journal:          journal,
		Storage:          storage,
		SnapshotBucket:   cfg.S3Bucket,
		SubmitResetDelay: cfg.SubmitResetDelay,
	}, log.Log)
	reportUC := usecase.NewReportUseCase(loc)
	decoder := usecase.NewFrameDecoder(infrastructure.NewQRDecoder())

	// 5. Delivery
	cameras := func() (domain.Camera, delivery.FrameFeed) {
		cam := infrastructure.NewFeedCamera()
		return cam, cam
	}
	sessions := delivery.NewSessionStore(inspectionUC, cameras, decoder, usecase.ScannerOptions{
		Interval:       cfg.ScanInterval,
		AcquireTimeout: cfg.CameraAcquireTimeout,
	}, cfg.SessionTTL, log.Log)
	publicHandler := delivery.NewPublicHandler(inspectionUC, reportUC, sessions, labels, log.Log)
	adminHandler := delivery.NewAdminHandler(journal, log.Log)

	// 6. Routing
	router := mux.NewRouter()
	router.Use(delivery.RequestLogger(log.Log))
	router.PathPrefix("/admin/").Handler(adminHandler)
	if !cfg.UseS3() {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}
	publicHandler.Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           csrf.Protect(csrfKey(cfg), csrf.Secure(cfg.CSRFSecure), csrf.Path("/"))(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "api_base": cfg.APIBase}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("error listening")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	sessions.CloseAll(shutdownCtx)
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetHandler(json.New(os.Stderr))
	} else {
		log.SetHandler(text.New(os.Stderr))
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("unknown log_level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func openJournal(ctx context.Context, cfg *config.Config) (domain.SubmissionJournal, func(), error) {
	switch cfg.JournalDriver {
	case config.JournalPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres submission journal")
		return repository.NewPostgresJournal(pool), pool.Close, nil
	case config.JournalSQLite:
		j, err := repository.OpenSQLiteJournal(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("using sqlite submission journal")
		return j, func() { j.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (domain.FileStorage, error) {
	if !cfg.UseS3() {
		log.WithField("dir", cfg.UploadsDir).Info("using filesystem snapshot storage")
		return infrastructure.NewFileSystemStorage(cfg.UploadsDir)
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	key, secret := cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey
	if key == "" && cfg.S3Endpoint != "" {
		// LocalStack accepts any credentials
		key, secret = "test", "test"
	}
	if key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: key, SecretAccessKey: secret}, nil
		})))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	log.WithField("bucket", cfg.S3Bucket).Info("using s3 snapshot storage")
	return infrastructure.NewS3Storage(client, cfg.S3Bucket), nil
}

func csrfKey(cfg *config.Config) []byte {
	if cfg.CSRFKey != "" {
		return []byte(cfg.CSRFKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.WithError(err).Fatal("generating csrf key")
	}
	log.Warn("csrf_key not set, using a per-process key")
	return key
}
