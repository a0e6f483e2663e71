package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"geoquest-backend/internal/errorx"
	"geoquest-backend/internal/models"
	"geoquest-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = time.Hour

// S3Options configures the photo bucket
type S3Options struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint, e.g. for MinIO or R2.
	Endpoint string
	// PublicBaseURL is prepended to object keys to build photo URLs.
	PublicBaseURL string
}

// NewS3Client builds an S3 client from options. Static keys are used when
// set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// PhotoService handles photo uploads and their point rewards
type PhotoService struct {
	store     repository.Store
	ledger    *LedgerService
	publisher EventPublisher
	s3Client  *s3.Client
	opts      S3Options
	reward    int
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	store repository.Store,
	ledger *LedgerService,
	publisher EventPublisher,
	s3Client *s3.Client,
	opts S3Options,
	reward int,
) *PhotoService {
	return &PhotoService{
		store:     store,
		ledger:    ledger,
		publisher: publisherOrNop(publisher),
		s3Client:  s3Client,
		opts:      opts,
		reward:    reward,
	}
}

// UploadResponse represents the response with pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PhotoURL  string `json:"photo_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// UploadURL generates a pre-signed URL for uploading a photo
func (s *PhotoService) UploadURL(ctx context.Context, userID, filename, contentType string) (*UploadResponse, error) {
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, errorx.New(errorx.Validation, "filename is required")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := fmt.Sprintf("photos/%s/%s-%s", userID, uuid.New().String(), filename)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PhotoURL:  s.publicURL(key),
		Key:       key,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}

func (s *PhotoService) publicURL(key string) string {
	if s.opts.PublicBaseURL != "" {
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
}

// PhotoDraft is the metadata of an uploaded photo
type PhotoDraft struct {
	Filename  string
	URL       string
	CheckInID *string
}

// Register stores photo metadata and credits the photo reward
func (s *PhotoService) Register(ctx context.Context, userID string, draft PhotoDraft) (*models.Photo, error) {
	if strings.TrimSpace(draft.Filename) == "" || strings.TrimSpace(draft.URL) == "" {
		return nil, errorx.New(errorx.Validation, "filename and url are required")
	}

	photo := &models.Photo{
		ID:           uuid.New().String(),
		UserID:       userID,
		CheckInID:    draft.CheckInID,
		Filename:     draft.Filename,
		URL:          draft.URL,
		PointsEarned: s.reward,
		CreatedAt:    time.Now().UTC(),
	}

	var balance int
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		user, err := q.LockUser(ctx, userID)
		if err != nil {
			return storeErr(err, "user")
		}
		balance = user.Points

		if draft.CheckInID != nil {
			checkIn, err := q.GetCheckIn(ctx, *draft.CheckInID)
			if err != nil {
				return storeErr(err, "checkin")
			}
			if checkIn.UserID != userID {
				return errorx.New(errorx.Forbidden, "checkin belongs to another user")
			}
		}

		if err := q.CreatePhoto(ctx, photo); err != nil {
			return fmt.Errorf("failed to create photo record: %w", err)
		}
		if s.reward > 0 {
			balance, err = s.ledger.Credit(ctx, q, userID, s.reward, ReasonPhoto, &photo.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if photo.PointsEarned > 0 {
		s.publisher.Publish(ctx, newEvent(EventPointsUpdated, userID, PointsUpdate{
			Delta:   photo.PointsEarned,
			Balance: balance,
			Reason:  ReasonPhoto,
		}))
	}
	return photo, nil
}
