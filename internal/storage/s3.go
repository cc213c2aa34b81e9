package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/sethvargo/go-retry"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Options configures an S3Gateway.
//
// With AccessKeyID set the gateway signs with those static keys. Otherwise
// it uses session credentials: ProjectRef as access key, AnonKey as secret
// and the user's access token as session token.
type S3Options struct {
	Endpoint string
	Region   string
	Bucket   string

	AccessKeyID     string
	SecretAccessKey string

	ProjectRef string
	AnonKey    string

	Timeout time.Duration
	Retries int
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
}

// S3Gateway stores blobs in an S3 compatible bucket under "<user_id>/<name>".
type S3Gateway struct {
	client  *s3.Client
	opts    S3Options
	session Session
	log     logging.Logger
}

func NewS3Gateway(ctx context.Context, opts S3Options, sess Session, log logging.Logger) (*S3Gateway, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("storage endpoint and bucket must be set")
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}

	var provider aws.CredentialsProvider
	if opts.AccessKeyID != "" {
		provider = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
	} else {
		provider = sessionCredentials(opts.ProjectRef, opts.AnonKey, sess)
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(provider),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
		o.Retryer = aws.NopRetryer{}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Gateway{client: client, opts: opts, session: sess, log: log}, nil
}

// sessionCredentials presents the user's current access token. The
// credentials expire after a minute so a refreshed token is picked up.
func sessionCredentials(projectRef, anonKey string, sess Session) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		if sess == nil {
			return aws.Credentials{}, common.ErrNotLoggedIn
		}
		token, err := sess.AccessToken(ctx)
		if err != nil {
			return aws.Credentials{}, err
		}
		return aws.Credentials{
			AccessKeyID:     projectRef,
			SecretAccessKey: anonKey,
			SessionToken:    token,
			Source:          "continu-session",
			CanExpire:       true,
			Expires:         time.Now().Add(time.Minute),
		}, nil
	})
}

func (g *S3Gateway) prefix(ctx context.Context) (string, error) {
	if g.session == nil {
		return "", common.ErrNotLoggedIn
	}
	id, err := g.session.UserID(ctx)
	if err != nil {
		return "", err
	}
	return id + "/", nil
}

func (g *S3Gateway) Upload(ctx context.Context, name string, data []byte) error {
	prefix, err := g.prefix(ctx)
	if err != nil {
		return &TransferError{Op: "upload", Name: name, Err: err}
	}

	return g.withRetry(ctx, "upload", name, func(ctx context.Context) error {
		_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(g.opts.Bucket),
			Key:           aws.String(prefix + name),
			Body:          bytes.NewReader(data),
			ContentLength: aws.Int64(int64(len(data))),
			ContentType:   aws.String("application/octet-stream"),
		})
		return err
	})
}

func (g *S3Gateway) Download(ctx context.Context, name string) ([]byte, error) {
	prefix, err := g.prefix(ctx)
	if err != nil {
		return nil, &TransferError{Op: "download", Name: name, Err: err}
	}

	var data []byte
	err = g.withRetry(ctx, "download", name, func(ctx context.Context) error {
		out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(g.opts.Bucket),
			Key:    aws.String(prefix + name),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (g *S3Gateway) List(ctx context.Context) ([]string, error) {
	prefix, err := g.prefix(ctx)
	if err != nil {
		return nil, &TransferError{Op: "list", Err: err}
	}

	var names []string
	err = g.withRetry(ctx, "list", "", func(ctx context.Context) error {
		names = names[:0]
		p := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(g.opts.Bucket),
			Prefix: aws.String(prefix),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
				if name == "" || strings.Contains(name, "/") {
					continue
				}
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// withRetry runs call under a per-attempt timeout and retries transient
// failures with exponential backoff.
func (g *S3Gateway) withRetry(ctx context.Context, op, name string, call func(context.Context) error) error {
	b := retry.WithMaxRetries(uint64(max(g.opts.Retries, 0)), retry.NewExponential(g.opts.Backoff))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := g.attempt(ctx, op, name, call)
		if err == nil {
			return nil
		}
		if err.transient() {
			g.log.Debug(ctx, "Transient storage failure", "op", op, "name", name, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (g *S3Gateway) attempt(ctx context.Context, op, name string, call func(context.Context) error) *TransferError {
	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	err := call(callCtx)
	if err == nil {
		return nil
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return &TransferError{Op: op, Name: name, Err: fmt.Errorf("%w after %s", common.ErrTimeout, g.opts.Timeout)}
	}
	return &TransferError{Op: op, Name: name, StatusCode: statusCode(err), Err: err}
}

func statusCode(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return http.StatusNotFound
		case "AccessDenied":
			return http.StatusForbidden
		}
	}
	return 0
}
