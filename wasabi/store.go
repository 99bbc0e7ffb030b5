// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/gabriel-vasile/mimetype"
	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
)

// store is the object store underlying a bucket.
type store interface {
	// List calls fn with each key under prefix.
	List(ctx context.Context, prefix string, fn func(key string)) error
	// Upload uploads the local file to key.
	Upload(ctx context.Context, local, key string) error
	// Download downloads key to the local file.
	Download(ctx context.Context, key, local string) error
}

// s3Store is a store backed by an S3 compatible API.
type s3Store struct {
	client     s3iface.S3API
	bucket     string
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

func newS3Store(client s3iface.S3API, bucket string) *s3Store {
	return &s3Store{
		client:     client,
		bucket:     bucket,
		uploader:   s3manager.NewUploaderWithClient(client),
		downloader: s3manager.NewDownloaderWithClient(client),
	}
}

func (s *s3Store) List(ctx context.Context, prefix string, fn func(key string)) error {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(out *s3.ListObjectsV2Output, last bool) bool {
			for _, obj := range out.Contents {
				fn(aws.StringValue(obj.Key))
			}
			return true
		})
	return annotate(err, "list", "s3://"+s.bucket+"/"+prefix)
}

func (s *s3Store) Upload(ctx context.Context, local, key string) (err error) {
	f, err := os.Open(local)
	if err != nil {
		return errors.E("open", local, err)
	}
	defer errors.CleanUp(f.Close, &err)
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if mime, err := mimetype.DetectFile(local); err == nil {
		input.ContentType = aws.String(mime.String())
	} else {
		log.Debug.Printf("detect content type of %s: %v", local, err)
	}
	_, err = s.uploader.UploadWithContext(ctx, input)
	return annotate(err, "upload", local, "s3://"+s.bucket+"/"+key)
}

func (s *s3Store) Download(ctx context.Context, key, local string) (err error) {
	tmp := local + ".download"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.E("create", tmp, err)
	}
	_, err = s.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp) // nolint: errcheck
		return annotate(err, "download", "s3://"+s.bucket+"/"+key)
	}
	if err := os.Rename(tmp, local); err != nil {
		return errors.E("rename", tmp, filepath.Base(local), err)
	}
	return nil
}

// annotate converts S3 errors into errors of the corresponding kind.
func annotate(err error, msgs ...string) error {
	if err == nil {
		return nil
	}
	args := make([]interface{}, 0, len(msgs)+3)
	for _, msg := range msgs {
		args = append(args, msg)
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NotFound":
			args = append(args, errors.NotExist)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			args = append(args, errors.NotAllowed)
		case request.CanceledErrorCode:
			args = append(args, errors.Canceled)
		case "RequestTimeout", "SlowDown", "InternalError", "ServiceUnavailable", request.ErrCodeSerialization:
			args = append(args, errors.Net, errors.Temporary)
		default:
			args = append(args, errors.Remote)
		}
	}
	return errors.E(append(args, err)...)
}
