package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppc64le-cloud/dbsync/pkg/storage"
	"github.com/ppc64le-cloud/dbsync/pkg/storage/s3"
)

var store storage.Storage

// perCallStore builds a fresh S3 client for every transfer.
type perCallStore struct {
	cred s3.Credentials
}

func (p *perCallStore) Download(bucket, object, localPath string) error {
	return s3.GetDB(p.cred, bucket, object, localPath)
}

func (p *perCallStore) Upload(localPath, bucket, object string) error {
	return s3.UploadDB(p.cred, localPath, bucket, object)
}

func backingStoreInit() error {
	if s3CredentialsFile == "" {
		return fmt.Errorf("--s3-credentials-file is missing")
	}
	s3Credentials, err := os.ReadFile(s3CredentialsFile)
	if err != nil {
		return err
	}

	var cred s3.Credentials
	if err := json.Unmarshal(s3Credentials, &cred); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s3CredentialsFile, err)
	}
	store = &perCallStore{cred: cred}
	return nil
}
